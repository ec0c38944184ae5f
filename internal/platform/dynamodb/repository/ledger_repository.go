package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	ulid "github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	commonErrors "github.com/hirosato/account-statements/backend/internal/domain/errors"
	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
	"github.com/hirosato/account-statements/backend/internal/platform/dynamodb/client"
)

const (
	batchGetLimit   = 100
	batchWriteLimit = 25
	maxBatchRetries = 5
)

// DynamoDBLedgerRepository implements ledger.Repository and ledger.Writer on
// a single table. Transactions are stored once under their entity with the
// entries embedded, and indexed by one posting item per account they touch.
type DynamoDBLedgerRepository struct {
	client client.Client
	table  string
	logger *slog.Logger
}

// NewDynamoDBLedgerRepository creates a new DynamoDBLedgerRepository
func NewDynamoDBLedgerRepository(client client.Client, table string, logger *slog.Logger) *DynamoDBLedgerRepository {
	return &DynamoDBLedgerRepository{
		client: client,
		table:  table,
		logger: logger,
	}
}

// getItem loads one item into out. found is false when the key is absent.
func (r *DynamoDBLedgerRepository) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, commonErrors.NewInternalError("failed to get item", err)
	}
	if len(result.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, commonErrors.NewInternalError("failed to unmarshal item", err)
	}
	return true, nil
}

func (r *DynamoDBLedgerRepository) putItem(ctx context.Context, in interface{}) error {
	item, err := attributevalue.MarshalMap(in)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal item", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return commonErrors.NewInternalError("failed to put item", err)
	}
	return nil
}

// GetEntity retrieves an entity by ID
func (r *DynamoDBLedgerRepository) GetEntity(ctx context.Context, entityID string) (*ledger.Entity, error) {
	var item entityItem
	found, err := r.getItem(ctx, entityPK(entityID), "ENTITY", &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, commonErrors.NewNotFoundError("entity not found").WithDetail("entityId", entityID)
	}
	return item.toModel(), nil
}

// GetAccount retrieves an account of the entity
func (r *DynamoDBLedgerRepository) GetAccount(ctx context.Context, entityID, accountID string) (*ledger.Account, error) {
	var item accountItem
	found, err := r.getItem(ctx, entityPK(entityID), accountSK(accountID), &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, commonErrors.NewNotFoundError("account not found").WithDetail("accountId", accountID)
	}
	return item.toModel(), nil
}

// GetCurrency retrieves a currency of the entity
func (r *DynamoDBLedgerRepository) GetCurrency(ctx context.Context, entityID, currencyID string) (*ledger.Currency, error) {
	var item currencyItem
	found, err := r.getItem(ctx, entityPK(entityID), currencySK(currencyID), &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, commonErrors.NewNotFoundError("currency not found").WithDetail("currencyId", currencyID)
	}
	return item.toModel(), nil
}

// GetTransaction retrieves a transaction with its entries
func (r *DynamoDBLedgerRepository) GetTransaction(ctx context.Context, entityID, transactionID string) (*ledger.Transaction, error) {
	var item transactionItem
	found, err := r.getItem(ctx, entityPK(entityID), transactionSK(transactionID), &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, commonErrors.NewNotFoundError("transaction not found").WithDetail("transactionId", transactionID)
	}
	txn, err := item.toModel()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to decode transaction", err)
	}
	return txn, nil
}

// FindTransactions reads the account's posting index for the window and
// loads the referenced transactions.
func (r *DynamoDBLedgerRepository) FindTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	keyCondition := expression.Key("PK").Equal(expression.Value(postingPK(filter.EntityID, filter.AccountID, filter.CurrencyID))).
		And(expression.Key("SK").Between(
			expression.Value(postingDateKey(filter.From)),
			expression.Value(postingUpperBound(filter.To)),
		))

	ids, err := r.queryPostings(ctx, keyCondition)
	if err != nil {
		return nil, err
	}
	txns, err := r.batchGetTransactions(ctx, filter.EntityID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ledger.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.Deleted || txn.CurrencyID != filter.CurrencyID {
			continue
		}
		// the index may lag a rewritten transaction
		if txn.Date.Before(filter.From) || txn.Date.After(filter.To) || !txn.Touches(filter.AccountID) {
			continue
		}
		out = append(out, txn)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TransactionID < out[j].TransactionID
	})

	r.logger.DebugContext(ctx, "found transactions",
		"entityId", filter.EntityID,
		"accountId", filter.AccountID,
		"postings", len(ids),
		"transactions", len(out))
	return out, nil
}

// OpeningBalance adds the brought-forward record for the fiscal year that
// starts at before to every contribution posted strictly before it.
func (r *DynamoDBLedgerRepository) OpeningBalance(ctx context.Context, entityID, accountID, currencyID string, before time.Time) (decimal.Decimal, error) {
	total := decimal.Zero

	var record openingBalanceItem
	found, err := r.getItem(ctx, openingPK(entityID, accountID, currencyID), openingSK(before.Year()), &record)
	if err != nil {
		return decimal.Zero, err
	}
	if found {
		balance, err := record.toModel()
		if err != nil {
			return decimal.Zero, commonErrors.NewInternalError("failed to decode opening balance", err)
		}
		total = total.Add(balance.OpeningAmount())
	}

	keyCondition := expression.Key("PK").Equal(expression.Value(postingPK(entityID, accountID, currencyID))).
		And(expression.Key("SK").LessThan(expression.Value(postingDateKey(before))))

	ids, err := r.queryPostings(ctx, keyCondition)
	if err != nil {
		return decimal.Zero, err
	}
	txns, err := r.batchGetTransactions(ctx, entityID, ids)
	if err != nil {
		return decimal.Zero, err
	}
	for _, txn := range txns {
		if txn.Deleted || txn.CurrencyID != currencyID || !txn.Date.Before(before) {
			continue
		}
		total = total.Add(ledger.Contribution(accountID, txn.Entries))
	}
	return total, nil
}

// queryPostings pages through posting items and returns the distinct
// transaction IDs in key order.
func (r *DynamoDBLedgerRepository) queryPostings(ctx context.Context, keyCondition expression.KeyConditionBuilder) ([]string, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build expression", err)
	}

	var (
		ids       []string
		seen      = make(map[string]struct{})
		startKey  map[string]types.AttributeValue
		pageCount int
	)
	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, commonErrors.NewInternalError("failed to query postings", err)
		}
		pageCount++

		var postings []postingItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &postings); err != nil {
			return nil, commonErrors.NewInternalError("failed to unmarshal postings", err)
		}
		for _, posting := range postings {
			if _, ok := seen[posting.TransactionID]; ok {
				continue
			}
			seen[posting.TransactionID] = struct{}{}
			ids = append(ids, posting.TransactionID)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	r.logger.DebugContext(ctx, "queried postings", "pages", pageCount, "transactions", len(ids))
	return ids, nil
}

// batchGetTransactions loads transactions by ID, retrying unprocessed keys.
// The result is in no particular order.
func (r *DynamoDBLedgerRepository) batchGetTransactions(ctx context.Context, entityID string, ids []string) ([]ledger.Transaction, error) {
	txns := make([]ledger.Transaction, 0, len(ids))
	for lo := 0; lo < len(ids); lo += batchGetLimit {
		hi := min(lo+batchGetLimit, len(ids))

		keys := make([]map[string]types.AttributeValue, 0, hi-lo)
		for _, id := range ids[lo:hi] {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: entityPK(entityID)},
				"SK": &types.AttributeValueMemberS{Value: transactionSK(id)},
			})
		}
		request := map[string]types.KeysAndAttributes{
			r.table: {Keys: keys},
		}

		for attempt := 0; len(request) > 0; attempt++ {
			if attempt > maxBatchRetries {
				return nil, commonErrors.NewInternalError("failed to load transactions", fmt.Errorf("unprocessed keys after %d attempts", attempt))
			}
			result, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, commonErrors.NewInternalError("failed to load transactions", err)
			}

			var items []transactionItem
			if err := attributevalue.UnmarshalListOfMaps(result.Responses[r.table], &items); err != nil {
				return nil, commonErrors.NewInternalError("failed to unmarshal transactions", err)
			}
			for _, item := range items {
				txn, err := item.toModel()
				if err != nil {
					return nil, commonErrors.NewInternalError("failed to decode transaction", err)
				}
				txns = append(txns, *txn)
			}
			request = result.UnprocessedKeys
		}
	}
	return txns, nil
}

// batchWrite sends write requests in chunks, retrying unprocessed writes
func (r *DynamoDBLedgerRepository) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	for lo := 0; lo < len(writes); lo += batchWriteLimit {
		hi := min(lo+batchWriteLimit, len(writes))
		request := map[string][]types.WriteRequest{r.table: writes[lo:hi]}

		for attempt := 0; len(request) > 0; attempt++ {
			if attempt > maxBatchRetries {
				return commonErrors.NewInternalError("failed to write items", fmt.Errorf("unprocessed items after %d attempts", attempt))
			}
			result, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: request})
			if err != nil {
				return commonErrors.NewInternalError("failed to write items", err)
			}
			request = result.UnprocessedItems
		}
	}
	return nil
}

// PutEntity stores an entity
func (r *DynamoDBLedgerRepository) PutEntity(ctx context.Context, entity *ledger.Entity) error {
	if entity.EntityID == "" {
		return commonErrors.NewValidationError("entity ID is required")
	}
	return r.putItem(ctx, entityItem{
		PK:             entityPK(entity.EntityID),
		SK:             "ENTITY",
		Type:           typeEntity,
		EntityID:       entity.EntityID,
		Name:           entity.Name,
		CurrencyID:     entity.CurrencyID,
		YearStartMonth: entity.YearStartMonth,
	})
}

// PutCurrency stores a currency
func (r *DynamoDBLedgerRepository) PutCurrency(ctx context.Context, currency *ledger.Currency) error {
	if currency.EntityID == "" || currency.CurrencyID == "" {
		return commonErrors.NewValidationError("currency requires entity and currency IDs")
	}
	return r.putItem(ctx, currencyItem{
		PK:           entityPK(currency.EntityID),
		SK:           currencySK(currency.CurrencyID),
		Type:         typeCurrency,
		CurrencyID:   currency.CurrencyID,
		EntityID:     currency.EntityID,
		Name:         currency.Name,
		CurrencyCode: currency.CurrencyCode,
	})
}

// PutAccount stores an account
func (r *DynamoDBLedgerRepository) PutAccount(ctx context.Context, account *ledger.Account) error {
	if account.EntityID == "" || account.AccountID == "" {
		return commonErrors.NewValidationError("account requires entity and account IDs")
	}
	normal := account.NormalBalance
	if !normal.Valid() {
		normal = account.AccountType.NormalBalance()
	}
	return r.putItem(ctx, accountItem{
		PK:            entityPK(account.EntityID),
		SK:            accountSK(account.AccountID),
		Type:          typeAccount,
		AccountID:     account.AccountID,
		EntityID:      account.EntityID,
		Name:          account.Name,
		AccountType:   string(account.AccountType),
		NormalBalance: string(normal),
		CurrencyID:    account.CurrencyID,
	})
}

// PutTransaction stores a transaction and indexes it under every account it
// touches. Missing transaction and entry IDs are generated. Rewriting a
// transaction removes the posting items its previous version no longer has.
func (r *DynamoDBLedgerRepository) PutTransaction(ctx context.Context, txn *ledger.Transaction) (*ledger.Transaction, error) {
	if txn.EntityID == "" || txn.CurrencyID == "" {
		return nil, commonErrors.NewValidationError("transaction requires entity and currency IDs")
	}
	if txn.Date.IsZero() {
		return nil, commonErrors.NewValidationError("transaction date is required")
	}

	stored := *txn
	if stored.TransactionID == "" {
		stored.TransactionID = ulid.Make().String()
	}
	stored.Entries = make([]ledger.Entry, len(txn.Entries))
	for i, entry := range txn.Entries {
		if entry.EntryID == "" {
			entry.EntryID = ulid.Make().String()
		}
		entry.TransactionID = stored.TransactionID
		stored.Entries[i] = entry
	}

	stale, err := r.previousPostings(ctx, &stored)
	if err != nil {
		return nil, err
	}

	txnItem, err := attributevalue.MarshalMap(newTransactionItem(&stored))
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to marshal transaction", err)
	}
	writes := []types.WriteRequest{{PutRequest: &types.PutRequest{Item: txnItem}}}

	for _, key := range postingKeys(&stored) {
		delete(stale, key)
		posting, err := attributevalue.MarshalMap(postingItem{
			PK:            key.pk,
			SK:            key.sk,
			Type:          typePosting,
			TransactionID: stored.TransactionID,
		})
		if err != nil {
			return nil, commonErrors.NewInternalError("failed to marshal posting", err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: posting}})
	}

	for key := range stale {
		writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: key.pk},
				"SK": &types.AttributeValueMemberS{Value: key.sk},
			},
		}})
	}
	if len(stale) > 0 {
		r.logger.DebugContext(ctx, "removing stale postings", "transactionId", stored.TransactionID, "count", len(stale))
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return nil, err
	}
	return &stored, nil
}

type itemKey struct {
	pk, sk string
}

// postingKeys returns the posting index keys of txn, one per touched account
func postingKeys(txn *ledger.Transaction) []itemKey {
	accounts := touchedAccounts(txn.Entries)
	keys := make([]itemKey, 0, len(accounts))
	for _, accountID := range accounts {
		keys = append(keys, itemKey{
			pk: postingPK(txn.EntityID, accountID, txn.CurrencyID),
			sk: postingSK(txn.Date, txn.TransactionID),
		})
	}
	return keys
}

// previousPostings returns the posting keys of the stored version of txn,
// if there is one
func (r *DynamoDBLedgerRepository) previousPostings(ctx context.Context, txn *ledger.Transaction) (map[itemKey]struct{}, error) {
	var item transactionItem
	found, err := r.getItem(ctx, entityPK(txn.EntityID), transactionSK(txn.TransactionID), &item)
	if err != nil {
		return nil, err
	}
	keys := make(map[itemKey]struct{})
	if !found {
		return keys, nil
	}
	previous, err := item.toModel()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to decode transaction", err)
	}
	for _, key := range postingKeys(previous) {
		keys[key] = struct{}{}
	}
	return keys, nil
}

// PutOpeningBalance stores a brought-forward balance. Year labels the fiscal
// year by the calendar year it starts in.
func (r *DynamoDBLedgerRepository) PutOpeningBalance(ctx context.Context, balance *ledger.OpeningBalance) error {
	if !balance.Side.Valid() {
		return commonErrors.NewValidationError(fmt.Sprintf("invalid balance side %q", balance.Side))
	}
	return r.putItem(ctx, openingBalanceItem{
		PK:         openingPK(balance.EntityID, balance.AccountID, balance.CurrencyID),
		SK:         openingSK(balance.Year),
		Type:       typeOpeningBalance,
		EntityID:   balance.EntityID,
		AccountID:  balance.AccountID,
		CurrencyID: balance.CurrencyID,
		Year:       balance.Year,
		Side:       string(balance.Side),
		Amount:     balance.Amount.Abs().String(),
	})
}

// touchedAccounts returns each account referenced by entries once, in order
// of first appearance.
func touchedAccounts(entries []ledger.Entry) []string {
	seen := make(map[string]struct{})
	var accounts []string
	for _, entry := range entries {
		for _, id := range []string{entry.PostAccountID, entry.FolioAccountID} {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			accounts = append(accounts, id)
		}
	}
	return accounts
}

var _ ledger.Repository = (*DynamoDBLedgerRepository)(nil)
var _ ledger.Writer = (*DynamoDBLedgerRepository)(nil)

