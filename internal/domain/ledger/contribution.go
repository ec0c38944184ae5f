package ledger

import (
	"github.com/shopspring/decimal"
)

// Role is the structural position an account holds in an entry.
type Role int

const (
	// RolePost is the primary account of an entry
	RolePost Role = iota
	// RoleFolio is the contra account of an entry
	RoleFolio
)

var (
	plusOne  = decimal.NewFromInt(1)
	minusOne = decimal.NewFromInt(-1)
)

// ContributionSign is the system-wide sign convention: a positive
// contribution is a net debit to the account and a negative one a net credit,
// whatever the account's normal balance. Entry amounts are stated from the
// post side, so the folio side sees the mirror.
func ContributionSign(role Role) decimal.Decimal {
	if role == RoleFolio {
		return minusOne
	}
	return plusOne
}

// SideSign converts a debit/credit side into the same convention.
func SideSign(side Side) decimal.Decimal {
	if side == Credit {
		return ContributionSign(RoleFolio)
	}
	return ContributionSign(RolePost)
}

// SignedAmount expresses an unsigned amount on side in post-perspective form.
func SignedAmount(side Side, amount decimal.Decimal) decimal.Decimal {
	return amount.Abs().Mul(SideSign(side))
}

// Contribution returns the net signed effect of entries on accountID.
// An account may appear as post and folio across different entries of the
// same transaction (or even within one); every occurrence accumulates.
func Contribution(accountID string, entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		if entry.PostAccountID == accountID {
			total = total.Add(entry.Amount.Mul(ContributionSign(RolePost)))
		}
		if entry.FolioAccountID == accountID {
			total = total.Add(entry.Amount.Mul(ContributionSign(RoleFolio)))
		}
	}
	return total
}

// Split classifies a contribution into its debit and credit columns.
// Exactly one is nonzero, or both are zero for a net-zero contribution.
func Split(contribution decimal.Decimal) (debit, credit decimal.Decimal) {
	if contribution.IsPositive() {
		return contribution, decimal.Zero
	}
	return decimal.Zero, contribution.Neg()
}

// OpeningAmount is the signed value of a brought-forward balance.
func (b OpeningBalance) OpeningAmount() decimal.Decimal {
	return SignedAmount(b.Side, b.Amount)
}
