package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/domain/statement"
)

const dateLayout = "2006-01-02"

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// blankZero prints nothing for a zero column amount
func blankZero(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return money(d)
}

// renderText writes stmt as an aligned table
func renderText(w io.Writer, stmt *statement.Statement) error {
	fmt.Fprintf(w, "Account Statement\n")
	fmt.Fprintf(w, "Entity:   %s\n", stmt.Entity)
	fmt.Fprintf(w, "Account:  %s (%s)\n", stmt.Account, stmt.AccountID)
	fmt.Fprintf(w, "Currency: %s\n", stmt.Currency)
	fmt.Fprintf(w, "Period:   %s to %s, opening balance at %s\n\n",
		stmt.Period.StartDate.Format(dateLayout),
		stmt.Period.EndDate.Format(dateLayout),
		stmt.Period.FiscalYearStart.Format(dateLayout))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tNUMBER\tTYPE\tREFERENCE\tNARRATION\tDEBIT\tCREDIT\tBALANCE\t")
	fmt.Fprintf(tw, "\t\t\t\tOpening balance\t\t\t%s\t\n", money(stmt.Balances.Opening))
	for _, row := range stmt.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			row.Date.Format(dateLayout),
			row.Number,
			row.Type,
			row.Reference,
			row.Narration,
			blankZero(row.Debit),
			blankZero(row.Credit),
			money(row.Balance))
	}
	fmt.Fprintf(tw, "\t\t\t\tTotals\t%s\t%s\t\t\n", money(stmt.Totals.Debit), money(stmt.Totals.Credit))
	fmt.Fprintf(tw, "\t\t\t\tClosing balance\t\t\t%s\t\n", money(stmt.Balances.Closing))
	return tw.Flush()
}
