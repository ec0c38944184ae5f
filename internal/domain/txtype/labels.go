// Package txtype maps transaction type codes to display labels.
package txtype

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Transaction type codes
const (
	CashSale        = "CS"
	ClientInvoice   = "IN"
	CreditNote      = "CN"
	ClientReceipt   = "RC"
	CashPurchase    = "CP"
	SupplierBill    = "BL"
	DebitNote       = "DN"
	SupplierPayment = "PY"
	ContraEntry     = "CE"
	JournalEntry    = "JN"
)

// Labeler resolves a transaction type code to its display label
type Labeler interface {
	Label(code string) string
}

// Labels is a static code to label table
type Labels map[string]string

// Defaults returns the built-in labels
func Defaults() Labels {
	return Labels{
		CashSale:        "Cash Sale",
		ClientInvoice:   "Client Invoice",
		CreditNote:      "Credit Note",
		ClientReceipt:   "Client Receipt",
		CashPurchase:    "Cash Purchase",
		SupplierBill:    "Supplier Bill",
		DebitNote:       "Debit Note",
		SupplierPayment: "Supplier Payment",
		ContraEntry:     "Contra Entry",
		JournalEntry:    "Journal Entry",
	}
}

// Label returns the label for code, or the code itself when it has none.
func (l Labels) Label(code string) string {
	if label, ok := l[code]; ok && label != "" {
		return label
	}
	return code
}

// Codes returns the known codes in sorted order
func (l Labels) Codes() []string {
	codes := make([]string, 0, len(l))
	for code := range l {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

type labelsFile struct {
	Transactions map[string]string `yaml:"transactions"`
}

// Parse reads a YAML document of the form
//
//	transactions:
//	  CS: Cash Sale
//
// and overlays it on the defaults.
func Parse(data []byte) (Labels, error) {
	var file labelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse transaction types: %w", err)
	}

	labels := Defaults()
	for code, label := range file.Transactions {
		labels[code] = label
	}
	return labels, nil
}

// Load reads labels from path. An empty path yields the defaults.
func Load(path string) (Labels, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction types file: %w", err)
	}
	return Parse(data)
}
