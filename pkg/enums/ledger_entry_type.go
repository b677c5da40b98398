package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type_enum enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntryTypeCredit   LedgerEntryType = "credit"
	LedgerEntryTypeDebit    LedgerEntryType = "debit"
	LedgerEntryTypeRefund   LedgerEntryType = "refund"
	LedgerEntryTypeCashback LedgerEntryType = "cashback"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeCredit,
	LedgerEntryTypeDebit,
	LedgerEntryTypeRefund,
	LedgerEntryTypeCashback,
}

func (t LedgerEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Inflow reports whether entries of this type add money to the wallet.
// Debit is the only outflow; it is stored with a negative amount.
func (t LedgerEntryType) Inflow() bool {
	return t != LedgerEntryTypeDebit
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
