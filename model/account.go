package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed set of account products the bank offers.
// It is validated at the boundary; a value outside the set never reaches
// the repository.
type AccountType string

const (
	TypeSavings      AccountType = "SAVINGS"
	TypeCurrent      AccountType = "CURRENT"
	TypeSalary       AccountType = "SALARY"
	TypeFixedDeposit AccountType = "FIXED_DEPOSIT"
	TypeNRESavings   AccountType = "NRE_SAVINGS"
	TypeNROSavings   AccountType = "NRO_SAVINGS"
)

// ParseAccountType converts a raw string into an AccountType, accepting any
// casing. It returns an error for values outside the enumeration.
func ParseAccountType(raw string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case TypeSavings, TypeCurrent, TypeSalary, TypeFixedDeposit, TypeNRESavings, TypeNROSavings:
		return t, nil
	}
	return "", fmt.Errorf("invalid account type: %q", raw)
}

type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	UserID        int64           `json:"user_id"`
	AccountType   AccountType     `json:"account_type"`
	CurrencyCode  string          `json:"currency_code"`
	OpeningDate   time.Time       `json:"opening_date"`
	Balance       decimal.Decimal `json:"balance"`
	// Version increments on every balance write; stale writes are rejected.
	Version int64 `json:"-"`
}
