// file: model/request.go

package model

import "github.com/shopspring/decimal"

// CreateAccountRequest defines the payload for opening a new account.
// It includes validation tags to ensure data integrity at the entry point.
// Balance is a pointer so an absent field can be told apart from an
// explicit zero; AccountType is validated again in the service against the
// closed enumeration.
type CreateAccountRequest struct {
	UserID       int64            `json:"user_id" validate:"required,gt=0"`
	AccountType  string           `json:"account_type" validate:"required"`
	CurrencyCode string           `json:"currency_code" validate:"required,len=3,alpha"`
	Balance      *decimal.Decimal `json:"balance,omitempty"`
}

// AmountRequest defines the payload for debit and credit operations.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}
