package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go-account-service/common"
	"go-account-service/logger"
	"go-account-service/model"
	"go-account-service/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type AccountHandler struct {
	service *service.AccountService
}

func NewAccountHandler(service *service.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// CreateAccount godoc
// @Summary      Open a new bank account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body model.CreateAccountRequest true "Account details"
// @Success      201 {object} model.Account
// @Failure      400 {object} common.AppError
// @Security     BearerAuth
// @Router       /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.CreateAccountRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	log := logger.Log.WithFields(logrus.Fields{
		"user_id":       req.UserID,
		"account_type":  req.AccountType,
		"currency_code": req.CurrencyCode,
	})
	log.Info("Create account request received")

	account, err := h.service.CreateAccount(req.UserID, req.AccountType, req.Balance, req.CurrencyCode)
	if err != nil {
		return mapServiceError(err, "Could not create account")
	}

	respondJSON(w, http.StatusCreated, account)
	return nil
}

// GetAllAccounts lists every account. Admin use case.
func (h *AccountHandler) GetAllAccounts(w http.ResponseWriter, r *http.Request) *common.AppError {
	accounts, err := h.service.GetAllAccounts()
	if err != nil {
		return mapServiceError(err, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

// GetAccountByID godoc
// @Summary      Get an account by its ID
// @Tags         accounts
// @Produce      json
// @Param        id path int true "Account ID"
// @Success      200 {object} model.Account
// @Failure      404 {object} common.AppError
// @Security     BearerAuth
// @Router       /accounts/{id} [get]
func (h *AccountHandler) GetAccountByID(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return appErr
	}

	account, err := h.service.GetAccountByID(id)
	if err != nil {
		return mapServiceError(err, "Could not retrieve account")
	}
	respondJSON(w, http.StatusOK, account)
	return nil
}

// GetAccountBalance returns only the balance of an account.
func (h *AccountHandler) GetAccountBalance(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return appErr
	}

	account, err := h.service.GetAccountByID(id)
	if err != nil {
		return mapServiceError(err, "Could not retrieve account")
	}
	respondJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": account.Balance})
	return nil
}

// GetAccountNumber returns only the account number of an account.
func (h *AccountHandler) GetAccountNumber(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return appErr
	}

	account, err := h.service.GetAccountByID(id)
	if err != nil {
		return mapServiceError(err, "Could not retrieve account")
	}
	respondJSON(w, http.StatusOK, map[string]string{"account_number": account.AccountNumber})
	return nil
}

// GetAccountByNumber looks an account up by its 12-digit number.
func (h *AccountHandler) GetAccountByNumber(w http.ResponseWriter, r *http.Request) *common.AppError {
	number := r.PathValue("accountNumber")

	account, err := h.service.GetAccountByNumber(number)
	if err != nil {
		return mapServiceError(err, "Could not retrieve account")
	}
	respondJSON(w, http.StatusOK, account)
	return nil
}

// DebitAccount godoc
// @Summary      Debit an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path int true "Account ID"
// @Param        request body model.AmountRequest true "Amount to debit"
// @Success      200 {object} model.Account
// @Failure      404 {object} common.AppError
// @Failure      422 {object} common.AppError
// @Security     BearerAuth
// @Router       /accounts/{id}/debit [put]
func (h *AccountHandler) DebitAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return appErr
	}

	var req model.AmountRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	account, err := h.service.DebitAccount(id, req.Amount)
	if err != nil {
		return mapServiceError(err, "Could not debit account")
	}
	respondJSON(w, http.StatusOK, account)
	return nil
}

// CreditAccount godoc
// @Summary      Credit an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path int true "Account ID"
// @Param        request body model.AmountRequest true "Amount to credit"
// @Success      200 {object} model.Account
// @Failure      404 {object} common.AppError
// @Security     BearerAuth
// @Router       /accounts/{id}/credit [put]
func (h *AccountHandler) CreditAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return appErr
	}

	var req model.AmountRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	account, err := h.service.CreditAccount(id, req.Amount)
	if err != nil {
		return mapServiceError(err, "Could not credit account")
	}
	respondJSON(w, http.StatusOK, account)
	return nil
}

// ListAccountsByUser lists all accounts owned by a user.
func (h *AccountHandler) ListAccountsByUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := pathID(r, "userId")
	if appErr != nil {
		return appErr
	}

	accounts, err := h.service.GetAccountsByUserID(userID)
	if err != nil {
		return mapServiceError(err, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

// ListAccountsByUserAndCurrency narrows a user's accounts to one currency.
func (h *AccountHandler) ListAccountsByUserAndCurrency(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := pathID(r, "userId")
	if appErr != nil {
		return appErr
	}
	code := r.PathValue("code")

	accounts, err := h.service.GetAccountsByUserAndCurrency(userID, code)
	if err != nil {
		return mapServiceError(err, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

// ListAccountsByCurrency lists accounts held in a currency.
func (h *AccountHandler) ListAccountsByCurrency(w http.ResponseWriter, r *http.Request) *common.AppError {
	code := r.PathValue("code")

	accounts, err := h.service.GetAccountsByCurrency(code)
	if err != nil {
		return mapServiceError(err, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

// ListAccountsOpenedAfter lists accounts opened after the given date.
func (h *AccountHandler) ListAccountsOpenedAfter(w http.ResponseWriter, r *http.Request) *common.AppError {
	date, appErr := pathDate(r, "date")
	if appErr != nil {
		return appErr
	}

	accounts, err := h.service.GetAccountsOpenedAfter(date)
	if err != nil {
		return mapServiceError(err, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

// ListAccountsOpenedBefore lists accounts opened before the given date.
func (h *AccountHandler) ListAccountsOpenedBefore(w http.ResponseWriter, r *http.Request) *common.AppError {
	date, appErr := pathDate(r, "date")
	if appErr != nil {
		return appErr
	}

	accounts, err := h.service.GetAccountsOpenedBefore(date)
	if err != nil {
		return mapServiceError(err, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

// ListAccountsOpenedBetween lists accounts opened within ?start= and ?end=.
func (h *AccountHandler) ListAccountsOpenedBetween(w http.ResponseWriter, r *http.Request) *common.AppError {
	start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD", err)
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD", err)
	}

	accounts, svcErr := h.service.GetAccountsOpenedBetween(start, end)
	if svcErr != nil {
		return mapServiceError(svcErr, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

// ListAccountsWithBalanceGreaterThan lists accounts above ?amount=.
func (h *AccountHandler) ListAccountsWithBalanceGreaterThan(w http.ResponseWriter, r *http.Request) *common.AppError {
	amount, appErr := queryAmount(r)
	if appErr != nil {
		return appErr
	}

	accounts, err := h.service.GetAccountsWithBalanceGreaterThan(amount)
	if err != nil {
		return mapServiceError(err, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

// ListAccountsWithBalanceLessThan lists accounts below ?amount=.
func (h *AccountHandler) ListAccountsWithBalanceLessThan(w http.ResponseWriter, r *http.Request) *common.AppError {
	amount, appErr := queryAmount(r)
	if appErr != nil {
		return appErr
	}

	accounts, err := h.service.GetAccountsWithBalanceLessThan(amount)
	if err != nil {
		return mapServiceError(err, "Could not retrieve accounts")
	}
	respondJSON(w, http.StatusOK, accounts)
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func pathID(r *http.Request, name string) (int64, *common.AppError) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewAppError(http.StatusBadRequest, "Invalid "+name+" in path", err)
	}
	return id, nil
}

func pathDate(r *http.Request, name string) (time.Time, *common.AppError) {
	date, err := time.Parse(dateLayout, r.PathValue(name))
	if err != nil {
		return time.Time{}, common.NewAppError(http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
	}
	return date, nil
}

func queryAmount(r *http.Request) (decimal.Decimal, *common.AppError) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		return decimal.Decimal{}, common.NewAppError(http.StatusBadRequest, "Invalid amount parameter", err)
	}
	return amount, nil
}

// mapServiceError translates domain errors into HTTP responses. Unrecognized
// errors, including store failures, surface as 500s.
func mapServiceError(err error, fallback string) *common.AppError {
	switch err {
	case service.ErrAccountNotFound:
		return common.NewAppError(http.StatusNotFound, err.Error(), nil)
	case service.ErrInvalidAccountType,
		service.ErrInvalidCurrency,
		service.ErrNegativeOpeningBalance,
		service.ErrInvalidAmount:
		return common.NewAppError(http.StatusBadRequest, err.Error(), nil)
	case service.ErrInsufficientFunds:
		return common.NewAppError(http.StatusUnprocessableEntity, err.Error(), nil)
	case service.ErrConcurrentUpdate:
		return common.NewAppError(http.StatusConflict, err.Error(), nil)
	default:
		return common.NewAppError(http.StatusInternalServerError, fallback, err)
	}
}
