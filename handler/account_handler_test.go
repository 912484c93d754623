package handler_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go-account-service/config"
	"go-account-service/handler"
	"go-account-service/logger"
	"go-account-service/model"
	"go-account-service/router"
	"go-account-service/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	logger.Init()
	config.AppConfig.JWT.SecretKey = testSecret
	os.Exit(m.Run())
}

// fakeAccountRepo is an in-memory stand-in for the postgres repository so
// handler tests can exercise full request flows without a database.
type fakeAccountRepo struct {
	accounts map[int64]*model.Account
	nextID   int64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[int64]*model.Account{}, nextID: 1}
}

func (f *fakeAccountRepo) CreateAccount(account *model.Account) error {
	account.ID = f.nextID
	f.nextID++
	copy := *account
	f.accounts[account.ID] = &copy
	return nil
}

func (f *fakeAccountRepo) GetAccountByID(id int64) (*model.Account, error) {
	acc, ok := f.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *acc
	return &copy, nil
}

func (f *fakeAccountRepo) GetAccountByNumber(number string) (*model.Account, error) {
	for _, acc := range f.accounts {
		if acc.AccountNumber == number {
			copy := *acc
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountRepo) GetAllAccounts() ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		copy := *acc
		out = append(out, &copy)
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAccountsByUserID(userID int64) ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		if acc.UserID == userID {
			copy := *acc
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAccountsByCurrency(code string) ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		if acc.CurrencyCode == code {
			copy := *acc
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAccountsByUserAndCurrency(userID int64, code string) ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		if acc.UserID == userID && acc.CurrencyCode == code {
			copy := *acc
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAccountsOpenedAfter(date time.Time) ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		if acc.OpeningDate.After(date) {
			copy := *acc
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAccountsOpenedBefore(date time.Time) ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		if acc.OpeningDate.Before(date) {
			copy := *acc
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAccountsOpenedBetween(start, end time.Time) ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		if !acc.OpeningDate.Before(start) && !acc.OpeningDate.After(end) {
			copy := *acc
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAccountsWithBalanceGreaterThan(amount decimal.Decimal) ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		if acc.Balance.GreaterThan(amount) {
			copy := *acc
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAccountsWithBalanceLessThan(amount decimal.Decimal) ([]*model.Account, error) {
	out := []*model.Account{}
	for _, acc := range f.accounts {
		if acc.Balance.LessThan(amount) {
			copy := *acc
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) UpdateBalance(id int64, newBalance decimal.Decimal, expectedVersion int64) error {
	acc, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	acc.Balance = newBalance
	acc.Version++
	return nil
}

type recordingNotifier struct {
	payloads []string
}

func (n *recordingNotifier) Send(topic, payload string) {
	n.payloads = append(n.payloads, payload)
}

func setupTestServer() (http.Handler, *fakeAccountRepo, *recordingNotifier) {
	repo := newFakeAccountRepo()
	n := &recordingNotifier{}
	svc := service.NewAccountService(repo, n, "account-events", rand.New(rand.NewSource(7)))
	return router.NewRouter(handler.NewAccountHandler(svc)), repo, n
}

func bearerToken(t *testing.T) string {
	t.Helper()
	claims := model.ServiceClaims{
		Service: "api-gateway",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("could not sign test token: %v", err)
	}
	return "Bearer " + token
}

func doRequest(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("could not marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Authorization", bearerToken(t))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	r, _, n := setupTestServer()

	rr := doRequest(t, r, "POST", "/accounts", map[string]interface{}{
		"user_id":       42,
		"account_type":  "SAVINGS",
		"currency_code": "USD",
	})

	assert.Equal(t, http.StatusCreated, rr.Code)

	var account model.Account
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))
	assert.Equal(t, int64(42), account.UserID)
	assert.Equal(t, model.TypeSavings, account.AccountType)
	assert.True(t, account.Balance.IsZero())
	assert.Len(t, account.AccountNumber, 12)
	assert.NotEqual(t, byte('0'), account.AccountNumber[0])
	assert.Equal(t, []string{fmt.Sprintf("ACCOUNT_CREATED:%d", account.ID)}, n.payloads)
}

func TestAccountHandler_CreateAccount_InvalidType(t *testing.T) {
	r, _, _ := setupTestServer()

	rr := doRequest(t, r, "POST", "/accounts", map[string]interface{}{
		"user_id":       42,
		"account_type":  "CHECKING",
		"currency_code": "USD",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountHandler_DebitCreditFlow(t *testing.T) {
	r, _, n := setupTestServer()

	rr := doRequest(t, r, "POST", "/accounts", map[string]interface{}{
		"user_id":       42,
		"account_type":  "CURRENT",
		"currency_code": "USD",
		"balance":       "100.00",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)

	var account model.Account
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))
	id := account.ID

	// Debit 30.00 from the opening 100.00.
	rr = doRequest(t, r, "PUT", fmt.Sprintf("/accounts/%d/debit", id), map[string]interface{}{"amount": "30.00"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("70.00")))

	// Overdraft attempt fails and leaves the balance untouched.
	rr = doRequest(t, r, "PUT", fmt.Sprintf("/accounts/%d/debit", id), map[string]interface{}{"amount": "1000.00"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(t, r, "GET", fmt.Sprintf("/accounts/%d/balance", id), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"balance":"70.00"}`, rr.Body.String())

	// Credit 50.00 on the remaining 70.00.
	rr = doRequest(t, r, "PUT", fmt.Sprintf("/accounts/%d/credit", id), map[string]interface{}{"amount": "50.00"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("120.00")))

	assert.Equal(t, []string{
		fmt.Sprintf("ACCOUNT_CREATED:%d", id),
		fmt.Sprintf("ACCOUNT_DEBITED:%d,amount=30.00", id),
		fmt.Sprintf("ACCOUNT_CREDITED:%d,amount=50.00", id),
	}, n.payloads)
}

func TestAccountHandler_DebitInvalidAmount(t *testing.T) {
	r, _, _ := setupTestServer()

	rr := doRequest(t, r, "POST", "/accounts", map[string]interface{}{
		"user_id":       1,
		"account_type":  "SAVINGS",
		"currency_code": "USD",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)

	var account model.Account
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))

	rr = doRequest(t, r, "PUT", fmt.Sprintf("/accounts/%d/debit", account.ID), map[string]interface{}{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountHandler_GetAccountByID_NotFound(t *testing.T) {
	r, _, _ := setupTestServer()

	rr := doRequest(t, r, "GET", "/accounts/999", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAccountHandler_ListAccountsByUser(t *testing.T) {
	r, _, _ := setupTestServer()

	for _, currency := range []string{"USD", "EUR"} {
		rr := doRequest(t, r, "POST", "/accounts", map[string]interface{}{
			"user_id":       42,
			"account_type":  "SAVINGS",
			"currency_code": currency,
		})
		assert.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := doRequest(t, r, "GET", "/accounts/user/42", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var accounts []*model.Account
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 2)

	// Unknown users get an empty list, not an error.
	rr = doRequest(t, r, "GET", "/accounts/user/77", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = doRequest(t, r, "GET", "/accounts/user/42/currency/EUR", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 1)
}

func TestAccountHandler_BalanceFilters(t *testing.T) {
	r, _, _ := setupTestServer()

	for i, balance := range []string{"10.00", "500.00"} {
		rr := doRequest(t, r, "POST", "/accounts", map[string]interface{}{
			"user_id":       int64(i + 1),
			"account_type":  "SAVINGS",
			"currency_code": "USD",
			"balance":       balance,
		})
		assert.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := doRequest(t, r, "GET", "/accounts/balance/greater-than?amount=100", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var accounts []*model.Account
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 1)
	assert.True(t, accounts[0].Balance.Equal(decimal.RequireFromString("500.00")))

	rr = doRequest(t, r, "GET", "/accounts/balance/less-than?amount=100", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 1)

	rr = doRequest(t, r, "GET", "/accounts/balance/greater-than?amount=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountHandler_DateFilters(t *testing.T) {
	r, repo, _ := setupTestServer()

	rr := doRequest(t, r, "POST", "/accounts", map[string]interface{}{
		"user_id":       1,
		"account_type":  "SAVINGS",
		"currency_code": "USD",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)

	// Backdate a second account directly in the store.
	old := &model.Account{
		AccountNumber: "999999999999",
		UserID:        1,
		AccountType:   model.TypeCurrent,
		CurrencyCode:  "USD",
		OpeningDate:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Balance:       decimal.Zero,
	}
	assert.NoError(t, repo.CreateAccount(old))

	rr = doRequest(t, r, "GET", "/accounts/opened-after/2021-01-01", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var accounts []*model.Account
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 1)

	rr = doRequest(t, r, "GET", "/accounts/opened-before/2021-01-01", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 1)
	assert.Equal(t, old.ID, accounts[0].ID)

	rr = doRequest(t, r, "GET", "/accounts/opened-between?start=2019-01-01&end=2021-01-01", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 1)

	rr = doRequest(t, r, "GET", "/accounts/opened-between?start=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, r, "GET", "/accounts/opened-after/01-01-2021", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountHandler_GetAccountByNumber(t *testing.T) {
	r, _, _ := setupTestServer()

	rr := doRequest(t, r, "POST", "/accounts", map[string]interface{}{
		"user_id":       1,
		"account_type":  "FIXED_DEPOSIT",
		"currency_code": "USD",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)

	var account model.Account
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &account))

	rr = doRequest(t, r, "GET", "/accounts/byNumber/"+account.AccountNumber, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var found model.Account
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &found))
	assert.Equal(t, account.ID, found.ID)

	rr = doRequest(t, r, "GET", "/accounts/byNumber/000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAccountHandler_AuthRequired(t *testing.T) {
	r, _, _ := setupTestServer()

	req := httptest.NewRequest("GET", "/accounts", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest("GET", "/accounts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
