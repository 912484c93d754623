// file: service/account_service.go

package service

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go-account-service/logger"
	"go-account-service/model"
	"go-account-service/notifier"
	"go-account-service/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidCurrency        = errors.New("currency code must be 3 letters")
	ErrNegativeOpeningBalance = errors.New("opening balance cannot be negative")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrConcurrentUpdate       = errors.New("account is being updated concurrently, please retry")
	ErrNumberGeneration       = errors.New("could not generate a unique account number")
)

const (
	// accountNumberAttempts bounds the regenerate-on-collision loop; the
	// unique index on accounts.account_number remains the backstop.
	accountNumberAttempts = 5
	// balanceUpdateAttempts bounds the optimistic-concurrency retry loop
	// for debit and credit.
	balanceUpdateAttempts = 3
)

// AccountService owns account creation and balance mutation. All writes go
// through it; the repository is the durable owner of state between calls.
type AccountService struct {
	repo     repository.IAccountRepository
	notifier notifier.Notifier
	topic    string

	// rng is injected so tests can seed it. Guarded by mu: *rand.Rand is
	// not safe for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand
}

func NewAccountService(repo repository.IAccountRepository, n notifier.Notifier, topic string, rng *rand.Rand) *AccountService {
	return &AccountService{
		repo:     repo,
		notifier: n,
		topic:    topic,
		rng:      rng,
	}
}

// generateAccountNumber produces 12 decimal digits, the first drawn from
// 1-9 so the number never starts with zero.
func (s *AccountService) generateAccountNumber() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	digits := make([]byte, 12)
	digits[0] = byte('1' + s.rng.Intn(9))
	for i := 1; i < 12; i++ {
		digits[i] = byte('0' + s.rng.Intn(10))
	}
	return string(digits)
}

// nextFreeAccountNumber regenerates on collision against existing numbers.
func (s *AccountService) nextFreeAccountNumber() (string, error) {
	for i := 0; i < accountNumberAttempts; i++ {
		number := s.generateAccountNumber()
		_, err := s.repo.GetAccountByNumber(number)
		if err == sql.ErrNoRows {
			return number, nil
		}
		if err != nil {
			return "", err
		}
		logger.Log.WithField("account_number", number).Warn("Generated account number already exists, regenerating")
	}
	return "", ErrNumberGeneration
}

// CreateAccount validates the inputs, generates a fresh account number,
// persists the record and emits an ACCOUNT_CREATED event.
func (s *AccountService) CreateAccount(userID int64, rawType string, balance *decimal.Decimal, currencyCode string) (*model.Account, error) {
	accountType, err := model.ParseAccountType(rawType)
	if err != nil {
		return nil, ErrInvalidAccountType
	}
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if len(currencyCode) != 3 {
		return nil, ErrInvalidCurrency
	}

	openingBalance := decimal.Zero
	if balance != nil {
		if balance.IsNegative() {
			return nil, ErrNegativeOpeningBalance
		}
		openingBalance = *balance
	}

	log := logger.Log.WithFields(logrus.Fields{
		"user_id":       userID,
		"account_type":  accountType,
		"currency_code": currencyCode,
	})
	log.Info("Creating new account")

	number, err := s.nextFreeAccountNumber()
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		AccountNumber: number,
		UserID:        userID,
		AccountType:   accountType,
		CurrencyCode:  currencyCode,
		OpeningDate:   time.Now().UTC().Truncate(24 * time.Hour),
		Balance:       openingBalance,
	}

	if err := s.repo.CreateAccount(account); err != nil {
		return nil, err
	}

	s.notifier.Send(s.topic, fmt.Sprintf("ACCOUNT_CREATED:%d", account.ID))

	log.WithField("account_id", account.ID).Info("Account created successfully")
	return account, nil
}

// DebitAccount subtracts a positive amount from the balance, refusing to
// drive it negative. The write is retried when a concurrent mutation bumps
// the row version between read and write.
func (s *AccountService) DebitAccount(id int64, amount decimal.Decimal) (*model.Account, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	log := logger.Log.WithFields(logrus.Fields{
		"account_id": id,
		"amount":     amount.String(),
	})
	log.Info("Debit request received")

	for i := 0; i < balanceUpdateAttempts; i++ {
		account, err := s.getAccount(id)
		if err != nil {
			return nil, err
		}

		if account.Balance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}

		newBalance := account.Balance.Sub(amount)
		err = s.repo.UpdateBalance(id, newBalance, account.Version)
		if err == repository.ErrVersionConflict {
			log.WithField("attempt", i+1).Warn("Debit hit a version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		account.Balance = newBalance
		account.Version++

		s.notifier.Send(s.topic, fmt.Sprintf("ACCOUNT_DEBITED:%d,amount=%s", id, amount.String()))
		return account, nil
	}

	return nil, ErrConcurrentUpdate
}

// CreditAccount adds a positive amount to the balance. There is no upper
// bound on the resulting balance.
func (s *AccountService) CreditAccount(id int64, amount decimal.Decimal) (*model.Account, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	log := logger.Log.WithFields(logrus.Fields{
		"account_id": id,
		"amount":     amount.String(),
	})
	log.Info("Credit request received")

	for i := 0; i < balanceUpdateAttempts; i++ {
		account, err := s.getAccount(id)
		if err != nil {
			return nil, err
		}

		newBalance := account.Balance.Add(amount)
		err = s.repo.UpdateBalance(id, newBalance, account.Version)
		if err == repository.ErrVersionConflict {
			log.WithField("attempt", i+1).Warn("Credit hit a version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		account.Balance = newBalance
		account.Version++

		s.notifier.Send(s.topic, fmt.Sprintf("ACCOUNT_CREDITED:%d,amount=%s", id, amount.String()))
		return account, nil
	}

	return nil, ErrConcurrentUpdate
}

// GetAccountByID retrieves a single account or ErrAccountNotFound.
func (s *AccountService) GetAccountByID(id int64) (*model.Account, error) {
	return s.getAccount(id)
}

// GetAccountByNumber retrieves a single account by its number.
func (s *AccountService) GetAccountByNumber(number string) (*model.Account, error) {
	account, err := s.repo.GetAccountByNumber(number)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	return account, err
}

// GetAllAccounts retrieves every account. Admin use case.
func (s *AccountService) GetAllAccounts() ([]*model.Account, error) {
	return s.repo.GetAllAccounts()
}

// GetAccountsByUserID lists a user's accounts; an unknown user yields an
// empty list, not an error.
func (s *AccountService) GetAccountsByUserID(userID int64) ([]*model.Account, error) {
	return s.repo.GetAccountsByUserID(userID)
}

// GetAccountsByCurrency lists accounts held in a currency.
func (s *AccountService) GetAccountsByCurrency(code string) ([]*model.Account, error) {
	return s.repo.GetAccountsByCurrency(code)
}

// GetAccountsByUserAndCurrency lists a user's accounts in one currency.
func (s *AccountService) GetAccountsByUserAndCurrency(userID int64, code string) ([]*model.Account, error) {
	return s.repo.GetAccountsByUserAndCurrency(userID, code)
}

// GetAccountsOpenedAfter lists accounts opened after a date.
func (s *AccountService) GetAccountsOpenedAfter(date time.Time) ([]*model.Account, error) {
	return s.repo.GetAccountsOpenedAfter(date)
}

// GetAccountsOpenedBefore lists accounts opened before a date.
func (s *AccountService) GetAccountsOpenedBefore(date time.Time) ([]*model.Account, error) {
	return s.repo.GetAccountsOpenedBefore(date)
}

// GetAccountsOpenedBetween lists accounts opened within an inclusive range.
func (s *AccountService) GetAccountsOpenedBetween(start, end time.Time) ([]*model.Account, error) {
	return s.repo.GetAccountsOpenedBetween(start, end)
}

// GetAccountsWithBalanceGreaterThan lists accounts above a threshold.
func (s *AccountService) GetAccountsWithBalanceGreaterThan(amount decimal.Decimal) ([]*model.Account, error) {
	return s.repo.GetAccountsWithBalanceGreaterThan(amount)
}

// GetAccountsWithBalanceLessThan lists accounts below a threshold.
func (s *AccountService) GetAccountsWithBalanceLessThan(amount decimal.Decimal) ([]*model.Account, error) {
	return s.repo.GetAccountsWithBalanceLessThan(amount)
}

func (s *AccountService) getAccount(id int64) (*model.Account, error) {
	account, err := s.repo.GetAccountByID(id)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
