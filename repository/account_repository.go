package repository

import (
	"database/sql"
	"errors"
	"time"

	"go-account-service/logger"
	"go-account-service/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrVersionConflict is returned by UpdateBalance when the row's version no
// longer matches the one read: another writer got there first.
var ErrVersionConflict = errors.New("account was modified concurrently")

// IAccountRepository defines the contract for account database operations.
type IAccountRepository interface {
	CreateAccount(account *model.Account) error
	GetAccountByID(id int64) (*model.Account, error)
	GetAccountByNumber(number string) (*model.Account, error)
	GetAllAccounts() ([]*model.Account, error)
	GetAccountsByUserID(userID int64) ([]*model.Account, error)
	GetAccountsByCurrency(code string) ([]*model.Account, error)
	GetAccountsByUserAndCurrency(userID int64, code string) ([]*model.Account, error)
	GetAccountsOpenedAfter(date time.Time) ([]*model.Account, error)
	GetAccountsOpenedBefore(date time.Time) ([]*model.Account, error)
	GetAccountsOpenedBetween(start, end time.Time) ([]*model.Account, error)
	GetAccountsWithBalanceGreaterThan(amount decimal.Decimal) ([]*model.Account, error)
	GetAccountsWithBalanceLessThan(amount decimal.Decimal) ([]*model.Account, error)
	UpdateBalance(id int64, newBalance decimal.Decimal, expectedVersion int64) error
}

const accountColumns = `id, account_number, user_id, account_type, currency_code, opening_date, balance, version`

// AccountRepository implements IAccountRepository on PostgreSQL.
type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

// CreateAccount adds a new account to the database.
func (r *AccountRepository) CreateAccount(account *model.Account) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":        account.UserID,
		"account_number": account.AccountNumber,
		"currency_code":  account.CurrencyCode,
	})
	log.Info("Executing query to create a new account")

	query := `INSERT INTO accounts (account_number, user_id, account_type, currency_code, opening_date, balance)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, version`
	err := r.DB.QueryRow(query,
		account.AccountNumber,
		account.UserID,
		string(account.AccountType),
		account.CurrencyCode,
		account.OpeningDate,
		account.Balance,
	).Scan(&account.ID, &account.Version)
	if err != nil {
		log.WithError(err).Error("Failed to execute create account query")
		return err
	}
	return nil
}

// GetAccountByID retrieves a single account. sql.ErrNoRows is passed through
// so the service can translate it into a not-found error.
func (r *AccountRepository) GetAccountByID(id int64) (*model.Account, error) {
	log := logger.Log.WithField("account_id", id)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := r.scanOne(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Info("Account not found")
		} else {
			log.WithError(err).Error("Failed to execute get account by ID query")
		}
		return nil, err
	}
	return account, nil
}

// GetAccountByNumber retrieves a single account by its 12-digit number.
func (r *AccountRepository) GetAccountByNumber(number string) (*model.Account, error) {
	log := logger.Log.WithField("account_number", number)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	account, err := r.scanOne(r.DB.QueryRow(query, number))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Info("Account not found by number")
		} else {
			log.WithError(err).Error("Failed to execute get account by number query")
		}
		return nil, err
	}
	return account, nil
}

// GetAllAccounts retrieves all accounts from the database. For admin use only.
func (r *AccountRepository) GetAllAccounts() ([]*model.Account, error) {
	logger.Log.Info("Executing query to get all accounts")
	return r.queryAccounts(`SELECT ` + accountColumns + ` FROM accounts`)
}

// GetAccountsByUserID retrieves all accounts for a specific user.
func (r *AccountRepository) GetAccountsByUserID(userID int64) ([]*model.Account, error) {
	logger.Log.WithField("user_id", userID).Info("Executing query to get accounts by user ID")
	return r.queryAccounts(`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
}

// GetAccountsByCurrency retrieves all accounts held in a currency.
func (r *AccountRepository) GetAccountsByCurrency(code string) ([]*model.Account, error) {
	logger.Log.WithField("currency_code", code).Info("Executing query to get accounts by currency")
	return r.queryAccounts(`SELECT `+accountColumns+` FROM accounts WHERE currency_code = $1`, code)
}

// GetAccountsByUserAndCurrency narrows a user's accounts to one currency.
func (r *AccountRepository) GetAccountsByUserAndCurrency(userID int64, code string) ([]*model.Account, error) {
	logger.Log.WithFields(logrus.Fields{
		"user_id":       userID,
		"currency_code": code,
	}).Info("Executing query to get accounts by user and currency")
	return r.queryAccounts(`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 AND currency_code = $2`, userID, code)
}

// GetAccountsOpenedAfter retrieves accounts opened strictly after a date.
func (r *AccountRepository) GetAccountsOpenedAfter(date time.Time) ([]*model.Account, error) {
	logger.Log.WithField("after", date.Format("2006-01-02")).Info("Executing query to get accounts opened after date")
	return r.queryAccounts(`SELECT `+accountColumns+` FROM accounts WHERE opening_date > $1`, date)
}

// GetAccountsOpenedBefore retrieves accounts opened strictly before a date.
func (r *AccountRepository) GetAccountsOpenedBefore(date time.Time) ([]*model.Account, error) {
	logger.Log.WithField("before", date.Format("2006-01-02")).Info("Executing query to get accounts opened before date")
	return r.queryAccounts(`SELECT `+accountColumns+` FROM accounts WHERE opening_date < $1`, date)
}

// GetAccountsOpenedBetween retrieves accounts opened within an inclusive range.
func (r *AccountRepository) GetAccountsOpenedBetween(start, end time.Time) ([]*model.Account, error) {
	logger.Log.WithFields(logrus.Fields{
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	}).Info("Executing query to get accounts opened between dates")
	return r.queryAccounts(`SELECT `+accountColumns+` FROM accounts WHERE opening_date BETWEEN $1 AND $2`, start, end)
}

// GetAccountsWithBalanceGreaterThan retrieves accounts above a balance threshold.
func (r *AccountRepository) GetAccountsWithBalanceGreaterThan(amount decimal.Decimal) ([]*model.Account, error) {
	logger.Log.WithField("amount", amount.String()).Info("Executing query to get accounts with balance greater than")
	return r.queryAccounts(`SELECT `+accountColumns+` FROM accounts WHERE balance > $1`, amount)
}

// GetAccountsWithBalanceLessThan retrieves accounts below a balance threshold.
func (r *AccountRepository) GetAccountsWithBalanceLessThan(amount decimal.Decimal) ([]*model.Account, error) {
	logger.Log.WithField("amount", amount.String()).Info("Executing query to get accounts with balance less than")
	return r.queryAccounts(`SELECT `+accountColumns+` FROM accounts WHERE balance < $1`, amount)
}

// UpdateBalance writes a new balance if and only if the row version still
// matches the one the caller read. Zero rows affected means a concurrent
// writer won the race.
func (r *AccountRepository) UpdateBalance(id int64, newBalance decimal.Decimal, expectedVersion int64) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id":  id,
		"new_balance": newBalance.String(),
		"version":     expectedVersion,
	})
	log.Info("Executing query to update account balance")

	query := `UPDATE accounts SET balance = $1, version = version + 1 WHERE id = $2 AND version = $3`
	res, err := r.DB.Exec(query, newBalance, id, expectedVersion)
	if err != nil {
		log.WithError(err).Error("Failed to execute update account balance query")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read affected rows after balance update")
		return err
	}
	if affected == 0 {
		log.Warn("Balance update lost the version race")
		return ErrVersionConflict
	}
	return nil
}

func (r *AccountRepository) scanOne(row *sql.Row) (*model.Account, error) {
	var acc model.Account
	var accountType string
	err := row.Scan(
		&acc.ID,
		&acc.AccountNumber,
		&acc.UserID,
		&accountType,
		&acc.CurrencyCode,
		&acc.OpeningDate,
		&acc.Balance,
		&acc.Version,
	)
	if err != nil {
		return nil, err
	}
	acc.AccountType = model.AccountType(accountType)
	return &acc, nil
}

func (r *AccountRepository) queryAccounts(query string, args ...interface{}) ([]*model.Account, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute account list query")
		return nil, err
	}
	defer rows.Close()

	accounts := []*model.Account{}
	for rows.Next() {
		var acc model.Account
		var accountType string
		if err := rows.Scan(
			&acc.ID,
			&acc.AccountNumber,
			&acc.UserID,
			&accountType,
			&acc.CurrencyCode,
			&acc.OpeningDate,
			&acc.Balance,
			&acc.Version,
		); err != nil {
			logger.Log.WithError(err).Error("Failed to scan account row")
			return nil, err
		}
		acc.AccountType = model.AccountType(accountType)
		accounts = append(accounts, &acc)
	}
	return accounts, rows.Err()
}
