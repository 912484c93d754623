package router

import (
	"net/http"

	"go-account-service/handler"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "go-account-service/docs"
)

func NewRouter(accountHandler *handler.AccountHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	accounts := http.NewServeMux()
	accounts.Handle("POST /accounts", handler.ErrorHandlingMiddleware(accountHandler.CreateAccount))
	accounts.Handle("GET /accounts", handler.ErrorHandlingMiddleware(accountHandler.GetAllAccounts))
	accounts.Handle("GET /accounts/{id}", handler.ErrorHandlingMiddleware(accountHandler.GetAccountByID))
	accounts.Handle("GET /accounts/{id}/balance", handler.ErrorHandlingMiddleware(accountHandler.GetAccountBalance))
	accounts.Handle("GET /accounts/{id}/number", handler.ErrorHandlingMiddleware(accountHandler.GetAccountNumber))
	accounts.Handle("PUT /accounts/{id}/debit", handler.ErrorHandlingMiddleware(accountHandler.DebitAccount))
	accounts.Handle("PUT /accounts/{id}/credit", handler.ErrorHandlingMiddleware(accountHandler.CreditAccount))
	accounts.Handle("GET /accounts/byNumber/{accountNumber}", handler.ErrorHandlingMiddleware(accountHandler.GetAccountByNumber))
	accounts.Handle("GET /accounts/user/{userId}", handler.ErrorHandlingMiddleware(accountHandler.ListAccountsByUser))
	accounts.Handle("GET /accounts/user/{userId}/currency/{code}", handler.ErrorHandlingMiddleware(accountHandler.ListAccountsByUserAndCurrency))
	accounts.Handle("GET /accounts/currency/{code}", handler.ErrorHandlingMiddleware(accountHandler.ListAccountsByCurrency))
	accounts.Handle("GET /accounts/opened-after/{date}", handler.ErrorHandlingMiddleware(accountHandler.ListAccountsOpenedAfter))
	accounts.Handle("GET /accounts/opened-before/{date}", handler.ErrorHandlingMiddleware(accountHandler.ListAccountsOpenedBefore))
	accounts.Handle("GET /accounts/opened-between", handler.ErrorHandlingMiddleware(accountHandler.ListAccountsOpenedBetween))
	accounts.Handle("GET /accounts/balance/greater-than", handler.ErrorHandlingMiddleware(accountHandler.ListAccountsWithBalanceGreaterThan))
	accounts.Handle("GET /accounts/balance/less-than", handler.ErrorHandlingMiddleware(accountHandler.ListAccountsWithBalanceLessThan))

	mux.Handle("/accounts", handler.AuthMiddleware(accounts))
	mux.Handle("/accounts/", handler.AuthMiddleware(accounts))

	return mux
}
