// cmd/main.go
package main

import (
	"go-account-service/app"
)

// @title           Account Service API
// @version         1.0
// @description     CRUD microservice managing bank account records with event notifications.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
