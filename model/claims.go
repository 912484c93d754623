package model

import "github.com/golang-jwt/jwt/v5"

// ServiceClaims identifies the upstream caller (api-gateway, batch jobs)
// on service-to-service requests.
type ServiceClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}
