package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the caller roles recognised on protected routes.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStaff   UserRole = "STAFF"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens. Tokens are issued
// by the portal's auth layer; this service only validates them.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	Role           UserRole `json:"role"`
	Email          string   `json:"email"`
	DepartmentName string   `json:"department_name,omitempty"`
	jwt.RegisteredClaims
}
