package auth

import (
	"context"
	"errors"

	"github.com/dgrijalva/jwt-go"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// User is the identity carried by a session token.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Account is a configured login.
type Account struct {
	Username string
	Password string
	User     User
}

// Claims are the JWT claims issued at login. The subject is the user id.
type Claims struct {
	jwt.StandardClaims
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	User      User   `json:"user"`
}

// Service defines the interface for authentication-related business logic.
type Service interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	// Verify parses a signed token and returns the user it was issued for.
	Verify(token string) (*User, error)
}

// DemoAccounts returns the two built-in logins.
func DemoAccounts(adminUser, adminPass, userUser, userPass string) []Account {
	return []Account{
		{
			Username: adminUser,
			Password: adminPass,
			User:     User{ID: "1", Name: "Admin User", Email: "admin@carrierlookup.com", Role: RoleAdmin},
		},
		{
			Username: userUser,
			Password: userPass,
			User:     User{ID: "2", Name: "Test User", Email: "user@carrierlookup.com", Role: RoleUser},
		},
	}
}
