package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/swenlog/carrier-directory/internal/logging"
)

type account struct {
	user User
	hash []byte
}

type service struct {
	accounts map[string]account
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates a new auth service. Passwords are kept only as bcrypt
// hashes.
func NewService(secret string, ttl time.Duration, accounts []Account) (Service, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	s := &service{
		accounts: make(map[string]account, len(accounts)),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, a := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", a.Username, err)
		}
		s.accounts[a.Username] = account{user: a.User, hash: hash}
	}
	return s, nil
}

func (s *service) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	acc, ok := s.accounts[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		logging.FromContext(ctx).WithField("username", username).Warn("login rejected")
		return nil, ErrInvalidCredentials
	}

	expirationTime := s.now().Add(s.ttl)
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   acc.user.ID,
			IssuedAt:  s.now().Unix(),
			ExpiresAt: expirationTime.Unix(),
		},
		Name:  acc.user.Name,
		Email: acc.user.Email,
		Role:  acc.user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &LoginResponse{Token: tokenString, ExpiresAt: expirationTime.Unix(), User: acc.user}, nil
}

func (s *service) Verify(tokenString string) (*User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &User{ID: claims.Subject, Name: claims.Name, Email: claims.Email, Role: claims.Role}, nil
}
