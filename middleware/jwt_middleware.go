// middleware/jwt_middleware.go
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mansamusa/marketplace_backend/models"
)

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
	jwt.StandardClaims
}

// Valid implements the Claims interface for Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	now := time.Now().Unix()
	if c.ExpiresAt > 0 && now > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && now < c.NotBefore {
		return errors.New("token used before valid")
	}
	return nil
}

// UserLookup loads the account behind a token
type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// JWTManager issues and validates HS256 tokens
type JWTManager struct {
	secret []byte
	expiry time.Duration
	users  UserLookup

	mu        sync.RWMutex
	blacklist map[string]time.Time
}

func NewJWTManager(secret string, expiry time.Duration, users UserLookup) *JWTManager {
	return &JWTManager{
		secret:    []byte(secret),
		expiry:    expiry,
		users:     users,
		blacklist: make(map[string]time.Time),
	}
}

// Issue signs a token for the user
func (m *JWTManager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &JwtCustomClaims{
		UserID:   user.ID.Hex(),
		Email:    user.Email,
		UserType: user.UserType,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: now.Unix(),
		},
	}
	if m.expiry > 0 {
		claims.ExpiresAt = now.Add(m.expiry).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates a raw token outside the echo middleware, as the
// WebSocket handshake does
func (m *JWTManager) Parse(raw string) (*JwtCustomClaims, error) {
	if m.IsTokenBlacklisted(raw) {
		return nil, errors.New("token has been invalidated")
	}
	claims := &JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Authenticate resolves a raw token to an active user's id
func (m *JWTManager) Authenticate(raw string) (primitive.ObjectID, error) {
	claims, err := m.Parse(raw)
	if err != nil {
		return primitive.NilObjectID, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.activeUser(ctx, claims.UserID)
}

// BlacklistToken invalidates a token until it would have expired anyway
func (m *JWTManager) BlacklistToken(token string, expiry time.Time) {
	if expiry.IsZero() {
		expiry = time.Now().Add(m.expiry)
	}
	m.mu.Lock()
	m.blacklist[token] = expiry
	m.mu.Unlock()
}

func (m *JWTManager) IsTokenBlacklisted(token string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.blacklist[token]
	return exists
}

// CleanupBlacklist removes expired tokens from the blacklist every hour
func (m *JWTManager) CleanupBlacklist(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for token, expiry := range m.blacklist {
				if now.After(expiry) {
					delete(m.blacklist, token)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *JWTManager) activeUser(ctx context.Context, userID string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, errors.New("invalid user ID in token")
	}
	if m.users == nil {
		return objID, nil
	}
	user, err := m.users.FindByID(ctx, objID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !user.IsActive {
		return primitive.NilObjectID, errors.New("user account is inactive")
	}
	return objID, nil
}

// Middleware validates the bearer token, rejects blacklisted tokens and
// deactivated accounts, and stores the claims in the context
func (m *JWTManager) Middleware() echo.MiddlewareFunc {
	jwtMiddleware := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey: m.secret,
		Claims:     &JwtCustomClaims{},
		SuccessHandler: func(c echo.Context) {
			claims := GetUserFromToken(c)
			c.Set("userId", claims.UserID)
			c.Set("userType", claims.UserType)
			c.Set("email", claims.Email)
		},
		ErrorHandler: func(err error) error {
			log.Printf("JWT middleware error: %v", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}
			if m.IsTokenBlacklisted(token.Raw) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token has been invalidated")
			}
			if _, err := m.activeUser(c.Request().Context(), GetUserIDFromToken(c)); err != nil {
				c.Logger().Warnf("Rejected token for user %s: %v", GetUserIDFromToken(c), err)
				return echo.NewHTTPError(http.StatusUnauthorized, "User account is inactive")
			}
			return next(c)
		})
	}
}

// GetUserFromToken extracts user information from JWT token
func GetUserFromToken(c echo.Context) *JwtCustomClaims {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil
	}
	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil
	}
	return claims
}

// ExtractUserType safely extracts the user type from the context
func ExtractUserType(c echo.Context) string {
	if userType, ok := c.Get("userType").(string); ok && userType != "" {
		return userType
	}
	if claims := GetUserFromToken(c); claims != nil {
		return claims.UserType
	}
	return ""
}

func GetUserIDFromToken(c echo.Context) string {
	if userID, ok := c.Get("userId").(string); ok && userID != "" {
		return userID
	}
	if claims := GetUserFromToken(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// RawToken returns the bearer token of the request and its expiry
func RawToken(c echo.Context) (string, time.Time) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return "", time.Time{}
	}
	var exp time.Time
	if claims, ok := token.Claims.(*JwtCustomClaims); ok && claims.ExpiresAt > 0 {
		exp = time.Unix(claims.ExpiresAt, 0)
	}
	return token.Raw, exp
}
