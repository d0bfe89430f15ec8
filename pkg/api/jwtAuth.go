package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"modbusgw/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "modbus-gateway"

// JwtAuth guards the invocation API with HS256 bearer tokens for a single
// configured operator account.
type JwtAuth struct {
	jwtSecret     []byte
	adminUsername string
	adminPassHash []byte
	sessionTTL    time.Duration
	now           func() time.Time
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Auth creates a new JwtAuth with the provided configuration.
func Auth(cfg *config.Config) *JwtAuth {
	ttl := time.Duration(cfg.SessionDurationHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JwtAuth{
		jwtSecret:     []byte(cfg.JWTSecret),
		adminUsername: cfg.AdminUser,
		adminPassHash: []byte(cfg.AdminHash),
		sessionTTL:    ttl,
		now:           time.Now,
	}
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler checks the operator credentials and issues a session token.
func (jwtAuth *JwtAuth) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Username != jwtAuth.adminUsername ||
		bcrypt.CompareHashAndPassword(jwtAuth.adminPassHash, []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := jwtAuth.issueToken(req.Username)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to sign token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiresAt.UTC().Format(time.RFC3339)})
}

func (jwtAuth *JwtAuth) issueToken(username string) (string, time.Time, error) {
	issuedAt := jwtAuth.now()
	expiresAt := issuedAt.Add(jwtAuth.sessionTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(jwtAuth.jwtSecret)
	return signed, expiresAt, err
}

// JWTMiddleware rejects requests without a valid bearer token.
func (jwtAuth *JwtAuth) JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, tokenString, found := strings.Cut(c.GetHeader("Authorization"), " ")
		if !found || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
			respondError(c, http.StatusUnauthorized, "bearer token required")
			return
		}

		claims := &sessionClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtAuth.jwtSecret, nil
		})
		if err != nil || !token.Valid || claims.Issuer != tokenIssuer {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// SecurityHeaders returns a middleware that sets security headers
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	}
}
