package mockapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"
)

// Claims are the claims of issued bearer tokens.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
	UserID uint `json:"user_id"`
}

func (s *Server) issueToken(u *user) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(TokenTTL)

	claims := &Claims{
		UserID:   u.id,
		Username: u.username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "gsdash-mock-api",
			Subject:   fmt.Sprintf("user:%d", u.id),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return token, expiresAt, nil
}

func (s *Server) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// authMiddleware requires a valid bearer token and stores its claims in the context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			abortError(c, http.StatusUnauthorized, "Unauthorized", "authorization header must carry a bearer token")
			return
		}

		claims, err := s.parseToken(tokenString)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get("claims")
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)

	return claims, ok
}

// hashPassword derives an argon2id key and encodes it as "salt$hash" in raw base64.
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	return base64.RawStdEncoding.EncodeToString(salt) + "$" + base64.RawStdEncoding.EncodeToString(hash), nil
}

func verifyPassword(password, encoded string) bool {
	saltEnc, hashEnc, ok := strings.Cut(encoded, "$")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltEnc)
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(hashEnc)
	if err != nil {
		return false
	}

	actual := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, uint32(len(expected)))

	return subtle.ConstantTimeCompare(actual, expected) == 1
}
