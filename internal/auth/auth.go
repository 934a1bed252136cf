package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret []byte

// Init задает секрет проверки bearer-токенов. Выпуск токенов
// остается за внешним сервисом аутентификации, здесь только
// проверка подписи и извлечение тенанта с пользователем.
func Init(cfg *Config) {
	secret = []byte(cfg.Secret)
}

// Claims содержит данные вызывающего из проверенного токена
type Claims struct {
	TenantID int64
	UserID   string
	Name     string
}

// NewToken подписывает bearer-токен с данными вызывающего
func NewToken(tenantID int64, userID, name string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenant_id": tenantID,
		"user_id":   userID,
		"name":      name,
		"exp":       time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// VerifyToken проверяет заголовок Authorization и возвращает
// тенанта и пользователя из подписанного токена
func VerifyToken(r *http.Request) (*Claims, error) {
	authToken := r.Header.Get("Authorization")
	if authToken == "" {
		return nil, fmt.Errorf("no authorization header")
	}
	authToken = strings.TrimPrefix(authToken, "Bearer ")

	return ParseToken(authToken)
}

// ParseToken проверяет подпись токена и извлекает claims
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	tenantID, ok := mapClaims["tenant_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("token has no tenant_id claim")
	}
	userID, ok := mapClaims["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("token has no user_id claim")
	}
	name, _ := mapClaims["name"].(string)

	return &Claims{
		TenantID: int64(tenantID),
		UserID:   userID,
		Name:     name,
	}, nil
}
