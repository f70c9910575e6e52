package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL 令牌默认有效期
const DefaultTTL = time.Hour

// ErrMissingToken 请求未携带令牌
var ErrMissingToken = errors.New("missing bearer token")

type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
}

func NewAuthToken(secretKey string) *AuthToken {
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       DefaultTTL,
	}
}

// WithTTL 设置签发令牌的有效期
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl > 0 {
		at.ttl = ttl
	}
	return at
}

func (at *AuthToken) GenerateToken(clientID string) (string, error) {
	if len(at.secretKey) == 0 {
		return "", errors.New("secret key cannot be empty")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"client_id": clientID,
		"exp":       now.Add(at.ttl).Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken 校验签名和有效期，返回令牌中的客户端ID
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	if at == nil {
		return "", errors.New("AuthToken instance is nil")
	}
	if len(at.secretKey) == 0 {
		return "", errors.New("secret key is not initialized")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return at.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	clientID, ok := claims["client_id"].(string)
	if !ok || clientID == "" {
		return "", errors.New("invalid client_id in claims")
	}

	return clientID, nil
}

// Authorizer 按配置校验请求令牌：静态令牌直接放行，其余按JWT校验
type Authorizer struct {
	tokens  *AuthToken
	static  map[string]struct{}
	allowed map[string]struct{}
}

// NewAuthorizer allowedClients 为空时不限制JWT中的客户端ID
func NewAuthorizer(secret string, staticTokens []string, allowedClients []string) *Authorizer {
	a := &Authorizer{
		tokens:  NewAuthToken(secret),
		static:  make(map[string]struct{}, len(staticTokens)),
		allowed: make(map[string]struct{}, len(allowedClients)),
	}
	for _, t := range staticTokens {
		if t != "" {
			a.static[t] = struct{}{}
		}
	}
	for _, c := range allowedClients {
		a.allowed[c] = struct{}{}
	}
	return a
}

// Authorize 校验 Authorization 头，返回客户端ID
func (a *Authorizer) Authorize(header string) (string, error) {
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", ErrMissingToken
	}

	if _, ok := a.static[token]; ok {
		return "static", nil
	}

	clientID, err := a.tokens.VerifyToken(token)
	if err != nil {
		return "", err
	}
	if len(a.allowed) > 0 {
		if _, ok := a.allowed[clientID]; !ok {
			return "", fmt.Errorf("client %s is not allowed", clientID)
		}
	}
	return clientID, nil
}
