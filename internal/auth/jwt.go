package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken é retornado quando o token não passa na validação.
	ErrInvalidToken = errors.New("token inválido")
	// ErrInvalidClaims indica claims estruturalmente incompletas.
	ErrInvalidClaims = errors.New("claims inválidas")
)

// Claims representa as informações presentes no token de sessão.
//
// Role é uma cópia do papel canônico do usuário no banco; RoleRefreshedAt
// (unix) marca a última revalidação dessa cópia. Quem decide quando
// revalidar é o SessionService, nunca o middleware.
type Claims struct {
	Role            string `json:"role"`
	RoleRefreshedAt int64  `json:"role_refreshed_at"`
	jwt.RegisteredClaims
}

// Validate garante o formato mínimo esperado após mint, refresh ou leitura.
func (c *Claims) Validate() error {
	if c == nil || strings.TrimSpace(c.Subject) == "" {
		return ErrInvalidClaims
	}
	if _, err := uuid.Parse(c.Subject); err != nil {
		return ErrInvalidClaims
	}
	return nil
}

// SubjectID devolve o subject como UUID.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// RoleAge informa há quanto tempo o papel embutido não é revalidado.
func (c *Claims) RoleAge(now time.Time) time.Duration {
	if c.RoleRefreshedAt <= 0 {
		return time.Duration(1<<62 - 1)
	}
	return now.Sub(time.Unix(c.RoleRefreshedAt, 0))
}

// JWTManager encapsula geração e validação de tokens.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL}
}

// Sign cria um JWT HS256 a partir de claims já preenchidas.
func (m *JWTManager) Sign(claims *Claims) (string, error) {
	if err := claims.Validate(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(m.accessTTL))
	if claims.RegisteredClaims.ID == "" {
		claims.RegisteredClaims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAndValidate verifica assinatura, expiração e formato das claims.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := claims.Validate(); err != nil {
		return nil, err
	}

	return claims, nil
}
