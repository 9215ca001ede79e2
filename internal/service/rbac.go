package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrForbidden indica ausência de permissão.
	ErrForbidden = errors.New("acesso negado")
)

type roleReader interface {
	GetUserRoleName(ctx context.Context, userID uuid.UUID) (string, error)
}

// RBACService verifica papéis direto no banco. É a fronteira real de
// autorização para escritas: a claim do token pode estar desatualizada
// dentro da janela de staleness, o banco nunca.
type RBACService struct {
	repo roleReader
}

// NewRBACService cria nova instância.
func NewRBACService(r roleReader) *RBACService {
	return &RBACService{repo: r}
}

// RequireRole exige que o usuário possua um dos papéis informados,
// consultando o papel canônico no momento da chamada.
func (s *RBACService) RequireRole(ctx context.Context, userID uuid.UUID, roles ...string) error {
	current, err := s.repo.GetUserRoleName(ctx, userID)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if strings.EqualFold(current, strings.TrimSpace(role)) {
			return nil
		}
	}
	return ErrForbidden
}
