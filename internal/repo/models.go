package repo

import (
	"time"

	"github.com/google/uuid"
)

// Papéis conhecidos do sistema. O banco aceita qualquer linha em roles,
// mas o roteamento só reconhece estes três nomes.
const (
	RoleViewer = "viewer"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// User representa um ator autenticável (credenciais ou Google OAuth).
type User struct {
	ID           uuid.UUID
	Name         *string
	Email        *string
	Username     *string
	PasswordHash *string
	ImageURL     *string
	RoleID       *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role é dado de referência: viewer, staff e admin.
type Role struct {
	ID          uuid.UUID
	Name        string
	Description *string
	CreatedAt   time.Time
}

// UserWithRole agrega usuário e o nome do papel resolvido.
type UserWithRole struct {
	User
	RoleName *string
}

// RefreshToken modela a tabela de refresh tokens.
type RefreshToken struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}
