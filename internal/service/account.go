package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/kurufix/api/internal/auth"
	"github.com/kurufix/api/internal/repo"
	"github.com/kurufix/api/internal/util"
)

var (
	// ErrPasswordMismatch indica confirmação de senha divergente.
	ErrPasswordMismatch = errors.New("confirmação de senha não confere")
)

type accountRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	CreateUser(ctx context.Context, arg repo.CreateUserParams) (repo.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, arg repo.UpdateUserProfileParams) error
	EnsureRole(ctx context.Context, name, description string) (repo.Role, error)
}

// AccountService cuida de cadastro e edição de perfil.
type AccountService struct {
	repo accountRepository
}

// NewAccountService cria nova instância.
func NewAccountService(r accountRepository) *AccountService {
	return &AccountService{repo: r}
}

// RegisterInput agrupa os campos do cadastro por credenciais.
type RegisterInput struct {
	Name     string
	Email    string
	Username string
	Password string
}

// Register cria o usuário já com o papel padrão viewer. Exige senha e ao
// menos um identificador (e-mail ou username); unicidade é delegada ao
// banco e aflora como ConflictError.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (repo.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))
	name := strings.TrimSpace(input.Name)

	if email == "" && username == "" {
		return repo.User{}, &util.ValidationError{Field: "email", Message: "email ou username obrigatório"}
	}
	if email != "" {
		if err := util.ValidateEmail(email); err != nil {
			return repo.User{}, err
		}
	}
	if err := util.ValidatePassword(input.Password); err != nil {
		return repo.User{}, err
	}

	hash, err := auth.Hash(input.Password)
	if err != nil {
		return repo.User{}, err
	}

	viewer, err := s.repo.EnsureRole(ctx, repo.RoleViewer, "Default viewer role with read-only access")
	if err != nil {
		return repo.User{}, err
	}

	params := repo.CreateUserParams{PasswordHash: &hash, RoleID: &viewer.ID}
	if name != "" {
		params.Name = &name
	}
	if email != "" {
		params.Email = &email
	}
	if username != "" {
		params.Username = &username
	}

	return s.repo.CreateUser(ctx, params)
}

// UpdateProfileInput descreve a edição self-service do perfil.
type UpdateProfileInput struct {
	Name            string
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// UpdateProfile aplica apenas os campos preenchidos. Username é imutável
// depois de definido; troca de senha exige confirmação idêntica.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) error {
	var params repo.UpdateUserProfileParams

	if name := strings.TrimSpace(input.Name); name != "" {
		params.Name = &name
	}
	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" {
		if err := util.ValidateEmail(email); err != nil {
			return err
		}
		params.Email = &email
	}
	if username := strings.ToLower(strings.TrimSpace(input.Username)); username != "" {
		params.Username = &username
	}
	if input.Password != "" {
		if input.Password != input.ConfirmPassword {
			return ErrPasswordMismatch
		}
		if err := util.ValidatePassword(input.Password); err != nil {
			return err
		}
		hash, err := auth.Hash(input.Password)
		if err != nil {
			return err
		}
		params.PasswordHash = &hash
	}

	if params.Name == nil && params.Email == nil && params.Username == nil && params.PasswordHash == nil {
		return nil
	}

	return s.repo.UpdateUserProfile(ctx, userID, params)
}
