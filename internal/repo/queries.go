package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries provê acesso a usuários, papéis e refresh tokens.
type Queries struct {
	pool *pgxpool.Pool
}

// New cria o conjunto de queries sobre o pool compartilhado.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const userColumns = `id, name, email, username, password_hash, image_url, role_id, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.PasswordHash, &u.ImageURL, &u.RoleID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// GetUserByID busca usuário pelo identificador canônico.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail busca usuário pelo e-mail normalizado.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

// GetUserByIdentifier aceita e-mail ou username no login por credenciais.
func (q *Queries) GetUserByIdentifier(ctx context.Context, identifier string) (User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	row := q.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR username = $1`, identifier)
	return scanUser(row)
}

// CreateUserParams agrupa os campos aceitos no cadastro.
type CreateUserParams struct {
	Name         *string
	Email        *string
	Username     *string
	PasswordHash *string
	ImageURL     *string
	RoleID       *uuid.UUID
}

// CreateUser insere um novo usuário.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.pool.QueryRow(ctx, `
        INSERT INTO users (name, email, username, password_hash, image_url, role_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+userColumns,
		arg.Name, arg.Email, arg.Username, arg.PasswordHash, arg.ImageURL, arg.RoleID)

	user, err := scanUser(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return User{}, uniqueUserConflict(err, arg.Email, arg.Username)
		}
		return User{}, err
	}
	return user, nil
}

// UpdateUserProfileParams descreve edição parcial do perfil.
// Username só é aplicado se ainda não estiver definido (imutável após set).
type UpdateUserProfileParams struct {
	Name         *string
	Email        *string
	Username     *string
	PasswordHash *string
}

// UpdateUserProfile aplica os campos não nulos ao usuário.
func (q *Queries) UpdateUserProfile(ctx context.Context, id uuid.UUID, arg UpdateUserProfileParams) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE users SET
            name          = COALESCE($2, name),
            email         = COALESCE($3, email),
            username      = CASE WHEN username IS NULL THEN COALESCE($4, username) ELSE username END,
            password_hash = COALESCE($5, password_hash),
            updated_at    = now()
        WHERE id = $1`,
		id, arg.Name, arg.Email, arg.Username, arg.PasswordHash)
	if err != nil {
		if IsUniqueViolation(err) {
			return uniqueUserConflict(err, arg.Email, arg.Username)
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func uniqueUserConflict(err error, email, username *string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		if email != nil {
			return &ConflictError{Field: "email", Value: *email}
		}
	case "users_username_key":
		if username != nil {
			return &ConflictError{Field: "username", Value: *username}
		}
	}
	return err
}

// GetUserRoleName resolve o papel canônico direto do banco. Usuário sem
// papel devolve string vazia (distinto de usuário inexistente).
func (q *Queries) GetUserRoleName(ctx context.Context, userID uuid.UUID) (string, error) {
	var name *string
	err := q.pool.QueryRow(ctx, `
        SELECT r.name
        FROM users u
        LEFT JOIN roles r ON r.id = u.role_id
        WHERE u.id = $1`, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if name == nil {
		return "", nil
	}
	return *name, nil
}

// GetRoleByName busca papel pelo nome.
func (q *Queries) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var r Role
	err := q.pool.QueryRow(ctx, `
        SELECT id, name, description, created_at FROM roles WHERE name = $1`,
		strings.ToLower(strings.TrimSpace(name))).
		Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return r, nil
}

// EnsureRole devolve o papel, criando-o se necessário (lazy default).
func (q *Queries) EnsureRole(ctx context.Context, name, description string) (Role, error) {
	var r Role
	err := q.pool.QueryRow(ctx, `
        INSERT INTO roles (name, description)
        VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name, description, created_at`,
		strings.ToLower(strings.TrimSpace(name)), description).
		Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt)
	if err != nil {
		return Role{}, err
	}
	return r, nil
}

// ListRoles devolve os papéis cadastrados.
func (q *Queries) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := q.pool.Query(ctx, `SELECT id, name, description, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// AssignRoleIfMissing vincula o papel apenas se o usuário ainda não tem um.
// Um único UPDATE condicionado torna a operação idempotente sob corrida:
// duas tentativas concorrentes resultam em um único vínculo.
func (q *Queries) AssignRoleIfMissing(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE users SET role_id = $2, updated_at = now()
        WHERE id = $1 AND role_id IS NULL`, userID, roleID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// SetUserRole substitui o papel do usuário (ação administrativa).
func (q *Queries) SetUserRole(ctx context.Context, userID, roleID uuid.UUID) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE users SET role_id = $2, updated_at = now() WHERE id = $1`, userID, roleID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearUserRole remove o vínculo de papel sem apagar o usuário, preservando
// as referências do trilho de auditoria.
func (q *Queries) ClearUserRole(ctx context.Context, userID uuid.UUID) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE users SET role_id = NULL, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers devolve usuários com papel resolvido, para o painel admin.
func (q *Queries) ListUsers(ctx context.Context) ([]UserWithRole, error) {
	rows, err := q.pool.Query(ctx, `
        SELECT u.id, u.name, u.email, u.username, u.password_hash, u.image_url, u.role_id, u.created_at, u.updated_at, r.name
        FROM users u
        LEFT JOIN roles r ON r.id = u.role_id
        ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserWithRole
	for rows.Next() {
		var u UserWithRole
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.PasswordHash, &u.ImageURL, &u.RoleID, &u.CreatedAt, &u.UpdatedAt, &u.RoleName); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// InsertRefreshTokenParams agrupa os campos do refresh persistido.
type InsertRefreshTokenParams struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// InsertRefreshToken grava um novo refresh token.
func (q *Queries) InsertRefreshToken(ctx context.Context, arg InsertRefreshTokenParams) (RefreshToken, error) {
	var t RefreshToken
	err := q.pool.QueryRow(ctx, `
        INSERT INTO refresh_tokens (id, subject, token_hash, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, subject, token_hash, expires_at, created_at, revoked`,
		arg.ID, arg.Subject, arg.TokenHash, arg.ExpiresAt, arg.CreatedAt).
		Scan(&t.ID, &t.Subject, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.Revoked)
	if err != nil {
		return RefreshToken{}, err
	}
	return t, nil
}

// GetRefreshTokenByHash busca refresh pelo hash.
func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error) {
	var t RefreshToken
	err := q.pool.QueryRow(ctx, `
        SELECT id, subject, token_hash, expires_at, created_at, revoked
        FROM refresh_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&t.ID, &t.Subject, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshToken{}, ErrNotFound
		}
		return RefreshToken{}, err
	}
	return t, nil
}

// RevokeRefreshToken marca o refresh como revogado.
func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InvalidateOtherRefreshTokens revoga sessões antigas do mesmo subject.
func (q *Queries) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	_, err := q.pool.Exec(ctx, `
        UPDATE refresh_tokens SET revoked = TRUE
        WHERE subject = $1 AND token_hash <> $2 AND NOT revoked`, subject, keepHash)
	return err
}
