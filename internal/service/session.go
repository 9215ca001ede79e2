package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/kurufix/api/internal/auth"
	"github.com/kurufix/api/internal/repo"
	"github.com/kurufix/api/internal/util"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
	// ErrDomainNotAllowed indica e-mail fora do domínio institucional.
	ErrDomainNotAllowed = errors.New("domínio de e-mail não autorizado")
)

// RefreshFailurePolicy torna explícita a decisão sobre falha de
// revalidação do papel: manter o valor em cache ou propagar o erro.
type RefreshFailurePolicy int

const (
	// KeepStaleOnFailure prioriza disponibilidade: mantém o papel antigo
	// e registra o erro (comportamento padrão).
	KeepStaleOnFailure RefreshFailurePolicy = iota
	// FailOnRefreshError propaga a falha ao chamador.
	FailOnRefreshError
)

// RefreshPolicyFromString traduz o valor de configuração ("keep"/"fail")
// na política correspondente. Valores desconhecidos caem no padrão.
func RefreshPolicyFromString(name string) RefreshFailurePolicy {
	if strings.EqualFold(strings.TrimSpace(name), "fail") {
		return FailOnRefreshError
	}
	return KeepStaleOnFailure
}

type sessionRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	GetUserByEmail(ctx context.Context, email string) (repo.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (repo.User, error)
	CreateUser(ctx context.Context, arg repo.CreateUserParams) (repo.User, error)
	GetUserRoleName(ctx context.Context, userID uuid.UUID) (string, error)
	GetRoleByName(ctx context.Context, name string) (repo.Role, error)
	EnsureRole(ctx context.Context, name, description string) (repo.Role, error)
	AssignRoleIfMissing(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
	SetUserRole(ctx context.Context, userID, roleID uuid.UUID) error
	ClearUserRole(ctx context.Context, userID uuid.UUID) error
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionService é a autoridade de sessão e papel: emite e revalida a
// claim de papel do token, decide admissão de sign-in externo e aplica
// mudanças administrativas de papel.
type SessionService struct {
	repo          sessionRepository
	redis         redisCommander
	jwt           *auth.JWTManager
	allowedDomain string
	window        time.Duration
	refreshTTL    time.Duration
	policy        RefreshFailurePolicy
	now           func() time.Time
}

// NewSessionService cria o serviço com a política de falha informada.
func NewSessionService(r *repo.Queries, redisClient *redis.Client, jwtMgr *auth.JWTManager, allowedDomain string, window, refreshTTL time.Duration, policy RefreshFailurePolicy) *SessionService {
	return &SessionService{
		repo:          r,
		redis:         redisClient,
		jwt:           jwtMgr,
		allowedDomain: strings.ToLower(strings.TrimSpace(allowedDomain)),
		window:        window,
		refreshTTL:    refreshTTL,
		policy:        policy,
		now:           util.Now,
	}
}

// JWT expõe o gerenciador de JWT (útil em middlewares).
func (s *SessionService) JWT() *auth.JWTManager {
	return s.jwt
}

// Profile é o retrato do usuário devolvido em /me e nos logins.
type Profile struct {
	ID       string  `json:"id"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Username *string `json:"username"`
	ImageURL *string `json:"image_url"`
	Role     string  `json:"role"`
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Claims        *auth.Claims
	Subject       uuid.UUID
	Profile       *Profile
	RefreshExpiry time.Time
}

// IssueClaims monta claims novas para o usuário, carregando o papel de
// forma síncrona e atribuindo viewer quando ainda não há vínculo.
func (s *SessionService) IssueClaims(ctx context.Context, userID uuid.UUID) (*auth.Claims, error) {
	role, err := s.ensureDefaultRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	claims := &auth.Claims{
		Role:            role,
		RoleRefreshedAt: s.now().Unix(),
	}
	claims.Subject = userID.String()
	if err := claims.Validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueOrUpdateClaims revalida a claim de papel quando passou da janela
// de staleness ou quando há gatilho explícito de atualização pendente.
// Dentro da janela nada toca o banco. Devolve as claims (atualizadas ou
// não) e se houve mudança que exija re-assinar o token.
func (s *SessionService) IssueOrUpdateClaims(ctx context.Context, claims *auth.Claims) (*auth.Claims, bool, error) {
	if err := claims.Validate(); err != nil {
		return nil, false, err
	}

	forced := s.consumeRoleBump(ctx, claims.Subject)
	if !forced && claims.RoleAge(s.now()) <= s.window {
		return claims, false, nil
	}

	subject, err := claims.SubjectID()
	if err != nil {
		return nil, false, err
	}

	role, err := s.repo.GetUserRoleName(ctx, subject)
	if err != nil {
		if s.policy == FailOnRefreshError && !errors.Is(err, repo.ErrNotFound) {
			return nil, false, err
		}
		// Melhor esforço: papel antigo continua valendo até a próxima janela.
		log.Warn().Err(err).Str("subject", claims.Subject).Msg("refresh de papel falhou; mantendo claim em cache")
		return claims, false, nil
	}

	role = normalizeRole(role)
	if role == "" {
		role = normalizeRole(claims.Role)
		if role == "" {
			role = repo.RoleViewer
		}
	}

	claims.Role = role
	claims.RoleRefreshedAt = s.now().Unix()
	return claims, true, nil
}

// AuthorizeExternalSignIn decide a admissão de um login externo: o
// domínio do e-mail precisa ser o institucional (ou subdomínio dele), ou
// o hint `hd` do provedor precisa bater exatamente.
func (s *SessionService) AuthorizeExternalSignIn(email, hostedDomain string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]

	if domain == s.allowedDomain || strings.HasSuffix(domain, "."+s.allowedDomain) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(hostedDomain), s.allowedDomain)
}

// ExternalSignIn consome a identidade devolvida pelo provedor: valida o
// domínio, materializa o usuário no primeiro acesso e garante o papel
// padrão de forma idempotente.
func (s *SessionService) ExternalSignIn(ctx context.Context, identity *auth.GoogleIdentity) (*LoginResult, error) {
	if !s.AuthorizeExternalSignIn(identity.Email, identity.HostedDomain) {
		log.Warn().Str("email", identity.Email).Str("hd", identity.HostedDomain).Msg("sign-in externo bloqueado")
		return nil, ErrDomainNotAllowed
	}

	user, err := s.repo.GetUserByEmail(ctx, identity.Email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		email := identity.Email
		params := repo.CreateUserParams{Email: &email}
		if identity.Name != "" {
			name := identity.Name
			params.Name = &name
		}
		if identity.Picture != "" {
			pic := identity.Picture
			params.ImageURL = &pic
		}
		user, err = s.repo.CreateUser(ctx, params)
		if err != nil {
			var conflict *repo.ConflictError
			if errors.As(err, &conflict) {
				// Corrida com outro primeiro acesso do mesmo e-mail.
				user, err = s.repo.GetUserByEmail(ctx, identity.Email)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	return s.startSession(ctx, user)
}

// Login autentica por e-mail ou username + senha.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.Verify(password, *user.PasswordHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verificação de senha falhou")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// Refresh troca refresh token por uma sessão nova, revogando a anterior.
func (s *SessionService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if record.Revoked || s.now().After(record.ExpiresAt) {
		return nil, ErrRefreshInvalid
	}

	redisKey := auth.RefreshRedisKey(hash)
	status, err := s.redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUserByID(ctx, record.Subject)
	if err != nil {
		return nil, err
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	return result, nil
}

// Logout revoga o refresh token atual.
func (s *SessionService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefreshToken(rawToken)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// Me devolve o perfil completo para o subject.
func (s *SessionService) Me(ctx context.Context, subject uuid.UUID) (*Profile, error) {
	user, err := s.repo.GetUserByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	role, err := s.repo.GetUserRoleName(ctx, subject)
	if err != nil {
		return nil, err
	}
	return profileOf(user, role), nil
}

// AssignRole vincula um papel existente ao usuário e agenda a atualização
// da claim no próximo ciclo de token do afetado, sem esperar a janela.
func (s *SessionService) AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	if err := s.repo.SetUserRole(ctx, userID, role.ID); err != nil {
		return err
	}
	s.bumpRole(ctx, userID)
	return nil
}

// RemoveRole desfaz o vínculo de papel. O usuário permanece no banco para
// preservar o trilho de auditoria dos chamados.
func (s *SessionService) RemoveRole(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.ClearUserRole(ctx, userID); err != nil {
		return err
	}
	s.bumpRole(ctx, userID)
	return nil
}

func (s *SessionService) startSession(ctx context.Context, user repo.User) (*LoginResult, error) {
	claims, err := s.IssueClaims(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwt.Sign(claims)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := s.now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, user.ID, refreshHash, expires); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   accessToken,
		RefreshToken:  rawRefresh,
		Claims:        claims,
		Subject:       user.ID,
		Profile:       profileOf(user, claims.Role),
		RefreshExpiry: expires,
	}, nil
}

// ensureDefaultRole carrega o papel canônico; sem vínculo, cria o papel
// viewer (lazy) e o atribui via update condicionado, idempotente sob
// tentativas concorrentes.
func (s *SessionService) ensureDefaultRole(ctx context.Context, userID uuid.UUID) (string, error) {
	role, err := s.repo.GetUserRoleName(ctx, userID)
	if err != nil {
		return "", err
	}
	if normalized := normalizeRole(role); normalized != "" {
		return normalized, nil
	}

	viewer, err := s.repo.EnsureRole(ctx, repo.RoleViewer, "Default viewer role with read-only access")
	if err != nil {
		return "", err
	}
	if _, err := s.repo.AssignRoleIfMissing(ctx, userID, viewer.ID); err != nil {
		return "", err
	}
	return repo.RoleViewer, nil
}

func (s *SessionService) bumpRole(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	key := auth.RoleBumpRedisKey(userID.String())
	if err := s.redis.Set(ctx, key, "1", s.window).Err(); err != nil {
		log.Warn().Err(err).Msg("não foi possível registrar gatilho de papel")
	}
}

func (s *SessionService) consumeRoleBump(ctx context.Context, subject string) bool {
	if s.redis == nil {
		return false
	}
	val, err := s.redis.GetDel(ctx, auth.RoleBumpRedisKey(subject)).Result()
	if err != nil {
		return false
	}
	return val != ""
}

func (s *SessionService) persistRefresh(ctx context.Context, subject uuid.UUID, hash string, expires time.Time) error {
	_, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		ID:        uuid.New(),
		Subject:   subject,
		TokenHash: hash,
		ExpiresAt: expires,
		CreatedAt: s.now(),
	})
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateOtherRefreshTokens(ctx, subject, hash); err != nil {
		return err
	}

	if s.redis == nil {
		return nil
	}
	return s.redis.Set(ctx, auth.RefreshRedisKey(hash), "active", time.Until(expires)).Err()
}

func profileOf(user repo.User, role string) *Profile {
	return &Profile{
		ID:       user.ID.String(),
		Name:     user.Name,
		Email:    user.Email,
		Username: user.Username,
		ImageURL: user.ImageURL,
		Role:     role,
	}
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
