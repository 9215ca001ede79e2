package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kurufix/api/internal/auth"
	"github.com/kurufix/api/internal/repo"
)

type stubSessionRepo struct {
	users        map[uuid.UUID]repo.User
	roles        map[uuid.UUID]string
	rolesByName  map[string]repo.Role
	roleReads    int
	roleReadErr  error
	assignCalls  int
	ensuredRoles []string
	setRoleCalls []uuid.UUID
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{
		users:       make(map[uuid.UUID]repo.User),
		roles:       make(map[uuid.UUID]string),
		rolesByName: make(map[string]repo.Role),
	}
}

func (s *stubSessionRepo) GetUserByID(_ context.Context, id uuid.UUID) (repo.User, error) {
	user, ok := s.users[id]
	if !ok {
		return repo.User{}, repo.ErrNotFound
	}
	return user, nil
}

func (s *stubSessionRepo) GetUserByEmail(_ context.Context, email string) (repo.User, error) {
	for _, user := range s.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return repo.User{}, repo.ErrNotFound
}

func (s *stubSessionRepo) GetUserByIdentifier(ctx context.Context, identifier string) (repo.User, error) {
	return s.GetUserByEmail(ctx, identifier)
}

func (s *stubSessionRepo) CreateUser(_ context.Context, arg repo.CreateUserParams) (repo.User, error) {
	user := repo.User{ID: uuid.New(), Name: arg.Name, Email: arg.Email, Username: arg.Username}
	s.users[user.ID] = user
	return user, nil
}

func (s *stubSessionRepo) GetUserRoleName(_ context.Context, userID uuid.UUID) (string, error) {
	s.roleReads++
	if s.roleReadErr != nil {
		return "", s.roleReadErr
	}
	if _, ok := s.users[userID]; !ok {
		return "", repo.ErrNotFound
	}
	return s.roles[userID], nil
}

func (s *stubSessionRepo) GetRoleByName(_ context.Context, name string) (repo.Role, error) {
	role, ok := s.rolesByName[name]
	if !ok {
		return repo.Role{}, repo.ErrNotFound
	}
	return role, nil
}

func (s *stubSessionRepo) EnsureRole(_ context.Context, name, description string) (repo.Role, error) {
	s.ensuredRoles = append(s.ensuredRoles, name)
	if role, ok := s.rolesByName[name]; ok {
		return role, nil
	}
	role := repo.Role{ID: uuid.New(), Name: name}
	s.rolesByName[name] = role
	return role, nil
}

func (s *stubSessionRepo) AssignRoleIfMissing(_ context.Context, userID, roleID uuid.UUID) (bool, error) {
	s.assignCalls++
	if s.roles[userID] != "" {
		return false, nil
	}
	for name, role := range s.rolesByName {
		if role.ID == roleID {
			s.roles[userID] = name
			return true, nil
		}
	}
	return false, nil
}

func (s *stubSessionRepo) SetUserRole(_ context.Context, userID, roleID uuid.UUID) error {
	if _, ok := s.users[userID]; !ok {
		return repo.ErrNotFound
	}
	s.setRoleCalls = append(s.setRoleCalls, userID)
	for name, role := range s.rolesByName {
		if role.ID == roleID {
			s.roles[userID] = name
			return nil
		}
	}
	return repo.ErrNotFound
}

func (s *stubSessionRepo) ClearUserRole(_ context.Context, userID uuid.UUID) error {
	if _, ok := s.users[userID]; !ok {
		return repo.ErrNotFound
	}
	delete(s.roles, userID)
	return nil
}

func (s *stubSessionRepo) InsertRefreshToken(_ context.Context, arg repo.InsertRefreshTokenParams) (repo.RefreshToken, error) {
	return repo.RefreshToken{ID: arg.ID, Subject: arg.Subject, TokenHash: arg.TokenHash, ExpiresAt: arg.ExpiresAt}, nil
}

func (s *stubSessionRepo) GetRefreshTokenByHash(_ context.Context, _ string) (repo.RefreshToken, error) {
	return repo.RefreshToken{}, repo.ErrNotFound
}

func (s *stubSessionRepo) RevokeRefreshToken(_ context.Context, _ string) error { return nil }

func (s *stubSessionRepo) InvalidateOtherRefreshTokens(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

type stubRedis struct {
	store map[string]string
}

func newStubRedis() *stubRedis {
	return &stubRedis{store: make(map[string]string)}
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	s.store[key] = value.(string)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := s.Get(ctx, key)
	delete(s.store, key)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func newTestSessionService(r *stubSessionRepo, rd *stubRedis, now time.Time) *SessionService {
	svc := &SessionService{
		repo:          r,
		redis:         rd,
		jwt:           auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour),
		allowedDomain: "kmitl.ac.th",
		window:        10 * time.Minute,
		refreshTTL:    24 * time.Hour,
		policy:        KeepStaleOnFailure,
		now:           func() time.Time { return now },
	}
	return svc
}

func seedUser(r *stubSessionRepo, role string) uuid.UUID {
	email := "user@kmitl.ac.th"
	user := repo.User{ID: uuid.New(), Email: &email}
	r.users[user.ID] = user
	if role != "" {
		r.rolesByName[role] = repo.Role{ID: uuid.New(), Name: role}
		r.roles[user.ID] = role
	}
	return user.ID
}

func TestIssueClaimsAssignsViewerByDefault(t *testing.T) {
	repoStub := newStubSessionRepo()
	now := time.Now()
	svc := newTestSessionService(repoStub, newStubRedis(), now)

	userID := seedUser(repoStub, "")

	claims, err := svc.IssueClaims(context.Background(), userID)
	if err != nil {
		t.Fatalf("IssueClaims: %v", err)
	}
	if claims.Role != repo.RoleViewer {
		t.Fatalf("role = %q, want %q", claims.Role, repo.RoleViewer)
	}
	if claims.RoleRefreshedAt != now.Unix() {
		t.Fatalf("RoleRefreshedAt = %d, want %d", claims.RoleRefreshedAt, now.Unix())
	}
	if repoStub.roles[userID] != repo.RoleViewer {
		t.Fatal("papel viewer não persistido")
	}

	// Segunda emissão não tenta reatribuir.
	assigns := repoStub.assignCalls
	if _, err := svc.IssueClaims(context.Background(), userID); err != nil {
		t.Fatalf("IssueClaims (2a): %v", err)
	}
	if repoStub.assignCalls != assigns {
		t.Fatalf("assignCalls = %d, want %d", repoStub.assignCalls, assigns)
	}
}

func TestIssueClaimsKeepsExistingRole(t *testing.T) {
	repoStub := newStubSessionRepo()
	svc := newTestSessionService(repoStub, newStubRedis(), time.Now())

	userID := seedUser(repoStub, repo.RoleAdmin)

	claims, err := svc.IssueClaims(context.Background(), userID)
	if err != nil {
		t.Fatalf("IssueClaims: %v", err)
	}
	if claims.Role != repo.RoleAdmin {
		t.Fatalf("role = %q, want admin", claims.Role)
	}
	if len(repoStub.ensuredRoles) != 0 {
		t.Fatal("EnsureRole não deveria rodar para usuário com papel")
	}
}

func TestIssueOrUpdateClaimsFreshSkipsStore(t *testing.T) {
	repoStub := newStubSessionRepo()
	now := time.Now()
	svc := newTestSessionService(repoStub, newStubRedis(), now)

	userID := seedUser(repoStub, repo.RoleStaff)

	claims := &auth.Claims{Role: repo.RoleStaff, RoleRefreshedAt: now.Add(-time.Minute).Unix()}
	claims.Subject = userID.String()

	got, changed, err := svc.IssueOrUpdateClaims(context.Background(), claims)
	if err != nil {
		t.Fatalf("IssueOrUpdateClaims: %v", err)
	}
	if changed {
		t.Fatal("claim fresca não deveria mudar")
	}
	if repoStub.roleReads != 0 {
		t.Fatalf("roleReads = %d, want 0", repoStub.roleReads)
	}
	if got.Role != repo.RoleStaff {
		t.Fatalf("role = %q", got.Role)
	}
}

func TestIssueOrUpdateClaimsStaleReadsOnce(t *testing.T) {
	repoStub := newStubSessionRepo()
	now := time.Now()
	svc := newTestSessionService(repoStub, newStubRedis(), now)

	userID := seedUser(repoStub, repo.RoleAdmin)

	stale := now.Add(-11 * time.Minute).Unix()
	claims := &auth.Claims{Role: repo.RoleViewer, RoleRefreshedAt: stale}
	claims.Subject = userID.String()

	got, changed, err := svc.IssueOrUpdateClaims(context.Background(), claims)
	if err != nil {
		t.Fatalf("IssueOrUpdateClaims: %v", err)
	}
	if !changed {
		t.Fatal("claim em staleness deveria ser atualizada")
	}
	if repoStub.roleReads != 1 {
		t.Fatalf("roleReads = %d, want 1", repoStub.roleReads)
	}
	if got.Role != repo.RoleAdmin {
		t.Fatalf("role = %q, want admin", got.Role)
	}
	if got.RoleRefreshedAt != now.Unix() {
		t.Fatalf("RoleRefreshedAt não avançou: %d", got.RoleRefreshedAt)
	}
}

func TestIssueOrUpdateClaimsKeepsStaleOnFailure(t *testing.T) {
	repoStub := newStubSessionRepo()
	now := time.Now()
	svc := newTestSessionService(repoStub, newStubRedis(), now)

	userID := seedUser(repoStub, repo.RoleStaff)
	repoStub.roleReadErr = errors.New("banco fora do ar")

	stale := now.Add(-time.Hour).Unix()
	claims := &auth.Claims{Role: repo.RoleStaff, RoleRefreshedAt: stale}
	claims.Subject = userID.String()

	got, changed, err := svc.IssueOrUpdateClaims(context.Background(), claims)
	if err != nil {
		t.Fatalf("política KeepStale não deveria propagar: %v", err)
	}
	if changed {
		t.Fatal("claim não deveria mudar sob falha")
	}
	if got.Role != repo.RoleStaff {
		t.Fatalf("role = %q, valor em cache deveria valer", got.Role)
	}
	if got.RoleRefreshedAt != stale {
		t.Fatal("timestamp não deveria avançar sob falha")
	}

	svc.policy = FailOnRefreshError
	if _, _, err := svc.IssueOrUpdateClaims(context.Background(), claims); err == nil {
		t.Fatal("política Fail deveria propagar o erro")
	}
}

func TestIssueOrUpdateClaimsBumpTriggerForcesRefresh(t *testing.T) {
	repoStub := newStubSessionRepo()
	redisStub := newStubRedis()
	now := time.Now()
	svc := newTestSessionService(repoStub, redisStub, now)

	userID := seedUser(repoStub, repo.RoleAdmin)

	// Claim fresca, mas com gatilho explícito pendente.
	claims := &auth.Claims{Role: repo.RoleViewer, RoleRefreshedAt: now.Unix()}
	claims.Subject = userID.String()
	redisStub.store[auth.RoleBumpRedisKey(userID.String())] = "1"

	got, changed, err := svc.IssueOrUpdateClaims(context.Background(), claims)
	if err != nil {
		t.Fatalf("IssueOrUpdateClaims: %v", err)
	}
	if !changed || got.Role != repo.RoleAdmin {
		t.Fatalf("gatilho deveria forçar refresh: changed=%v role=%q", changed, got.Role)
	}

	// Gatilho é consumido: a próxima passada volta a ser barata.
	repoStub.roleReads = 0
	got.RoleRefreshedAt = now.Unix()
	if _, changed, _ := svc.IssueOrUpdateClaims(context.Background(), got); changed || repoStub.roleReads != 0 {
		t.Fatalf("gatilho deveria ter sido consumido: changed=%v reads=%d", changed, repoStub.roleReads)
	}
}

func TestAuthorizeExternalSignIn(t *testing.T) {
	svc := newTestSessionService(newStubSessionRepo(), newStubRedis(), time.Now())

	cases := []struct {
		name   string
		email  string
		hd     string
		expect bool
	}{
		{"dominio exato", "a@kmitl.ac.th", "", true},
		{"subdominio", "b@cs.kmitl.ac.th", "", true},
		{"hd bate", "c@gmail.com", "kmitl.ac.th", true},
		{"dominio externo", "d@example.com", "", false},
		{"hd errado", "e@example.com", "example.com", false},
		{"sufixo parecido sem ponto", "f@notkmitl.ac.th.evil.com", "", false},
		{"email sem dominio", "invalido", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.AuthorizeExternalSignIn(tc.email, tc.hd); got != tc.expect {
				t.Fatalf("AuthorizeExternalSignIn(%q, %q) = %v, want %v", tc.email, tc.hd, got, tc.expect)
			}
		})
	}
}

func TestExternalSignInRejectsForeignDomain(t *testing.T) {
	repoStub := newStubSessionRepo()
	svc := newTestSessionService(repoStub, newStubRedis(), time.Now())

	identity := &auth.GoogleIdentity{Email: "someone@example.com"}
	if _, err := svc.ExternalSignIn(context.Background(), identity); !errors.Is(err, ErrDomainNotAllowed) {
		t.Fatalf("err = %v, want ErrDomainNotAllowed", err)
	}
	if len(repoStub.users) != 0 {
		t.Fatal("usuário não deveria ser criado para domínio rejeitado")
	}
}

func TestExternalSignInCreatesUserWithViewer(t *testing.T) {
	repoStub := newStubSessionRepo()
	svc := newTestSessionService(repoStub, newStubRedis(), time.Now())

	identity := &auth.GoogleIdentity{Email: "newcomer@kmitl.ac.th", Name: "Newcomer"}
	result, err := svc.ExternalSignIn(context.Background(), identity)
	if err != nil {
		t.Fatalf("ExternalSignIn: %v", err)
	}
	if result.Claims.Role != repo.RoleViewer {
		t.Fatalf("role = %q, want viewer", result.Claims.Role)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("sessão incompleta")
	}
	if repoStub.roles[result.Subject] != repo.RoleViewer {
		t.Fatal("viewer não persistido para o novo usuário")
	}
}

func TestAssignRoleRoundTrip(t *testing.T) {
	repoStub := newStubSessionRepo()
	redisStub := newStubRedis()
	svc := newTestSessionService(repoStub, redisStub, time.Now())

	userID := seedUser(repoStub, repo.RoleViewer)
	repoStub.rolesByName[repo.RoleStaff] = repo.Role{ID: uuid.New(), Name: repo.RoleStaff}

	if err := svc.AssignRole(context.Background(), userID, repo.RoleStaff); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if repoStub.roles[userID] != repo.RoleStaff {
		t.Fatalf("papel = %q, want staff", repoStub.roles[userID])
	}
	if _, ok := redisStub.store[auth.RoleBumpRedisKey(userID.String())]; !ok {
		t.Fatal("gatilho de refresh não registrado")
	}
}

func TestAssignRoleUnknownRoleLeavesUserUntouched(t *testing.T) {
	repoStub := newStubSessionRepo()
	svc := newTestSessionService(repoStub, newStubRedis(), time.Now())

	userID := seedUser(repoStub, repo.RoleViewer)

	err := svc.AssignRole(context.Background(), userID, "superuser")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if repoStub.roles[userID] != repo.RoleViewer {
		t.Fatal("papel do usuário não deveria mudar")
	}
	if len(repoStub.setRoleCalls) != 0 {
		t.Fatal("SetUserRole não deveria rodar")
	}
}

func TestRemoveRoleKeepsUser(t *testing.T) {
	repoStub := newStubSessionRepo()
	svc := newTestSessionService(repoStub, newStubRedis(), time.Now())

	userID := seedUser(repoStub, repo.RoleStaff)

	if err := svc.RemoveRole(context.Background(), userID); err != nil {
		t.Fatalf("RemoveRole: %v", err)
	}
	if _, ok := repoStub.users[userID]; !ok {
		t.Fatal("usuário deveria permanecer cadastrado")
	}
	if repoStub.roles[userID] != "" {
		t.Fatal("vínculo de papel deveria ser removido")
	}
}

func TestRefreshPolicyFromString(t *testing.T) {
	cases := map[string]RefreshFailurePolicy{
		"fail":   FailOnRefreshError,
		"FAIL":   FailOnRefreshError,
		" fail ": FailOnRefreshError,
		"keep":   KeepStaleOnFailure,
		"":       KeepStaleOnFailure,
		"outro":  KeepStaleOnFailure,
	}
	for in, want := range cases {
		if got := RefreshPolicyFromString(in); got != want {
			t.Fatalf("RefreshPolicyFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
