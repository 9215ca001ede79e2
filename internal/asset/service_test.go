package asset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kurufix/api/internal/repo"
	"github.com/kurufix/api/internal/service"
)

// storeRoles verifica o papel no armazenamento, não na claim do token.
type storeRoles struct {
	roles map[uuid.UUID]string
	reads int
}

func (s *storeRoles) RequireRole(_ context.Context, userID uuid.UUID, roles ...string) error {
	s.reads++
	current := s.roles[userID]
	for _, want := range roles {
		if strings.EqualFold(current, want) {
			return nil
		}
	}
	return service.ErrForbidden
}

type stubAssetRepo struct {
	created     *CreateParams
	createErr   error
	updated     *UpdateParams
	types       map[string]ResolveResult
	statuses    map[string]ResolveResult
	locations   map[string]ResolveResult
	typeCalls   []string
	statusCalls []string
}

func newStubAssetRepo() *stubAssetRepo {
	return &stubAssetRepo{
		types:     make(map[string]ResolveResult),
		statuses:  make(map[string]ResolveResult),
		locations: make(map[string]ResolveResult),
	}
}

func (s *stubAssetRepo) GetByID(_ context.Context, _ uuid.UUID) (*Detail, error) {
	return nil, ErrNotFound
}

func (s *stubAssetRepo) List(_ context.Context, _ Filter) ([]Detail, error) { return nil, nil }

func (s *stubAssetRepo) Create(_ context.Context, arg CreateParams) (*Asset, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = &arg
	return &Asset{ID: uuid.New(), AssetCode: arg.AssetCode, AssetName: arg.AssetName}, nil
}

func (s *stubAssetRepo) Update(_ context.Context, _ uuid.UUID, arg UpdateParams) error {
	s.updated = &arg
	return nil
}

func (s *stubAssetRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubAssetRepo) ResolveTypeByName(_ context.Context, name string) (ResolveResult, error) {
	s.typeCalls = append(s.typeCalls, name)
	if found, ok := s.types[name]; ok {
		return found, nil
	}
	created := ResolveResult{ID: uuid.New(), Created: true}
	s.types[name] = ResolveResult{ID: created.ID, Created: false}
	return created, nil
}

func (s *stubAssetRepo) ResolveStatusByName(_ context.Context, name string) (ResolveResult, error) {
	s.statusCalls = append(s.statusCalls, name)
	if found, ok := s.statuses[name]; ok {
		return found, nil
	}
	created := ResolveResult{ID: uuid.New(), Created: true}
	s.statuses[name] = ResolveResult{ID: created.ID, Created: false}
	return created, nil
}

func (s *stubAssetRepo) ResolveLocation(_ context.Context, building, room string) (ResolveResult, error) {
	key := building + "/" + room
	if found, ok := s.locations[key]; ok {
		return found, nil
	}
	created := ResolveResult{ID: uuid.New(), Created: true}
	s.locations[key] = ResolveResult{ID: created.ID, Created: false}
	return created, nil
}

func (s *stubAssetRepo) ListTypes(_ context.Context) ([]Type, error)      { return nil, nil }
func (s *stubAssetRepo) ListStatuses(_ context.Context) ([]Status, error) { return nil, nil }

func (s *stubAssetRepo) CreateType(_ context.Context, name string, description *string) (*Type, error) {
	return &Type{ID: uuid.New(), Name: name, Description: description}, nil
}

func (s *stubAssetRepo) UpdateType(_ context.Context, _ uuid.UUID, _ string, _ *string) error {
	return nil
}
func (s *stubAssetRepo) DeleteType(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubAssetRepo) ListLocations(_ context.Context) ([]Location, error) { return nil, nil }

func (s *stubAssetRepo) CreateLocation(_ context.Context, building, room string, floor, description *string) (*Location, error) {
	return &Location{ID: uuid.New(), Building: building, Room: room}, nil
}

func (s *stubAssetRepo) UpdateLocation(_ context.Context, _ uuid.UUID, _, _ string, _, _ *string) error {
	return nil
}
func (s *stubAssetRepo) DeleteLocation(_ context.Context, _ uuid.UUID) error { return nil }

func TestCreateAssetRejectsNonAdmin(t *testing.T) {
	repoStub := newStubAssetRepo()
	viewer := uuid.New()
	rbac := &storeRoles{roles: map[uuid.UUID]string{viewer: repo.RoleViewer}}
	svc := NewService(repoStub, rbac)

	_, err := svc.Create(context.Background(), viewer, CreateInput{AssetName: "Projector"})
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if repoStub.created != nil {
		t.Fatal("nada deveria ser gravado")
	}
}

// O papel decisivo é o do armazenamento: um admin cuja claim de token
// ainda diz viewer passa, porque o serviço revalida no banco.
func TestCreateAssetVerifiesRoleInStore(t *testing.T) {
	repoStub := newStubAssetRepo()
	admin := uuid.New()
	rbac := &storeRoles{roles: map[uuid.UUID]string{admin: repo.RoleAdmin}}
	svc := NewService(repoStub, rbac)

	created, err := svc.Create(context.Background(), admin, CreateInput{
		AssetName: "Projector",
		AssetCode: "PRJ-001",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rbac.reads != 1 {
		t.Fatalf("reads = %d, want 1", rbac.reads)
	}
	if created.AssetCode != "PRJ-001" {
		t.Fatalf("assetCode = %q", created.AssetCode)
	}
}

func TestCreateAssetDefaults(t *testing.T) {
	repoStub := newStubAssetRepo()
	admin := uuid.New()
	rbac := &storeRoles{roles: map[uuid.UUID]string{admin: repo.RoleAdmin}}
	svc := NewService(repoStub, rbac)

	if _, err := svc.Create(context.Background(), admin, CreateInput{AssetName: "Router"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(repoStub.typeCalls) != 1 || repoStub.typeCalls[0] != DefaultTypeName {
		t.Fatalf("typeCalls = %v, want [%s]", repoStub.typeCalls, DefaultTypeName)
	}
	if len(repoStub.statusCalls) != 1 || repoStub.statusCalls[0] != StatusInUse {
		t.Fatalf("statusCalls = %v, want [%s]", repoStub.statusCalls, StatusInUse)
	}
	if !strings.HasPrefix(repoStub.created.AssetCode, "TMP-") {
		t.Fatalf("assetCode = %q, esperava fallback TMP-", repoStub.created.AssetCode)
	}
}

func TestCreateAssetRequiresName(t *testing.T) {
	repoStub := newStubAssetRepo()
	admin := uuid.New()
	rbac := &storeRoles{roles: map[uuid.UUID]string{admin: repo.RoleAdmin}}
	svc := NewService(repoStub, rbac)

	if _, err := svc.Create(context.Background(), admin, CreateInput{}); err == nil {
		t.Fatal("esperava erro de validação para assetName vazio")
	}
}

func TestCreateAssetDuplicateCodeSurfacesConflict(t *testing.T) {
	repoStub := newStubAssetRepo()
	repoStub.createErr = &repo.ConflictError{Field: "assetCode", Value: "PRJ-001"}
	admin := uuid.New()
	rbac := &storeRoles{roles: map[uuid.UUID]string{admin: repo.RoleAdmin}}
	svc := NewService(repoStub, rbac)

	_, err := svc.Create(context.Background(), admin, CreateInput{
		AssetName: "Projector",
		AssetCode: "PRJ-001",
	})

	var conflict *repo.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.Field != "assetCode" || conflict.Value != "PRJ-001" {
		t.Fatalf("conflito = %+v", conflict)
	}
}

func TestUpdateAssetWithoutFieldsIsNoop(t *testing.T) {
	repoStub := newStubAssetRepo()
	admin := uuid.New()
	rbac := &storeRoles{roles: map[uuid.UUID]string{admin: repo.RoleAdmin}}
	svc := NewService(repoStub, rbac)

	if err := svc.Update(context.Background(), admin, uuid.New(), UpdateInput{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if repoStub.updated != nil {
		t.Fatal("repositório não deveria ser tocado sem campos")
	}
}
