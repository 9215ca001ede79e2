package asset

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kurufix/api/internal/repo"
	"github.com/kurufix/api/internal/util"
)

// DefaultTypeName é o tipo atribuído quando nenhum é informado.
const DefaultTypeName = "uncategorized"

type repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, filter Filter) ([]Detail, error)
	Create(ctx context.Context, arg CreateParams) (*Asset, error)
	Update(ctx context.Context, id uuid.UUID, arg UpdateParams) error
	Delete(ctx context.Context, id uuid.UUID) error
	ResolveTypeByName(ctx context.Context, name string) (ResolveResult, error)
	ResolveStatusByName(ctx context.Context, name string) (ResolveResult, error)
	ResolveLocation(ctx context.Context, building, room string) (ResolveResult, error)
	ListTypes(ctx context.Context) ([]Type, error)
	ListStatuses(ctx context.Context) ([]Status, error)
	CreateType(ctx context.Context, name string, description *string) (*Type, error)
	UpdateType(ctx context.Context, id uuid.UUID, name string, description *string) error
	DeleteType(ctx context.Context, id uuid.UUID) error
	ListLocations(ctx context.Context) ([]Location, error)
	CreateLocation(ctx context.Context, building, room string, floor, description *string) (*Location, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, building, room string, floor, description *string) error
	DeleteLocation(ctx context.Context, id uuid.UUID) error
}

type roleVerifier interface {
	RequireRole(ctx context.Context, userID uuid.UUID, roles ...string) error
}

// Service reúne regras de negócio de ativos e dados mestre. Toda escrita
// revalida o papel do ator no banco antes de aplicar, nunca confiando
// apenas na claim do token.
type Service struct {
	repo repository
	rbac roleVerifier
}

// NewService cria uma nova instância do serviço.
func NewService(r repository, rbac roleVerifier) *Service {
	return &Service{repo: r, rbac: rbac}
}

// Get recupera um ativo.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetByID(ctx, id)
}

// List devolve ativos dentro do filtro informado.
func (s *Service) List(ctx context.Context, filter Filter) ([]Detail, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Meta devolve tipos e status para os formulários.
func (s *Service) Meta(ctx context.Context) ([]Type, []Status, error) {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, nil, err
	}
	statuses, err := s.repo.ListStatuses(ctx)
	if err != nil {
		return nil, nil, err
	}
	return types, statuses, nil
}

// CreateInput agrupa os campos do cadastro administrativo de ativo.
// Tipo, status e localização chegam por nome e passam por resolve-or-create.
type CreateInput struct {
	AssetCode    string
	AssetName    string
	Brand        string
	Model        string
	SerialNo     string
	Price        *float64
	PurchaseDate *time.Time
	WarrantyExp  *time.Time
	Notes        string
	TypeName     string
	StatusName   string
	Building     string
	Room         string
}

// Create cadastra um ativo novo. Exige papel admin verificado no banco.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*Asset, error) {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return nil, err
	}

	input.AssetCode = strings.TrimSpace(input.AssetCode)
	input.AssetName = strings.TrimSpace(input.AssetName)
	if err := util.RequireString(input.AssetName, "assetName"); err != nil {
		return nil, err
	}
	if input.AssetCode == "" {
		input.AssetCode = util.FallbackAssetCode()
	}

	typeName := strings.TrimSpace(input.TypeName)
	if typeName == "" {
		typeName = DefaultTypeName
	}
	typeRef, err := s.resolveType(ctx, typeName)
	if err != nil {
		return nil, err
	}

	statusName := strings.TrimSpace(input.StatusName)
	if statusName == "" {
		statusName = StatusInUse
	}
	statusRef, err := s.resolveStatus(ctx, statusName)
	if err != nil {
		return nil, err
	}

	params := CreateParams{
		AssetCode:    input.AssetCode,
		AssetName:    input.AssetName,
		Price:        input.Price,
		PurchaseDate: input.PurchaseDate,
		WarrantyExp:  input.WarrantyExp,
		TypeID:       typeRef.ID,
		StatusID:     statusRef.ID,
	}
	if v := strings.TrimSpace(input.Brand); v != "" {
		params.Brand = &v
	}
	if v := strings.TrimSpace(input.Model); v != "" {
		params.Model = &v
	}
	if v := strings.TrimSpace(input.SerialNo); v != "" {
		params.SerialNo = &v
	}
	if v := strings.TrimSpace(input.Notes); v != "" {
		params.Notes = &v
	}

	if input.Building != "" || input.Room != "" {
		locRef, err := s.resolveLocationLogged(ctx, input.Building, input.Room)
		if err != nil {
			return nil, err
		}
		params.LocationID = &locRef.ID
	}

	return s.repo.Create(ctx, params)
}

// UpdateInput descreve a edição administrativa de campos livres; campos
// vazios são ignorados, preservando o valor atual.
type UpdateInput struct {
	AssetName  string
	AssetCode  string
	Brand      string
	Model      string
	SerialNo   string
	Notes      string
	TypeName   string
	StatusName string
	Building   string
	Room       string
}

// Update aplica a edição após revalidar o papel admin no banco.
func (s *Service) Update(ctx context.Context, actorID, assetID uuid.UUID, input UpdateInput) error {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return err
	}

	var params UpdateParams
	if v := strings.TrimSpace(input.AssetName); v != "" {
		params.AssetName = &v
	}
	if v := strings.TrimSpace(input.AssetCode); v != "" {
		params.AssetCode = &v
	}
	if v := strings.TrimSpace(input.Brand); v != "" {
		params.Brand = &v
	}
	if v := strings.TrimSpace(input.Model); v != "" {
		params.Model = &v
	}
	if v := strings.TrimSpace(input.SerialNo); v != "" {
		params.SerialNo = &v
	}
	if v := strings.TrimSpace(input.Notes); v != "" {
		params.Notes = &v
	}

	if name := strings.TrimSpace(input.TypeName); name != "" {
		ref, err := s.resolveType(ctx, name)
		if err != nil {
			return err
		}
		params.TypeID = &ref.ID
	}
	if name := strings.TrimSpace(input.StatusName); name != "" {
		ref, err := s.resolveStatus(ctx, name)
		if err != nil {
			return err
		}
		params.StatusID = &ref.ID
	}
	if input.Building != "" || input.Room != "" {
		ref, err := s.resolveLocationLogged(ctx, input.Building, input.Room)
		if err != nil {
			return err
		}
		params.LocationID = &ref.ID
	}

	if params == (UpdateParams{}) {
		return nil
	}

	return s.repo.Update(ctx, assetID, params)
}

// Delete remove um ativo (somente admin, verificado no banco).
func (s *Service) Delete(ctx context.Context, actorID, assetID uuid.UUID) error {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return err
	}
	return s.repo.Delete(ctx, assetID)
}

func (s *Service) resolveType(ctx context.Context, name string) (ResolveResult, error) {
	ref, err := s.repo.ResolveTypeByName(ctx, name)
	if err != nil {
		return ResolveResult{}, err
	}
	if ref.Created {
		log.Info().Str("type", name).Msg("tipo de ativo criado via resolve-or-create")
	}
	return ref, nil
}

func (s *Service) resolveStatus(ctx context.Context, name string) (ResolveResult, error) {
	ref, err := s.repo.ResolveStatusByName(ctx, name)
	if err != nil {
		return ResolveResult{}, err
	}
	if ref.Created {
		log.Info().Str("status", name).Msg("status de ativo criado via resolve-or-create")
	}
	return ref, nil
}

func (s *Service) resolveLocationLogged(ctx context.Context, building, room string) (ResolveResult, error) {
	ref, err := s.repo.ResolveLocation(ctx, building, room)
	if err != nil {
		return ResolveResult{}, err
	}
	if ref.Created {
		log.Info().Str("building", building).Str("room", room).Msg("localização criada via resolve-or-create")
	}
	return ref, nil
}

// AddType cadastra tipo novo (dado mestre, somente admin).
func (s *Service) AddType(ctx context.Context, actorID uuid.UUID, name, description string) (*Type, error) {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return nil, err
	}
	if err := util.RequireString(name, "name"); err != nil {
		return nil, err
	}
	var desc *string
	if v := strings.TrimSpace(description); v != "" {
		desc = &v
	}
	return s.repo.CreateType(ctx, name, desc)
}

// RenameType altera um tipo existente.
func (s *Service) RenameType(ctx context.Context, actorID, typeID uuid.UUID, name, description string) error {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return err
	}
	if err := util.RequireString(name, "name"); err != nil {
		return err
	}
	var desc *string
	if v := strings.TrimSpace(description); v != "" {
		desc = &v
	}
	return s.repo.UpdateType(ctx, typeID, name, desc)
}

// RemoveType apaga um tipo.
func (s *Service) RemoveType(ctx context.Context, actorID, typeID uuid.UUID) error {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return err
	}
	return s.repo.DeleteType(ctx, typeID)
}

// Locations lista as localizações.
func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	return s.repo.ListLocations(ctx)
}

// AddLocation cadastra localização nova (somente admin).
func (s *Service) AddLocation(ctx context.Context, actorID uuid.UUID, building, room, floor, description string) (*Location, error) {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return nil, err
	}
	if err := util.RequireString(building, "building"); err != nil {
		return nil, err
	}
	if err := util.RequireString(room, "room"); err != nil {
		return nil, err
	}
	var fl, desc *string
	if v := strings.TrimSpace(floor); v != "" {
		fl = &v
	}
	if v := strings.TrimSpace(description); v != "" {
		desc = &v
	}
	return s.repo.CreateLocation(ctx, building, room, fl, desc)
}

// EditLocation altera uma localização existente.
func (s *Service) EditLocation(ctx context.Context, actorID, locationID uuid.UUID, building, room, floor, description string) error {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return err
	}
	if err := util.RequireString(building, "building"); err != nil {
		return err
	}
	if err := util.RequireString(room, "room"); err != nil {
		return err
	}
	var fl, desc *string
	if v := strings.TrimSpace(floor); v != "" {
		fl = &v
	}
	if v := strings.TrimSpace(description); v != "" {
		desc = &v
	}
	return s.repo.UpdateLocation(ctx, locationID, building, room, fl, desc)
}

// RemoveLocation apaga uma localização.
func (s *Service) RemoveLocation(ctx context.Context, actorID, locationID uuid.UUID) error {
	if err := s.rbac.RequireRole(ctx, actorID, repo.RoleAdmin); err != nil {
		return err
	}
	return s.repo.DeleteLocation(ctx, locationID)
}
