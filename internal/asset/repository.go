package asset

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurufix/api/internal/repo"
)

// Repository provê acesso ao armazenamento de ativos e dados mestre.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de ativos.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const detailColumns = `a.id, a.asset_code, a.asset_name, a.brand, a.model, a.serial_no, a.price,
        a.purchase_date, a.warranty_exp, a.notes, a.type_id, a.status_id, a.location_id,
        a.created_at, a.updated_at, t.name, s.name, l.building, l.room`

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	err := row.Scan(&d.ID, &d.AssetCode, &d.AssetName, &d.Brand, &d.Model, &d.SerialNo, &d.Price,
		&d.PurchaseDate, &d.WarrantyExp, &d.Notes, &d.TypeID, &d.StatusID, &d.LocationID,
		&d.CreatedAt, &d.UpdatedAt, &d.TypeName, &d.StatusName, &d.Building, &d.Room)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetByID busca o ativo com referências resolvidas.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	const query = `
        SELECT ` + detailColumns + `
        FROM assets a
        JOIN asset_types t ON t.id = a.type_id
        JOIN asset_statuses s ON s.id = a.status_id
        LEFT JOIN locations l ON l.id = a.location_id
        WHERE a.id = $1`

	return scanDetail(r.pool.QueryRow(ctx, query, id))
}

// List devolve ativos filtrados por tipo, status, localização e busca
// textual sobre código/nome.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Detail, error) {
	builder := psql.Select(strings.ReplaceAll(detailColumns, "\n", " ")).
		From("assets a").
		Join("asset_types t ON t.id = a.type_id").
		Join("asset_statuses s ON s.id = a.status_id").
		LeftJoin("locations l ON l.id = a.location_id").
		OrderBy("a.created_at DESC")

	if filter.TypeID != nil {
		builder = builder.Where(sq.Eq{"a.type_id": *filter.TypeID})
	}
	if filter.StatusID != nil {
		builder = builder.Where(sq.Eq{"a.status_id": *filter.StatusID})
	}
	if filter.LocationID != nil {
		builder = builder.Where(sq.Eq{"a.location_id": *filter.LocationID})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"a.asset_code": like},
			sq.ILike{"a.asset_name": like},
		})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *d)
	}
	return assets, rows.Err()
}

// CreateParams agrupa os campos da inclusão administrativa de ativo.
type CreateParams struct {
	AssetCode    string
	AssetName    string
	Brand        *string
	Model        *string
	SerialNo     *string
	Price        *float64
	PurchaseDate *time.Time
	WarrantyExp  *time.Time
	Notes        *string
	TypeID       uuid.UUID
	StatusID     uuid.UUID
	LocationID   *uuid.UUID
}

// Create insere um novo ativo; código duplicado aflora como ConflictError.
func (r *Repository) Create(ctx context.Context, arg CreateParams) (*Asset, error) {
	const query = `
        INSERT INTO assets (asset_code, asset_name, brand, model, serial_no, price,
            purchase_date, warranty_exp, notes, type_id, status_id, location_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, asset_code, asset_name, brand, model, serial_no, price,
            purchase_date, warranty_exp, notes, type_id, status_id, location_id,
            created_at, updated_at`

	var a Asset
	err := r.pool.QueryRow(ctx, query,
		arg.AssetCode, arg.AssetName, arg.Brand, arg.Model, arg.SerialNo, arg.Price,
		arg.PurchaseDate, arg.WarrantyExp, arg.Notes, arg.TypeID, arg.StatusID, arg.LocationID).
		Scan(&a.ID, &a.AssetCode, &a.AssetName, &a.Brand, &a.Model, &a.SerialNo, &a.Price,
			&a.PurchaseDate, &a.WarrantyExp, &a.Notes, &a.TypeID, &a.StatusID, &a.LocationID,
			&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, assetCodeConflict(err, arg.AssetCode)
	}
	return &a, nil
}

// UpdateParams descreve edição parcial; campos nulos são preservados.
type UpdateParams struct {
	AssetCode  *string
	AssetName  *string
	Brand      *string
	Model      *string
	SerialNo   *string
	Notes      *string
	TypeID     *uuid.UUID
	StatusID   *uuid.UUID
	LocationID *uuid.UUID
}

// Update aplica os campos não nulos ao ativo.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, arg UpdateParams) error {
	const query = `
        UPDATE assets SET
            asset_code  = COALESCE($2, asset_code),
            asset_name  = COALESCE($3, asset_name),
            brand       = COALESCE($4, brand),
            model       = COALESCE($5, model),
            serial_no   = COALESCE($6, serial_no),
            notes       = COALESCE($7, notes),
            type_id     = COALESCE($8, type_id),
            status_id   = COALESCE($9, status_id),
            location_id = COALESCE($10, location_id),
            updated_at  = now()
        WHERE id = $1`

	cmd, err := r.pool.Exec(ctx, query, id,
		arg.AssetCode, arg.AssetName, arg.Brand, arg.Model, arg.SerialNo, arg.Notes,
		arg.TypeID, arg.StatusID, arg.LocationID)
	if err != nil {
		attempted := ""
		if arg.AssetCode != nil {
			attempted = *arg.AssetCode
		}
		return assetCodeConflict(err, attempted)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete remove o ativo. A integridade referencial do banco impede a
// remoção enquanto houver chamados apontando para ele.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func assetCodeConflict(err error, attempted string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "assets_asset_code_key" {
		return &repo.ConflictError{Field: "assetCode", Value: attempted}
	}
	return err
}

// ResolveTypeByName devolve o tipo pelo nome, criando-o quando não
// existe, e informa qual das duas coisas aconteceu.
func (r *Repository) ResolveTypeByName(ctx context.Context, name string) (ResolveResult, error) {
	return r.resolveByName(ctx, "asset_types", name)
}

// ResolveStatusByName idem, para o vocabulário de status.
func (r *Repository) ResolveStatusByName(ctx context.Context, name string) (ResolveResult, error) {
	return r.resolveByName(ctx, "asset_statuses", name)
}

func (r *Repository) resolveByName(ctx context.Context, table, name string) (ResolveResult, error) {
	// Um único statement decide entre encontrar e criar, sem janela de
	// corrida entre o SELECT e o INSERT.
	query := `
        WITH ins AS (
            INSERT INTO ` + table + ` (name) VALUES ($1)
            ON CONFLICT (name) DO NOTHING
            RETURNING id
        )
        SELECT id, TRUE FROM ins
        UNION ALL
        SELECT id, FALSE FROM ` + table + ` WHERE name = $1
        LIMIT 1`

	var result ResolveResult
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(name)).Scan(&result.ID, &result.Created)
	if err != nil {
		return ResolveResult{}, err
	}
	return result, nil
}

// ResolveLocation encontra a localização por prédio/sala ou a cria.
func (r *Repository) ResolveLocation(ctx context.Context, building, room string) (ResolveResult, error) {
	building = strings.TrimSpace(building)
	room = strings.TrimSpace(room)

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
        SELECT id FROM locations WHERE building = $1 AND room = $2 LIMIT 1`,
		building, room).Scan(&id)
	if err == nil {
		return ResolveResult{ID: id, Created: false}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ResolveResult{}, err
	}

	err = r.pool.QueryRow(ctx, `
        INSERT INTO locations (building, room) VALUES ($1, $2) RETURNING id`,
		building, room).Scan(&id)
	if err != nil {
		return ResolveResult{}, err
	}
	return ResolveResult{ID: id, Created: true}, nil
}

// ListTypes devolve os tipos cadastrados.
func (r *Repository) ListTypes(ctx context.Context) ([]Type, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM asset_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []Type
	for rows.Next() {
		var t Type
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// ListStatuses devolve o vocabulário de status.
func (r *Repository) ListStatuses(ctx context.Context) ([]Status, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM asset_statuses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// CreateType insere um tipo de ativo (dado mestre).
func (r *Repository) CreateType(ctx context.Context, name string, description *string) (*Type, error) {
	var t Type
	err := r.pool.QueryRow(ctx, `
        INSERT INTO asset_types (name, description) VALUES ($1, $2)
        RETURNING id, name, description`,
		strings.TrimSpace(name), description).Scan(&t.ID, &t.Name, &t.Description)
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, &repo.ConflictError{Field: "name", Value: name}
		}
		return nil, err
	}
	return &t, nil
}

// UpdateType altera nome/descrição de um tipo.
func (r *Repository) UpdateType(ctx context.Context, id uuid.UUID, name string, description *string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE asset_types SET name = $2, description = $3 WHERE id = $1`,
		id, strings.TrimSpace(name), description)
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return &repo.ConflictError{Field: "name", Value: name}
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTypeNotFound
	}
	return nil
}

// DeleteType remove um tipo de ativo.
func (r *Repository) DeleteType(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM asset_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTypeNotFound
	}
	return nil
}

// ListLocations devolve as localizações cadastradas.
func (r *Repository) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, building, room, floor, description FROM locations ORDER BY building, room`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Building, &l.Room, &l.Floor, &l.Description); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// CreateLocation insere uma localização (dado mestre).
func (r *Repository) CreateLocation(ctx context.Context, building, room string, floor, description *string) (*Location, error) {
	var l Location
	err := r.pool.QueryRow(ctx, `
        INSERT INTO locations (building, room, floor, description)
        VALUES ($1, $2, $3, $4)
        RETURNING id, building, room, floor, description`,
		strings.TrimSpace(building), strings.TrimSpace(room), floor, description).
		Scan(&l.ID, &l.Building, &l.Room, &l.Floor, &l.Description)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateLocation altera os campos da localização.
func (r *Repository) UpdateLocation(ctx context.Context, id uuid.UUID, building, room string, floor, description *string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE locations SET building = $2, room = $3, floor = $4, description = $5
        WHERE id = $1`,
		id, strings.TrimSpace(building), strings.TrimSpace(room), floor, description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// DeleteLocation remove uma localização.
func (r *Repository) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLocationNotFound
	}
	return nil
}
