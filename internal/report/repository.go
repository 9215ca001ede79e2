package report

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurufix/api/internal/asset"
	"github.com/kurufix/api/internal/db"
)

// Repository provê acesso ao armazenamento de chamados. As operações que
// tocam o chamado e o ativo ao mesmo tempo rodam numa única transação.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de chamados.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const reportColumns = `r.id, r.asset_id, r.status, r.urgency, r.issue_title, r.issue_description,
        r.issue_category, r.image_url, r.reporter_id, r.reporter_name, r.reporter_email,
        r.reporter_phone, r.created_at, r.updated_at`

func scanReport(row pgx.Row, dst *Report) error {
	return row.Scan(&dst.ID, &dst.AssetID, &dst.Status, &dst.Urgency, &dst.IssueTitle,
		&dst.IssueDescription, &dst.IssueCategory, &dst.ImageURL, &dst.ReporterID,
		&dst.ReporterName, &dst.ReporterEmail, &dst.ReporterPhone,
		&dst.CreatedAt, &dst.UpdatedAt)
}

// ReporterParams identifica quem abriu o chamado. Todos os campos são
// opcionais; chamados anônimos são aceitos.
type ReporterParams struct {
	UserID *uuid.UUID
	Name   *string
	Email  *string
	Phone  *string
}

// CreateParams agrupa os campos da abertura de chamado.
type CreateParams struct {
	IssueTitle       string
	IssueDescription string
	IssueCategory    *string
	Urgency          string
	Reporter         ReporterParams
}

// CreateForAsset abre um chamado para um ativo existente. Dentro da mesma
// transação o status do ativo é forçado para "broken"; se o ativo não
// existe, nada é gravado.
func (r *Repository) CreateForAsset(ctx context.Context, assetID uuid.UUID, arg CreateParams) (*Report, error) {
	var rep Report
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		brokenID, err := resolveStatusTx(ctx, tx, asset.StatusBroken)
		if err != nil {
			return err
		}

		cmd, err := tx.Exec(ctx, `
        UPDATE assets SET status_id = $2, updated_at = now() WHERE id = $1`,
			assetID, brokenID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return asset.ErrNotFound
		}

		return insertReportTx(ctx, tx, assetID, arg, &rep)
	})
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// ManualAssetParams descreve o ativo declarado à mão quando o solicitante
// não sabe apontar um cadastro existente.
type ManualAssetParams struct {
	AssetName string
	AssetCode string
	TypeName  string
}

// CreateWithNewAsset abre um chamado sintetizando o ativo na mesma
// transação, já com status "broken".
func (r *Repository) CreateWithNewAsset(ctx context.Context, man ManualAssetParams, arg CreateParams) (*Report, error) {
	var rep Report
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		typeID, err := resolveTypeTx(ctx, tx, man.TypeName)
		if err != nil {
			return err
		}
		brokenID, err := resolveStatusTx(ctx, tx, asset.StatusBroken)
		if err != nil {
			return err
		}

		var assetID uuid.UUID
		err = tx.QueryRow(ctx, `
        INSERT INTO assets (asset_code, asset_name, type_id, status_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id`,
			man.AssetCode, man.AssetName, typeID, brokenID).Scan(&assetID)
		if err != nil {
			return err
		}

		return insertReportTx(ctx, tx, assetID, arg, &rep)
	})
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func insertReportTx(ctx context.Context, tx pgx.Tx, assetID uuid.UUID, arg CreateParams, dst *Report) error {
	query := `
        INSERT INTO repair_reports (asset_id, status, urgency, issue_title, issue_description,
            issue_category, reporter_id, reporter_name, reporter_email, reporter_phone)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING ` + strings.ReplaceAll(reportColumns, "r.", "")

	return scanReport(tx.QueryRow(ctx, query,
		assetID, StatusPending, arg.Urgency, arg.IssueTitle, arg.IssueDescription,
		arg.IssueCategory, arg.Reporter.UserID, arg.Reporter.Name, arg.Reporter.Email,
		arg.Reporter.Phone), dst)
}

func resolveStatusTx(ctx context.Context, tx pgx.Tx, name string) (uuid.UUID, error) {
	return resolveByNameTx(ctx, tx, "asset_statuses", name)
}

func resolveTypeTx(ctx context.Context, tx pgx.Tx, name string) (uuid.UUID, error) {
	return resolveByNameTx(ctx, tx, "asset_types", name)
}

func resolveByNameTx(ctx context.Context, tx pgx.Tx, table, name string) (uuid.UUID, error) {
	query := `
        WITH ins AS (
            INSERT INTO ` + table + ` (name) VALUES ($1)
            ON CONFLICT (name) DO NOTHING
            RETURNING id
        )
        SELECT id FROM ins
        UNION ALL
        SELECT id FROM ` + table + ` WHERE name = $1
        LIMIT 1`

	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, strings.TrimSpace(name)).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// UpdateStatus muda o status do chamado e grava exatamente uma linha de
// histórico, tudo na mesma transação. Chamado inexistente não gera linha.
func (r *Repository) UpdateStatus(ctx context.Context, reportID uuid.UUID, status string, actorID *uuid.UUID, message string) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
        UPDATE repair_reports SET status = $2, updated_at = now() WHERE id = $1`,
			reportID, status)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}

		_, err = tx.Exec(ctx, `
        INSERT INTO repair_activity_logs (report_id, actor_user_id, message)
        VALUES ($1, $2, $3)`,
			reportID, actorID, message)
		return err
	})
}

// SetImage grava a URL da imagem anexada ao chamado.
func (r *Repository) SetImage(ctx context.Context, reportID uuid.UUID, url string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE repair_reports SET image_url = $2, updated_at = now() WHERE id = $1`,
		reportID, url)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID busca o chamado com os campos do ativo resolvidos.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	query := `
        SELECT ` + reportColumns + `, a.asset_code, a.asset_name, s.name
        FROM repair_reports r
        JOIN assets a ON a.id = r.asset_id
        JOIN asset_statuses s ON s.id = a.status_id
        WHERE r.id = $1`

	var d Detail
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.AssetID, &d.Status, &d.Urgency, &d.IssueTitle, &d.IssueDescription,
		&d.IssueCategory, &d.ImageURL, &d.ReporterID, &d.ReporterName, &d.ReporterEmail,
		&d.ReporterPhone, &d.CreatedAt, &d.UpdatedAt,
		&d.AssetCode, &d.AssetName, &d.StatusName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List devolve chamados em ordem decrescente de abertura.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Detail, error) {
	builder := psql.Select(strings.ReplaceAll(reportColumns, "\n", " ")+
		", a.asset_code, a.asset_name, s.name").
		From("repair_reports r").
		Join("assets a ON a.id = r.asset_id").
		Join("asset_statuses s ON s.id = a.status_id").
		OrderBy("r.created_at DESC")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"r.status": filter.Status})
	}
	if filter.Urgency != "" {
		builder = builder.Where(sq.Eq{"r.urgency": filter.Urgency})
	}
	if filter.AssetID != nil {
		builder = builder.Where(sq.Eq{"r.asset_id": *filter.AssetID})
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

	var reports []Detail
	for rows.Next() {
		var d Detail
		err := rows.Scan(&d.ID, &d.AssetID, &d.Status, &d.Urgency, &d.IssueTitle,
			&d.IssueDescription, &d.IssueCategory, &d.ImageURL, &d.ReporterID,
			&d.ReporterName, &d.ReporterEmail, &d.ReporterPhone,
			&d.CreatedAt, &d.UpdatedAt, &d.AssetCode, &d.AssetName, &d.StatusName)
		if err != nil {
			return nil, err
		}
		reports = append(reports, d)
	}
	return reports, rows.Err()
}

// ListActivity devolve o histórico do chamado em ordem cronológica.
func (r *Repository) ListActivity(ctx context.Context, reportID uuid.UUID) ([]ActivityLog, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, report_id, actor_user_id, message, created_at
        FROM repair_activity_logs
        WHERE report_id = $1
        ORDER BY created_at ASC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ActivityLog
	for rows.Next() {
		var l ActivityLog
		if err := rows.Scan(&l.ID, &l.ReportID, &l.ActorUserID, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
