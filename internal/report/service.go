package report

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kurufix/api/internal/asset"
	"github.com/kurufix/api/internal/storage"
	"github.com/kurufix/api/internal/util"
)

type repository interface {
	CreateForAsset(ctx context.Context, assetID uuid.UUID, arg CreateParams) (*Report, error)
	CreateWithNewAsset(ctx context.Context, man ManualAssetParams, arg CreateParams) (*Report, error)
	UpdateStatus(ctx context.Context, reportID uuid.UUID, status string, actorID *uuid.UUID, message string) error
	SetImage(ctx context.Context, reportID uuid.UUID, url string) error
	GetByID(ctx context.Context, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, filter Filter) ([]Detail, error)
	ListActivity(ctx context.Context, reportID uuid.UUID) ([]ActivityLog, error)
}

// Service concentra o ciclo de vida de chamados: abertura (com ou sem
// ativo cadastrado), mudança de status com histórico e anexos.
type Service struct {
	repo     repository
	uploader storage.Uploader
}

// NewService cria o serviço de chamados.
func NewService(r repository, uploader storage.Uploader) *Service {
	if uploader == nil {
		uploader = storage.NoopUploader{}
	}
	return &Service{repo: r, uploader: uploader}
}

// CreateInput agrupa os campos da abertura de chamado. AssetID aponta um
// cadastro existente; na ausência dele, AssetNameManual descreve o ativo.
type CreateInput struct {
	AssetID          *uuid.UUID
	AssetNameManual  string
	AssetCodeManual  string
	AssetTypeManual  string
	IssueTitle       string
	IssueDescription string
	IssueCategory    string
	Urgency          string
	ReporterID       *uuid.UUID
	ReporterName     string
	ReporterEmail    string
	ReporterPhone    string
}

// Create abre um chamado. Com AssetID, o ativo apontado é marcado como
// "broken" na mesma transação; sem AssetID, o ativo declarado à mão é
// criado já quebrado. Sem nenhuma das duas referências, a validação
// aponta assetNameManual.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Report, error) {
	if err := util.RequireString(input.IssueTitle, "issueTitle"); err != nil {
		return nil, err
	}
	if err := util.RequireString(input.IssueDescription, "issueDescription"); err != nil {
		return nil, err
	}

	urgency := strings.ToUpper(strings.TrimSpace(input.Urgency))
	if urgency == "" {
		urgency = UrgencyMedium
	}
	if !ValidUrgency(urgency) {
		return nil, &util.ValidationError{Field: "urgency", Message: "urgência inválida: " + input.Urgency}
	}

	params := CreateParams{
		IssueTitle:       strings.TrimSpace(input.IssueTitle),
		IssueDescription: strings.TrimSpace(input.IssueDescription),
		Urgency:          urgency,
		Reporter: ReporterParams{
			UserID: input.ReporterID,
		},
	}
	if v := strings.TrimSpace(input.IssueCategory); v != "" {
		params.IssueCategory = &v
	}
	if v := strings.TrimSpace(input.ReporterName); v != "" {
		params.Reporter.Name = &v
	}
	if v := strings.TrimSpace(input.ReporterEmail); v != "" {
		params.Reporter.Email = &v
	}
	if v := strings.TrimSpace(input.ReporterPhone); v != "" {
		params.Reporter.Phone = &v
	}

	if input.AssetID != nil {
		return s.repo.CreateForAsset(ctx, *input.AssetID, params)
	}

	manualName := strings.TrimSpace(input.AssetNameManual)
	if manualName == "" {
		return nil, &util.ValidationError{
			Field:   "assetNameManual",
			Message: "informe assetId ou assetNameManual",
		}
	}

	man := ManualAssetParams{
		AssetName: manualName,
		AssetCode: strings.TrimSpace(input.AssetCodeManual),
		TypeName:  strings.TrimSpace(input.AssetTypeManual),
	}
	if man.AssetCode == "" {
		man.AssetCode = util.FallbackAssetCode()
	}
	if man.TypeName == "" {
		man.TypeName = asset.DefaultTypeName
	}

	rep, err := s.repo.CreateWithNewAsset(ctx, man, params)
	if err != nil {
		return nil, err
	}
	log.Info().Str("asset_code", man.AssetCode).Str("report_id", rep.ID.String()).
		Msg("ativo sintetizado na abertura de chamado")
	return rep, nil
}

// UpdateStatus muda o status de um chamado e registra uma linha de
// histórico. Mensagem vazia vira o texto padrão com o novo status.
// Transições para trás são permitidas (um chamado fechado pode reabrir).
func (s *Service) UpdateStatus(ctx context.Context, reportID uuid.UUID, status string, actorID *uuid.UUID, message string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !ValidStatus(status) {
		return &util.ValidationError{Field: "status", Message: "status inválido: " + status}
	}

	message = strings.TrimSpace(message)
	if message == "" {
		message = fmt.Sprintf("Status changed to %s", status)
	}

	return s.repo.UpdateStatus(ctx, reportID, status, actorID, message)
}

// AttachImage envia a imagem ao backend de blobs e grava a URL no
// chamado. O chamado é conferido antes do upload para não deixar objeto
// órfão no bucket quando o id não existe.
func (s *Service) AttachImage(ctx context.Context, reportID uuid.UUID, filename, contentType string, body []byte) (string, error) {
	if len(body) == 0 {
		return "", &util.ValidationError{Field: "image", Message: "imagem vazia"}
	}

	if _, err := s.repo.GetByID(ctx, reportID); err != nil {
		return "", err
	}

	ext := path.Ext(filename)
	key := fmt.Sprintf("reports/%s/%s%s", reportID, uuid.NewString(), ext)

	result, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:         key,
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.SetImage(ctx, reportID, result.URL); err != nil {
		return "", err
	}
	return result.URL, nil
}

// Get busca um chamado.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetByID(ctx, id)
}

// List devolve chamados dentro do filtro informado.
func (s *Service) List(ctx context.Context, filter Filter) ([]Detail, error) {
	if filter.Status != "" {
		filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
		if !ValidStatus(filter.Status) {
			return nil, &util.ValidationError{Field: "status", Message: "status inválido: " + filter.Status}
		}
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Activity devolve o histórico de um chamado.
func (s *Service) Activity(ctx context.Context, reportID uuid.UUID) ([]ActivityLog, error) {
	return s.repo.ListActivity(ctx, reportID)
}
