package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kurufix/api/internal/http/middleware"
	"github.com/kurufix/api/internal/report"
)

// maxImageBytes limita o upload de anexo de chamado.
const maxImageBytes = 8 << 20

// CreateReport abre um chamado. Rota pública: quem reporta um
// equipamento quebrado não precisa de conta; sessão presente apenas
// enriquece o registro do solicitante.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AssetID          string `json:"assetId"`
		AssetNameManual  string `json:"assetNameManual"`
		AssetCodeManual  string `json:"assetCodeManual"`
		AssetTypeManual  string `json:"assetTypeManual"`
		IssueTitle       string `json:"issueTitle"`
		IssueDescription string `json:"issueDescription"`
		IssueCategory    string `json:"issueCategory"`
		Urgency          string `json:"urgency"`
		ReporterName     string `json:"reporterName"`
		ReporterEmail    string `json:"reporterEmail"`
		ReporterPhone    string `json:"reporterPhone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	input := report.CreateInput{
		AssetNameManual:  payload.AssetNameManual,
		AssetCodeManual:  payload.AssetCodeManual,
		AssetTypeManual:  payload.AssetTypeManual,
		IssueTitle:       payload.IssueTitle,
		IssueDescription: payload.IssueDescription,
		IssueCategory:    payload.IssueCategory,
		Urgency:          payload.Urgency,
		ReporterName:     payload.ReporterName,
		ReporterEmail:    payload.ReporterEmail,
		ReporterPhone:    payload.ReporterPhone,
	}

	if v := strings.TrimSpace(payload.AssetID); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "assetId inválido", nil)
			return
		}
		input.AssetID = &id
	}

	if subject := middleware.GetSubject(r.Context()); subject != "" {
		if id, err := uuid.Parse(subject); err == nil {
			input.ReporterID = &id
			h.fillReporterFromAccount(r.Context(), id, &input)
		}
	}

	created, err := h.reports.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// fillReporterFromAccount completa nome e e-mail do solicitante a partir
// do cadastro quando a sessão identifica quem reporta e o payload não
// trouxe os campos. Melhor esforço: falha de leitura não barra o chamado.
func (h *Handler) fillReporterFromAccount(ctx context.Context, userID uuid.UUID, input *report.CreateInput) {
	if input.ReporterName != "" && input.ReporterEmail != "" {
		return
	}

	user, err := h.repo.GetUserByID(ctx, userID)
	if err != nil {
		return
	}
	if input.ReporterName == "" && user.Name != nil {
		input.ReporterName = *user.Name
	}
	if input.ReporterEmail == "" && user.Email != nil {
		input.ReporterEmail = *user.Email
	}
}

// ListReports lista chamados para a equipe de manutenção.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	var filter report.Filter

	filter.Status = strings.TrimSpace(r.URL.Query().Get("status"))
	filter.Urgency = strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("urgency")))
	if v := strings.TrimSpace(r.URL.Query().Get("asset_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "asset_id inválido", nil)
			return
		}
		filter.AssetID = &id
	}
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	reports, err := h.reports.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// GetReport devolve o chamado com os dados do ativo.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	detail, err := h.reports.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, detail)
}

// ListReportActivity devolve o histórico do chamado.
func (h *Handler) ListReportActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	logs, err := h.reports.Activity(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"activity": logs})
}

// UpdateReportStatus muda o status e registra uma linha de histórico na
// mesma transação.
func (h *Handler) UpdateReportStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	var actor *uuid.UUID
	if subject, err := h.subjectUUID(r); err == nil {
		actor = &subject
	}

	if err := h.reports.UpdateStatus(r.Context(), id, payload.Status, actor, payload.Message); err != nil {
		writeServiceError(w, err)
		return
	}

	detail, err := h.reports.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, detail)
}

// UploadReportImage anexa uma imagem ao chamado via multipart.
func (h *Handler) UploadReportImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "multipart inválido", nil)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo image obrigatório", nil)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro lendo imagem", nil)
		return
	}

	url, err := h.reports.AttachImage(r.Context(), id, header.Filename,
		header.Header.Get("Content-Type"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"image_url": url})
}
