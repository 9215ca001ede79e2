package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kurufix/api/internal/asset"
)

// ListAssets lista ativos com filtros de tipo, status, localização e
// busca textual.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	var filter asset.Filter

	if v := strings.TrimSpace(r.URL.Query().Get("type_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "type_id inválido", nil)
			return
		}
		filter.TypeID = &id
	}
	if v := strings.TrimSpace(r.URL.Query().Get("status_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status_id inválido", nil)
			return
		}
		filter.StatusID = &id
	}
	if v := strings.TrimSpace(r.URL.Query().Get("location_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "location_id inválido", nil)
			return
		}
		filter.LocationID = &id
	}
	filter.Search = strings.TrimSpace(r.URL.Query().Get("search"))
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

	assets, err := h.assets.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"assets": assets})
}

// GetAsset devolve o ativo com tipo, status e localização resolvidos.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	detail, err := h.assets.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, detail)
}

// AssetMeta devolve tipos e status para os formulários de abertura de
// chamado, sem exigir sessão.
func (h *Handler) AssetMeta(w http.ResponseWriter, r *http.Request) {
	types, statuses, err := h.assets.Meta(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"types":    types,
		"statuses": statuses,
	})
}

type assetPayload struct {
	AssetCode    string   `json:"assetCode"`
	AssetName    string   `json:"assetName"`
	Brand        string   `json:"brand"`
	Model        string   `json:"model"`
	SerialNo     string   `json:"serialNo"`
	Price        *float64 `json:"price"`
	PurchaseDate string   `json:"purchaseDate"`
	WarrantyExp  string   `json:"warrantyExp"`
	Notes        string   `json:"notes"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Building     string   `json:"building"`
	Room         string   `json:"room"`
}

// CreateAsset cadastra um ativo (admin; papel revalidado no banco).
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	actor, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload assetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	input := asset.CreateInput{
		AssetCode:  payload.AssetCode,
		AssetName:  payload.AssetName,
		Brand:      payload.Brand,
		Model:      payload.Model,
		SerialNo:   payload.SerialNo,
		Price:      payload.Price,
		Notes:      payload.Notes,
		TypeName:   payload.Type,
		StatusName: payload.Status,
		Building:   payload.Building,
		Room:       payload.Room,
	}

	if input.PurchaseDate, err = parseDate(payload.PurchaseDate); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "purchaseDate inválida", nil)
		return
	}
	if input.WarrantyExp, err = parseDate(payload.WarrantyExp); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "warrantyExp inválida", nil)
		return
	}

	created, err := h.assets.Create(r.Context(), actor, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// UpdateAsset edita campos do ativo (admin; papel revalidado no banco).
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	actor, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload assetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	err = h.assets.Update(r.Context(), actor, id, asset.UpdateInput{
		AssetName:  payload.AssetName,
		AssetCode:  payload.AssetCode,
		Brand:      payload.Brand,
		Model:      payload.Model,
		SerialNo:   payload.SerialNo,
		Notes:      payload.Notes,
		TypeName:   payload.Type,
		StatusName: payload.Status,
		Building:   payload.Building,
		Room:       payload.Room,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	detail, err := h.assets.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, detail)
}

// DeleteAsset remove o ativo (admin; papel revalidado no banco).
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	actor, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.assets.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
