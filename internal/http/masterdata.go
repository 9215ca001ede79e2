package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ListAssetTypes devolve os tipos de ativo.
func (h *Handler) ListAssetTypes(w http.ResponseWriter, r *http.Request) {
	types, _, err := h.assets.Meta(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"types": types})
}

// CreateAssetType cadastra um tipo novo (admin).
func (h *Handler) CreateAssetType(w http.ResponseWriter, r *http.Request) {
	actor, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	created, err := h.assets.AddType(r.Context(), actor, payload.Name, payload.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// UpdateAssetType renomeia um tipo (admin).
func (h *Handler) UpdateAssetType(w http.ResponseWriter, r *http.Request) {
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

	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if err := h.assets.RenameType(r.Context(), actor, id, payload.Name, payload.Description); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// DeleteAssetType remove um tipo (admin).
func (h *Handler) DeleteAssetType(w http.ResponseWriter, r *http.Request) {
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

	if err := h.assets.RemoveType(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ListLocations devolve as localizações cadastradas.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.assets.Locations(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"locations": locations})
}

type locationPayload struct {
	Building    string `json:"building"`
	Room        string `json:"room"`
	Floor       string `json:"floor"`
	Description string `json:"description"`
}

// CreateLocation cadastra uma localização (admin).
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	actor, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload locationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	created, err := h.assets.AddLocation(r.Context(), actor,
		payload.Building, payload.Room, payload.Floor, payload.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// UpdateLocation altera uma localização (admin).
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
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

	var payload locationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	err = h.assets.EditLocation(r.Context(), actor, id,
		payload.Building, payload.Room, payload.Floor, payload.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// DeleteLocation remove uma localização (admin).
func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
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

	if err := h.assets.RemoveLocation(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
