package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kurufix/api/internal/repo"
)

// ListUsers lista usuários com o papel resolvido (tela de administração).
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}
	if err := h.rbac.RequireRole(r.Context(), actor, repo.RoleAdmin); err != nil {
		writeServiceError(w, err)
		return
	}

	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// ListRoles devolve os papéis cadastrados.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.repo.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// AssignRole vincula um papel existente a um usuário. Além do guard de
// rota, o papel do ator é revalidado no banco: claim de token nunca
// autoriza escrita administrativa.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	actor, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}
	if err := h.rbac.RequireRole(r.Context(), actor, repo.RoleAdmin); err != nil {
		writeServiceError(w, err)
		return
	}

	var payload struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	userID, err := uuid.Parse(strings.TrimSpace(payload.UserID))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "userId inválido", nil)
		return
	}
	if strings.TrimSpace(payload.Role) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "role obrigatório", nil)
		return
	}

	if err := h.sessions.AssignRole(r.Context(), userID, payload.Role); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// RemoveRole desfaz o vínculo de papel do usuário. O usuário permanece
// cadastrado, preservando o histórico dos chamados que abriu.
func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	actor, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}
	if err := h.rbac.RequireRole(r.Context(), actor, repo.RoleAdmin); err != nil {
		writeServiceError(w, err)
		return
	}

	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	userID, err := uuid.Parse(strings.TrimSpace(payload.UserID))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "userId inválido", nil)
		return
	}

	if err := h.sessions.RemoveRole(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
