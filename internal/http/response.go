package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kurufix/api/internal/asset"
	"github.com/kurufix/api/internal/repo"
	"github.com/kurufix/api/internal/report"
	"github.com/kurufix/api/internal/service"
	"github.com/kurufix/api/internal/storage"
	"github.com/kurufix/api/internal/util"
)

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// writeServiceError traduz erros das camadas de serviço para o envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation *util.ValidationError
	var conflict *repo.ConflictError

	switch {
	case errors.As(err, &validation):
		WriteError(w, http.StatusBadRequest, "VALIDATION", validation.Message,
			map[string]any{"field": validation.Field})
	case errors.As(err, &conflict):
		WriteError(w, http.StatusConflict, "CONFLICT", conflict.Error(),
			map[string]any{"field": conflict.Field, "value": conflict.Value})
	case errors.Is(err, service.ErrPasswordMismatch):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(),
			map[string]any{"field": "confirmPassword"})
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "papel insuficiente", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", "credenciais inválidas", nil)
	case errors.Is(err, service.ErrRefreshInvalid):
		WriteError(w, http.StatusUnauthorized, "AUTH", "sessão expirada", nil)
	case errors.Is(err, service.ErrDomainNotAllowed):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "domínio de e-mail não autorizado", nil)
	case errors.Is(err, repo.ErrNotFound),
		errors.Is(err, asset.ErrNotFound),
		errors.Is(err, asset.ErrTypeNotFound),
		errors.Is(err, asset.ErrLocationNotFound),
		errors.Is(err, report.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, storage.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "armazenamento de anexos indisponível", nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
