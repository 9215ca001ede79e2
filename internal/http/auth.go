package http

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/kurufix/api/internal/auth"
	"github.com/kurufix/api/internal/http/middleware"
	"github.com/kurufix/api/internal/service"
)

const oauthStateTTL = 10 * time.Minute

// refreshCookieName carrega o refresh token opaco, separado do token de
// sessão para que o access token nunca precise ir ao banco.
const refreshCookieName = "kurufix_refresh"

// Register cria conta por credenciais. O papel padrão viewer já nasce
// vinculado.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Username: payload.Username,
		Password: payload.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"id": user.ID})
}

// Login autentica por e-mail ou username + senha e abre a sessão.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Identifier string `json:"identifier"`
		Email      string `json:"email"`
		Username   string `json:"username"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	identifier := strings.TrimSpace(payload.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(payload.Email)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(payload.Username)
	}
	if identifier == "" || payload.Password == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "identificador e senha obrigatórios", nil)
		return
	}

	result, err := h.sessions.Login(r.Context(), identifier, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.writeSession(w, result)
}

// GoogleLogin redireciona para o consentimento do Google com state
// anti-forgery guardado no Redis.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "login Google não configurado", nil)
		return
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	if err := h.redis.Set(r.Context(), auth.OAuthStateRedisKey(state), "1", oauthStateTTL).Err(); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	http.Redirect(w, r, h.google.LoginURL(state), http.StatusFound)
}

// GoogleCallback troca o code pela identidade, valida o domínio
// institucional e abre a sessão.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "login Google não configurado", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "state e code obrigatórios", nil)
		return
	}

	val, err := h.redis.GetDel(r.Context(), auth.OAuthStateRedisKey(state)).Result()
	if err == redis.Nil || val == "" {
		WriteError(w, http.StatusUnauthorized, "AUTH", "state inválido ou expirado", nil)
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	identity, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		log.Warn().Err(err).Msg("troca de code do Google falhou")
		WriteError(w, http.StatusUnauthorized, "AUTH", "autenticação Google falhou", nil)
		return
	}

	result, err := h.sessions.ExternalSignIn(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.writeSession(w, result)
}

// Refresh troca o refresh token por uma sessão nova.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := h.refreshFromRequest(r)
	if raw == "" {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh token ausente", nil)
		return
	}

	result, err := h.sessions.Refresh(r.Context(), raw)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.writeSession(w, result)
}

// Logout revoga o refresh token e limpa os cookies de sessão.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := h.refreshFromRequest(r); raw != "" {
		if err := h.sessions.Logout(r.Context(), raw); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	middleware.ClearSessionCookie(w)
	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Me devolve o perfil do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	profile, err := h.sessions.Me(r.Context(), subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// UpdateMe edita o próprio perfil. Username não muda depois de definido;
// troca de senha exige confirmação.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	err = h.accounts.UpdateProfile(r.Context(), subject, service.UpdateProfileInput{
		Name:            payload.Name,
		Email:           payload.Email,
		Username:        payload.Username,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	profile, err := h.sessions.Me(r.Context(), subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) writeSession(w http.ResponseWriter, result *service.LoginResult) {
	middleware.SetSessionCookie(w, result.AccessToken, h.cfg.JWTAccessTTL)
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    result.RefreshToken,
		Path:     "/auth",
		Expires:  result.RefreshExpiry,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"user":          result.Profile,
	})
}

func (h *Handler) refreshFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
		return strings.TrimSpace(payload.RefreshToken)
	}
	return ""
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) subjectUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(middleware.GetSubject(r.Context()))
}
