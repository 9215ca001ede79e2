package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kurufix/api/internal/auth"
)

// SessionCookieName é o cookie HTTP-only que carrega o token de sessão.
const SessionCookieName = "kurufix_session"

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyRole    contextKey = "role"
)

// ClaimsAuthority revalida a claim de papel embutida no token. O
// middleware nunca decide sozinho quando ir ao banco.
type ClaimsAuthority interface {
	IssueOrUpdateClaims(ctx context.Context, claims *auth.Claims) (*auth.Claims, bool, error)
}

// Auth valida o token de sessão (cookie ou Bearer), delega a revalidação
// do papel à autoridade de sessão e injeta subject/papel no contexto.
// Quando a claim muda, o token é re-assinado e o cookie reposto.
func Auth(jwtManager *auth.JWTManager, authority ClaimsAuthority, cookieTTL time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			claims, changed, err := authority.IssueOrUpdateClaims(r.Context(), claims)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "sessão inválida")
				return
			}

			if changed {
				if signed, err := jwtManager.Sign(claims); err == nil {
					SetSessionCookie(w, signed, cookieTTL)
				}
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injeta subject/papel quando a requisição carrega uma
// sessão válida e deixa passar como anônima quando não carrega. Nunca
// responde 401: serve às rotas públicas que vinculam a ação a uma conta
// existente sem exigir uma.
func OptionalAuth(jwtManager *auth.JWTManager, authority ClaimsAuthority, cookieTTL time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwtManager.ParseAndValidate(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, changed, err := authority.IssueOrUpdateClaims(r.Context(), claims)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if changed {
				if signed, err := jwtManager.Sign(claims); err == nil {
					SetSessionCookie(w, signed, cookieTTL)
				}
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SetSessionCookie grava o token de sessão como cookie HTTP-only.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie apaga o cookie de sessão (logout).
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSubject recupera o subject do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetRole recupera o papel do contexto.
func GetRole(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyRole).(string)
	return val
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
