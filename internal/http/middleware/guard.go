package middleware

import (
	"net/http"
	"strings"

	"github.com/kurufix/api/internal/repo"
)

// RequireAdmin restringe a rota a administradores. Decide apenas pela
// claim do token; escritas sensíveis revalidam o papel no banco dentro
// dos serviços.
func RequireAdmin(next http.Handler) http.Handler {
	return requireRoles(next, repo.RoleAdmin)
}

// RequireStaff restringe a rota à equipe de manutenção; admin também entra.
func RequireStaff(next http.Handler) http.Handler {
	return requireRoles(next, repo.RoleStaff, repo.RoleAdmin)
}

func requireRoles(next http.Handler, allowed ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSubject(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "AUTH", "autenticação necessária")
			return
		}

		role := strings.TrimSpace(GetRole(r.Context()))
		for _, want := range allowed {
			if strings.EqualFold(role, want) {
				next.ServeHTTP(w, r)
				return
			}
		}

		writeError(w, http.StatusForbidden, "FORBIDDEN", "papel insuficiente para esta área")
	})
}
