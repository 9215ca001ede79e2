package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func requestWithSession(role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), ContextKeySubject, uuid.NewString())
	ctx = context.WithValue(ctx, ContextKeyRole, role)
	return req.WithContext(ctx)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardMatrix(t *testing.T) {
	cases := []struct {
		name   string
		guard  func(http.Handler) http.Handler
		role   string
		anon   bool
		expect int
	}{
		{"admin area sem sessão", RequireAdmin, "", true, http.StatusUnauthorized},
		{"admin area com viewer", RequireAdmin, "viewer", false, http.StatusForbidden},
		{"admin area com staff", RequireAdmin, "staff", false, http.StatusForbidden},
		{"admin area com admin", RequireAdmin, "admin", false, http.StatusOK},
		{"admin area papel case insensitive", RequireAdmin, "Admin", false, http.StatusOK},
		{"staff area sem sessão", RequireStaff, "", true, http.StatusUnauthorized},
		{"staff area com viewer", RequireStaff, "viewer", false, http.StatusForbidden},
		{"staff area com staff", RequireStaff, "staff", false, http.StatusOK},
		{"staff area admite admin", RequireStaff, "admin", false, http.StatusOK},
		{"papel desconhecido", RequireStaff, "superuser", false, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			var req *http.Request
			if tc.anon {
				req = httptest.NewRequest(http.MethodGet, "/", nil)
			} else {
				req = requestWithSession(tc.role)
			}

			tc.guard(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tc.expect {
				t.Fatalf("status = %d, want %d", rec.Code, tc.expect)
			}
		})
	}
}
