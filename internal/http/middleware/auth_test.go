package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kurufix/api/internal/auth"
)

type stubAuthority struct {
	calls   int
	role    string
	changed bool
	err     error
}

func (s *stubAuthority) IssueOrUpdateClaims(_ context.Context, claims *auth.Claims) (*auth.Claims, bool, error) {
	s.calls++
	if s.err != nil {
		return nil, false, s.err
	}
	if s.changed {
		claims.Role = s.role
		claims.RoleRefreshedAt = time.Now().Unix()
	}
	return claims, s.changed, nil
}

func testJWT(t *testing.T) *auth.JWTManager {
	t.Helper()
	return auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
}

func signedToken(t *testing.T, jwt *auth.JWTManager, role string) string {
	t.Helper()
	claims := &auth.Claims{Role: role, RoleRefreshedAt: time.Now().Unix()}
	claims.Subject = uuid.NewString()
	token, err := jwt.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func echoHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(GetRole(r.Context())))
	})
}

func TestAuthMissingToken(t *testing.T) {
	mw := Auth(testJWT(t), &stubAuthority{}, time.Hour)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	mw(echoHandler(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthAcceptsCookieAndBearer(t *testing.T) {
	jwt := testJWT(t)
	token := signedToken(t, jwt, "viewer")
	mw := Auth(jwt, &stubAuthority{}, time.Hour)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	mw(echoHandler(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "viewer" {
		t.Fatalf("cookie: status=%d body=%q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	mw(echoHandler(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "viewer" {
		t.Fatalf("bearer: status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestAuthGarbageToken(t *testing.T) {
	mw := Auth(testJWT(t), &stubAuthority{}, time.Hour)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	mw(echoHandler(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRemintsCookieWhenClaimsChange(t *testing.T) {
	jwt := testJWT(t)
	authority := &stubAuthority{changed: true, role: "admin"}
	mw := Auth(jwt, authority, time.Hour)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: signedToken(t, jwt, "viewer")})
	mw(echoHandler(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "admin" {
		t.Fatalf("role no contexto = %q, want admin", rec.Body.String())
	}

	var reminted *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			reminted = cookie
		}
	}
	if reminted == nil {
		t.Fatal("cookie de sessão deveria ser reposto")
	}
	claims, err := jwt.ParseAndValidate(reminted.Value)
	if err != nil {
		t.Fatalf("cookie reposto inválido: %v", err)
	}
	if claims.Role != "admin" {
		t.Fatalf("cookie reposto com role %q, want admin", claims.Role)
	}
}

func TestAuthDoesNotRemintWhenFresh(t *testing.T) {
	jwt := testJWT(t)
	authority := &stubAuthority{}
	mw := Auth(jwt, authority, time.Hour)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: signedToken(t, jwt, "staff")})
	mw(echoHandler(t)).ServeHTTP(rec, req)

	if authority.calls != 1 {
		t.Fatalf("authority.calls = %d, want 1", authority.calls)
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			t.Fatal("claim fresca não deveria repor cookie")
		}
	}
}

func TestOptionalAuthInjectsSubjectWhenPresent(t *testing.T) {
	jwt := testJWT(t)
	mw := OptionalAuth(jwt, &stubAuthority{}, time.Hour)

	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = GetSubject(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: signedToken(t, jwt, "viewer")})
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if subject == "" {
		t.Fatal("sessão válida deveria injetar o subject")
	}
}

func TestOptionalAuthPassesAnonymousThrough(t *testing.T) {
	jwt := testJWT(t)
	mw := OptionalAuth(jwt, &stubAuthority{}, time.Hour)

	for name, decorate := range map[string]func(*http.Request){
		"sem token":    func(*http.Request) {},
		"token podre":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-token") },
		"token alheio": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: signedToken(t, auth.NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour), "admin")}) },
	} {
		var subject string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject = GetSubject(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/reports", nil)
		decorate(req)
		mw(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, rota pública nunca rejeita", name, rec.Code)
		}
		if subject != "" {
			t.Fatalf("%s: subject = %q, want vazio", name, subject)
		}
	}
}
