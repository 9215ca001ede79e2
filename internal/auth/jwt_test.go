package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSignAndParseRoundTrip(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)

	claims := &Claims{Role: "staff", RoleRefreshedAt: time.Now().Unix()}
	claims.Subject = uuid.NewString()

	token, err := mgr.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	parsed, err := mgr.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if parsed.Role != "staff" {
		t.Fatalf("role = %q", parsed.Role)
	}
	if parsed.Subject != claims.Subject {
		t.Fatalf("subject = %q, want %q", parsed.Subject, claims.Subject)
	}
	if parsed.RoleRefreshedAt != claims.RoleRefreshedAt {
		t.Fatalf("role_refreshed_at = %d", parsed.RoleRefreshedAt)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)
	other := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour)

	claims := &Claims{Role: "viewer", RoleRefreshedAt: time.Now().Unix()}
	claims.Subject = uuid.NewString()

	token, err := mgr.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := other.ParseAndValidate(token); err == nil {
		t.Fatal("assinatura com outro segredo deveria falhar")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	mgr := NewJWTManager(testSecret, -time.Minute)

	claims := &Claims{Role: "viewer", RoleRefreshedAt: time.Now().Unix()}
	claims.Subject = uuid.NewString()

	token, err := mgr.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := mgr.ParseAndValidate(token); err == nil {
		t.Fatal("token expirado deveria falhar")
	}
}

func TestSignRejectsInvalidSubject(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)

	claims := &Claims{Role: "viewer"}
	claims.Subject = "not-a-uuid"
	if _, err := mgr.Sign(claims); err == nil {
		t.Fatal("subject fora do formato UUID deveria falhar")
	}
}

func TestRoleAge(t *testing.T) {
	now := time.Now()

	claims := &Claims{RoleRefreshedAt: now.Add(-5 * time.Minute).Unix()}
	if age := claims.RoleAge(now); age < 4*time.Minute || age > 6*time.Minute {
		t.Fatalf("age = %v", age)
	}

	// Sem marca de revalidação a idade é máxima, forçando refresh.
	unset := &Claims{}
	if age := unset.RoleAge(now); age < 100*365*24*time.Hour {
		t.Fatalf("claims sem marca deveriam ter idade máxima, got %v", age)
	}
}
