package catalogue

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type memoryStore struct {
	mu    sync.Mutex
	creds map[string]*Credentials
}

func newMemoryStore() *memoryStore {
	return &memoryStore{creds: make(map[string]*Credentials)}
}

func (m *memoryStore) LoadCredentials(_ context.Context, id string) (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memoryStore) SaveCredentials(_ context.Context, id string, c *Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.creds[id] = &cp
	return nil
}

func (m *memoryStore) ClearCredentials(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, id)
	return nil
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestParseAccessToken(t *testing.T) {
	valid := signedToken(t, jwt.MapClaims{
		"sub":       "u1",
		"email":     "a@b.com",
		"firstname": "A",
		"role":      "admin",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	info, err := ParseAccessToken(valid)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if info.Subject != "u1" || info.Email != "a@b.com" || info.Role != "admin" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.IsExpired() {
		t.Error("token should not be expired")
	}

	expired := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	info, err = ParseAccessToken(expired)
	if err != nil {
		t.Fatalf("ParseAccessToken(expired) error = %v", err)
	}
	if !info.IsExpired() {
		t.Error("token should be expired")
	}

	for _, bad := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseAccessToken(bad); err == nil {
			t.Errorf("ParseAccessToken(%q) should fail", bad)
		}
	}
}

func TestCompleteClaims(t *testing.T) {
	full := &Claims{UserID: "u1", FirstName: "A", Email: "a@b.com", Role: "admin"}
	c, synth := completeClaims(full, nil, "a@b.com")
	if synth {
		t.Error("complete claims must not be synthesized")
	}
	if c != *full {
		t.Errorf("claims changed: %+v", c)
	}

	c, synth = completeClaims(nil, &TokenInfo{Subject: "u9", Role: "admin"}, "jean@musee.fr")
	if !synth {
		t.Error("missing claims must be synthesized")
	}
	if c.UserID != "u9" || c.Role != "admin" || c.Email != "jean@musee.fr" || c.FirstName != "jean" {
		t.Errorf("unexpected synthesized claims %+v", c)
	}

	c, _ = completeClaims(nil, nil, "x@y.fr")
	if c.UserID != "local:x@y.fr" {
		t.Errorf("UserID = %q", c.UserID)
	}
}

func TestSession_LoginLogout(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(LoginResult{
			Token: token,
			User:  &Claims{UserID: "u1", FirstName: "A", Email: "a@b.com"},
		})
	})
	store := newMemoryStore()
	sess := client.Bind(store, "client-1")
	ctx := context.Background()

	if sess.IsAuthenticated(ctx) {
		t.Fatal("fresh session must not be authenticated")
	}

	claims, synth, err := sess.Login(ctx, "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if synth {
		t.Error("claims were complete")
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q", claims.UserID)
	}
	if !sess.IsAuthenticated(ctx) {
		t.Error("session should be authenticated after login")
	}
	data, err := sess.GetUserData(ctx)
	if err != nil || data == nil || data.Email != "a@b.com" {
		t.Errorf("GetUserData() = %+v, %v", data, err)
	}

	// Another browser shares nothing.
	if client.Bind(store, "client-2").IsAuthenticated(ctx) {
		t.Error("credentials leaked across clients")
	}

	if err := sess.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if sess.IsAuthenticated(ctx) {
		t.Error("session should not be authenticated after logout")
	}
	if _, err := sess.GetPendingUsers(ctx); !IsUnauthorized(err) {
		t.Errorf("authenticated call without token should be 401, got %v", err)
	}
}

func TestSession_IsAuthenticated_ExpiredToken(t *testing.T) {
	store := newMemoryStore()
	expired := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	store.SaveCredentials(context.Background(), "c", &Credentials{Token: expired})

	sess := NewClient(DefaultConfig(), nil).Bind(store, "c")
	if sess.IsAuthenticated(context.Background()) {
		t.Error("expired token must not authenticate")
	}
}
