package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIDFromRequest(t *testing.T) {
	id := NewClientID()

	tests := []struct {
		name   string
		cookie *http.Cookie
		want   string
	}{
		{"no cookie", nil, ""},
		{"valid", &http.Cookie{Name: ClientCookieName, Value: id}, id},
		{"malformed", &http.Cookie{Name: ClientCookieName, Value: "not-a-uuid"}, ""},
		{"other cookie", &http.Cookie{Name: "other", Value: id}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			if got := ClientIDFromRequest(r); got != tt.want {
				t.Errorf("ClientIDFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetClientCookie(t *testing.T) {
	w := httptest.NewRecorder()
	SetClientCookie(w, "abc", true)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != ClientCookieName || c.Value != "abc" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure {
		t.Error("client cookie must be HttpOnly and Secure when requested")
	}
}
