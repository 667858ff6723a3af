package ui

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// ClientCookieName identifies the browser. It keys the client's
	// controller and its stored credentials.
	ClientCookieName = "patrimoine_client"
	// ClientCookieDuration is how long a browser keeps its identity.
	ClientCookieDuration = 365 * 24 * time.Hour
)

// ClientIDFromRequest returns the client id carried by the request cookie,
// or "" when it is missing or malformed.
func ClientIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(ClientCookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// NewClientID generates a fresh client id.
func NewClientID() string {
	return uuid.NewString()
}

// SetClientCookie sets the client cookie on the response.
func SetClientCookie(w http.ResponseWriter, clientID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    clientID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ClientCookieDuration),
	})
}

// SetLanguageCookie remembers the language chosen by the user.
func SetLanguageCookie(w http.ResponseWriter, name, lang string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    lang,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ClientCookieDuration),
	})
}
