package ui

import (
	"context"
	"net/http"
)

type contextKey string

const (
	clientContextKey    contextKey = "client"
	newClientContextKey contextKey = "new_client"
	langContextKey      contextKey = "lang"
)

// ClientIDFromContext retrieves the client id from the request context.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientContextKey).(string)
	return id
}

// IsNewClient reports whether the client cookie was issued by this request.
func IsNewClient(ctx context.Context) bool {
	isNew, _ := ctx.Value(newClientContextKey).(bool)
	return isNew
}

// LanguageFromContext retrieves the negotiated language.
func LanguageFromContext(ctx context.Context) string {
	lang, _ := ctx.Value(langContextKey).(string)
	return lang
}

// WithClientID returns a context carrying the client id.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientContextKey, id)
}

// ClientMiddleware makes sure every request carries a client id, issuing a
// new cookie to browsers seen for the first time.
func (ui *UI) ClientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := ClientIDFromRequest(r)
		if id == "" {
			id = NewClientID()
			SetClientCookie(w, id, ui.secure)
			ctx = context.WithValue(ctx, newClientContextKey, true)
			ui.logger.Debug("new client", "client_id", id)
		}
		next.ServeHTTP(w, r.WithContext(WithClientID(ctx, id)))
	})
}

// LanguageMiddleware negotiates the response language.
func (ui *UI) LanguageMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := ui.catalog.Negotiate(r)
		ctx := context.WithValue(r.Context(), langContextKey, lang)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
