package ui

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(ui.ClientMiddleware)
		r.Use(ui.LanguageMiddleware)

		r.Get("/", ui.HandleIndex)

		// Links sent by email.
		r.Get("/email/{token}/validate", ui.HandleLink)
		r.Get("/reset/{token}", ui.HandleLink)

		// Navigation
		r.Post("/go/{page}", ui.HandleNavigate)
		r.Post("/back", ui.HandleBack)
		r.Get("/search", ui.HandleSearch)
		r.Get("/category/{category}", ui.HandleCategory)
		r.Get("/detail/{category}/{id}", ui.HandleDetail)

		// Session and dialogs
		r.Post("/login", ui.HandleLogin)
		r.Post("/logout", ui.HandleLogout)
		r.Post("/signup", ui.HandleSignup)
		r.Post("/password/reset", ui.HandlePasswordReset)
		r.Post("/password/strength", ui.HandlePasswordStrength)
		r.Post("/modal/{name}/open", ui.HandleModalOpen)
		r.Post("/modal/{name}/close", ui.HandleModalClose)
		r.Post("/consent", ui.HandleConsent)
		r.Post("/lang", ui.HandleLanguage)

		// Account
		r.Post("/account", ui.HandleAccountUpdate)
		r.Post("/account/delete", ui.HandleAccountDelete)
		r.Post("/contribute", ui.HandleContribute)

		// Moderation
		r.Route("/moderation", func(r chi.Router) {
			r.Get("/{category}/{id}", ui.HandleFormDetail)
			r.Post("/back", ui.HandleFormDetailBack)
			r.Post("/forms/{category}/{id}/{decision}", ui.HandleModerateForm)
			r.Post("/users/{id}/{decision}", ui.HandleModerateUser)
		})
	})
}
