// Package ui serves the server-rendered web front end. Every handler
// forwards the request to the controller of the calling browser and then
// redirects to the root, which renders whatever that controller shows.
package ui

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/patrimoine/internal/i18n"
	"github.com/me/patrimoine/internal/password"
	"github.com/me/patrimoine/internal/portal"
	"github.com/me/patrimoine/pkg/catalogue"
	"github.com/me/patrimoine/pkg/model"
)

// ConsentStore remembers which browsers accepted the cookie notice.
type ConsentStore interface {
	RecordConsent(ctx context.Context, clientID string, at time.Time) error
	HasConsent(ctx context.Context, clientID string) (bool, error)
}

// UI handles the web user interface.
type UI struct {
	registry *portal.Registry
	consent  ConsentStore
	catalog  *i18n.Catalog
	logger   *slog.Logger
	secure   bool // Use secure cookies (HTTPS)
}

// Config holds UI configuration.
type Config struct {
	Secure bool // Use secure cookies for HTTPS
}

// New creates a new UI handler. consent may be nil, in which case the
// cookie notice is never shown.
func New(reg *portal.Registry, consent ConsentStore, catalog *i18n.Catalog, logger *slog.Logger, cfg Config) *UI {
	return &UI{
		registry: reg,
		consent:  consent,
		catalog:  catalog,
		logger:   logger.With("component", "ui"),
		secure:   cfg.Secure,
	}
}

// controller returns the calling browser's controller.
func (ui *UI) controller(r *http.Request) (*portal.Controller, bool) {
	return ui.registry.Get(r.Context(), ClientIDFromContext(r.Context()), r.URL.Path)
}

func (ui *UI) home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleIndex renders the page the controller is on, with its dialog and
// pending notifications. A browser on its first visit sees the anonymous
// home page; its controller is created by the first request that changes
// state, so clients that never come back do not occupy the registry.
func (ui *UI) HandleIndex(w http.ResponseWriter, r *http.Request) {
	var view portal.View
	var toasts []portal.Toast
	if IsNewClient(r.Context()) {
		view = portal.View{Page: model.PageHome}
	} else {
		ctrl, _ := ui.controller(r)
		view = ctrl.Snapshot()
		toasts = ctrl.PopToasts()
	}

	clientID := ClientIDFromContext(r.Context())
	consented := true
	if ui.consent != nil {
		ok, err := ui.consent.HasConsent(r.Context(), clientID)
		if err != nil {
			ui.logger.Warn("consent lookup failed", "client_id", clientID, "error", err)
		}
		consented = ok || err != nil
	}

	ui.render(w, r, string(view.Page), map[string]any{
		"View":       view,
		"Toasts":     toasts,
		"Consent":    consented,
		"Categories": catalogue.Categories,
		"Allowed":    allowedPages(view.Session),
	})
}

// allowedPages keys the reachable pages by name for the nav template.
func allowedPages(sess *model.Session) map[string]bool {
	out := make(map[string]bool)
	for p := range model.AllowedPages(sess) {
		out[string(p)] = true
	}
	return out
}

// HandleLink serves email-confirmation and password-reset links. The
// controller captures the token; the browser is sent back to the root so
// that the token leaves the address bar.
func (ui *UI) HandleLink(w http.ResponseWriter, r *http.Request) {
	if _, rewrite := ui.controller(r); !rewrite {
		ui.logger.Debug("link did not match", "path", r.URL.Path)
	}
	ui.home(w, r)
}

// HandleNavigate moves to the named page when allowed, home otherwise.
func (ui *UI) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	page, ok := model.ParsePage(chi.URLParam(r, "page"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	ctrl.Navigate(r.Context(), page)
	ui.home(w, r)
}

// HandleBack returns to the logical parent of the current page.
func (ui *UI) HandleBack(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	ctrl.Back(r.Context())
	ui.home(w, r)
}

// HandleSearch runs a search built from the query string.
func (ui *UI) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	ctrl.Search(r.Context(), parseSearch(r))
	ui.home(w, r)
}

// HandleCategory searches one category.
func (ui *UI) HandleCategory(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	cat, ok := catalogue.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	ctrl.SearchCategory(r.Context(), cat)
	ui.home(w, r)
}

// HandleDetail shows one public record.
func (ui *UI) HandleDetail(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	cat, ok := catalogue.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	ctrl.ViewDetail(r.Context(), cat, chi.URLParam(r, "id"))
	ui.home(w, r)
}

// HandleLogin processes the login dialog.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	if err := r.ParseForm(); err != nil {
		ui.home(w, r)
		return
	}
	ctrl.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
	ui.home(w, r)
}

// HandleLogout ends the session.
func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	ctrl.Logout(r.Context())
	ui.home(w, r)
}

// HandleSignup processes the signup dialog.
func (ui *UI) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	if err := r.ParseForm(); err != nil {
		ui.home(w, r)
		return
	}
	ctrl.Signup(r.Context(), catalogue.SignupRequest{
		FirstName:  strings.TrimSpace(r.FormValue("firstname")),
		LastName:   strings.TrimSpace(r.FormValue("lastname")),
		Email:      r.FormValue("email"),
		Phone:      strings.TrimSpace(r.FormValue("phone")),
		Password:   r.FormValue("password"),
		Motivation: strings.TrimSpace(r.FormValue("motivation")),
	}, r.FormValue("confirm"))
	ui.home(w, r)
}

// HandlePasswordReset processes the new-password dialog.
func (ui *UI) HandlePasswordReset(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	if err := r.ParseForm(); err != nil {
		ui.home(w, r)
		return
	}
	ctrl.ConfirmPasswordReset(r.Context(), r.FormValue("password"), r.FormValue("confirm"))
	ui.home(w, r)
}

// HandlePasswordStrength scores a password for the strength meter of the
// password forms.
func (ui *UI) HandlePasswordStrength(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	lang := LanguageFromContext(r.Context())
	res := password.Evaluate(r.FormValue("password"))

	type rule struct {
		Key   string `json:"key"`
		Label string `json:"label"`
		Met   bool   `json:"met"`
	}
	rules := make([]rule, len(res.Rules))
	for i, ru := range res.Rules {
		rules[i] = rule{Key: ru.Key, Label: ui.catalog.T(lang, ru.Key), Met: ru.Met}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"valid":    res.Valid,
		"strength": res.Strength,
		"label":    ui.catalog.T(lang, "strength."+string(res.Strength)),
		"rules":    rules,
	})
}

// HandleModalOpen opens a dialog.
func (ui *UI) HandleModalOpen(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	m, ok := portal.ParseModal(chi.URLParam(r, "name"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	ctrl.OpenModal(m)
	ui.home(w, r)
}

// HandleModalClose closes a dialog.
func (ui *UI) HandleModalClose(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	m, ok := portal.ParseModal(chi.URLParam(r, "name"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	ctrl.CloseModal(m)
	ui.home(w, r)
}

// HandleConsent records that the browser accepted the cookie notice.
func (ui *UI) HandleConsent(w http.ResponseWriter, r *http.Request) {
	if ui.consent != nil {
		clientID := ClientIDFromContext(r.Context())
		if err := ui.consent.RecordConsent(r.Context(), clientID, time.Now()); err != nil {
			ui.logger.Error("record consent failed", "client_id", clientID, "error", err)
		}
	}
	ui.home(w, r)
}

// HandleLanguage switches the interface language.
func (ui *UI) HandleLanguage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		if lang := r.FormValue("lang"); ui.catalog.Supports(lang) {
			SetLanguageCookie(w, i18n.CookieName, lang, ui.secure)
		}
	}
	ui.home(w, r)
}

// HandleAccountUpdate processes the account form.
func (ui *UI) HandleAccountUpdate(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	if err := r.ParseForm(); err != nil {
		ui.home(w, r)
		return
	}
	ctrl.UpdateProfile(r.Context(), catalogue.ProfileUpdate{
		FirstName: strings.TrimSpace(r.FormValue("firstname")),
		LastName:  strings.TrimSpace(r.FormValue("lastname")),
		Email:     r.FormValue("email"),
		Phone:     strings.TrimSpace(r.FormValue("phone")),
		Password:  r.FormValue("password"),
	}, r.FormValue("confirm"))
	ui.home(w, r)
}

// HandleAccountDelete deletes the current account.
func (ui *UI) HandleAccountDelete(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	ctrl.DeleteAccount(r.Context())
	ui.home(w, r)
}

// HandleContribute submits a new record. Form fields named "field_<name>"
// become the record's extra fields.
func (ui *UI) HandleContribute(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	if err := r.ParseForm(); err != nil {
		ui.home(w, r)
		return
	}
	contrib := catalogue.Contribution{
		Category:    catalogue.Category(r.FormValue("category")),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	for k, v := range r.PostForm {
		name, ok := strings.CutPrefix(k, "field_")
		if !ok || name == "" || len(v) == 0 || strings.TrimSpace(v[0]) == "" {
			continue
		}
		if contrib.Fields == nil {
			contrib.Fields = make(map[string]string)
		}
		contrib.Fields[name] = strings.TrimSpace(v[0])
	}
	ctrl.Contribute(r.Context(), contrib)
	ui.home(w, r)
}

// HandleFormDetail opens a pending form for moderation.
func (ui *UI) HandleFormDetail(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	cat, ok := catalogue.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	ctrl.ViewFormDetail(r.Context(), cat, chi.URLParam(r, "id"))
	ui.home(w, r)
}

// HandleFormDetailBack returns to the moderation list.
func (ui *UI) HandleFormDetailBack(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	ctrl.BackFromFormDetail(r.Context())
	ui.home(w, r)
}

// HandleModerateForm approves or rejects a pending form.
func (ui *UI) HandleModerateForm(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	cat, ok := catalogue.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	d, ok := catalogue.ParseDecision(chi.URLParam(r, "decision"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	ctrl.ModerateForm(r.Context(), cat, chi.URLParam(r, "id"), d)
	ui.home(w, r)
}

// HandleModerateUser approves or rejects a pending contributor.
func (ui *UI) HandleModerateUser(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := ui.controller(r)
	d, ok := catalogue.ParseDecision(chi.URLParam(r, "decision"))
	if !ok {
		ui.renderNotFound(w, r)
		return
	}
	ctrl.ModerateContributor(r.Context(), chi.URLParam(r, "id"), d)
	ui.home(w, r)
}

// parseSearch builds a search context from the query string. Repeated
// parameters accumulate; unknown categories are ignored.
func parseSearch(r *http.Request) portal.SearchContext {
	q := r.URL.Query()
	sc := portal.SearchContext{Query: strings.TrimSpace(q.Get("q"))}
	for _, s := range q["category"] {
		if cat, ok := catalogue.ParseCategory(s); ok {
			sc.Categories = append(sc.Categories, cat)
		}
	}
	if off, err := strconv.Atoi(q.Get("offset")); err == nil {
		sc.Offset = off
	}

	loc := &catalogue.LocationFilter{
		Communes:    values(q["commune"]),
		Departments: values(q["department"]),
		Regions:     values(q["region"]),
		Countries:   values(q["country"]),
	}
	if !loc.IsZero() {
		sc.Filters.Location = loc
	}
	sc.Filters.Centuries = values(q["century"])
	sc.Filters.Materials = values(q["material"])
	sc.Filters.ConservationStates = values(q["conservation_state"])
	sc.Filters.Techniques = values(q["technique"])
	sc.Filters.Professions = values(q["profession"])
	sc.Filters.TransportModes = values(q["transport_mode"])
	return sc
}

// values trims vs and drops empty entries.
func values(vs []string) []string {
	var out []string
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// render renders a page inside the layout.
func (ui *UI) render(w http.ResponseWriter, r *http.Request, page string, data map[string]any) {
	lang := LanguageFromContext(r.Context())
	if lang == "" {
		lang = ui.catalog.Default()
	}
	data["Lang"] = lang
	data["Languages"] = ui.catalog.Languages()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderTemplate(w, page, ui.translator(lang), data); err != nil {
		ui.logger.Error("template render failed", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (ui *UI) translator(lang string) func(string, ...any) string {
	return func(key string, args ...any) string {
		return ui.catalog.T(lang, key, args...)
	}
}

func (ui *UI) renderNotFound(w http.ResponseWriter, r *http.Request) {
	lang := LanguageFromContext(r.Context())
	http.Error(w, ui.catalog.T(lang, "error.not_found"), http.StatusNotFound)
}
