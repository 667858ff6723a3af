// Package portal implements the navigation and session controller of one
// browser client: which page is on screen, who is logged in, which dialog
// is open, and what awaits an admin's moderation.
package portal

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/me/patrimoine/internal/logging"
	"github.com/me/patrimoine/internal/validate"
	"github.com/me/patrimoine/pkg/catalogue"
	"github.com/me/patrimoine/pkg/model"
)

// Controller is the single source of truth for one browser client. All
// exported methods are safe for concurrent use. The mutex is never held
// across an API call; snapshots are replaced wholesale and the last write
// wins.
type Controller struct {
	api    API
	logger *slog.Logger
	poller *poller
	flight singleflight.Group
	limit  int

	mu sync.Mutex
	// epoch changes whenever the session starts or ends. Results of calls
	// dispatched under an older epoch are dropped.
	epoch   uint64
	page    model.Page
	session *model.Session

	search  SearchContext
	results *catalogue.SearchResult

	detail     Ref
	record     *catalogue.Record
	formDetail Ref
	form       *catalogue.PendingForm

	pendingUsers []catalogue.PendingUser
	pendingForms map[catalogue.Category][]catalogue.PendingForm
	refreshedAt  time.Time

	modal  Modal
	errors map[string]string
	toasts []Toast

	emailToken string
	resetToken string

	profiles      map[string]*catalogue.Profile
	emailOutcomes map[string]*EmailOutcome
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithPollInterval sets how often moderation queues refresh for admins.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.poller.interval = d }
}

// WithSearchLimit sets the page size of search results.
func WithSearchLimit(n int) Option {
	return func(c *Controller) { c.limit = n }
}

// New creates a controller on the home page with nobody logged in.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:           api,
		logger:        logging.Discard(),
		page:          model.PageHome,
		pendingForms:  emptyForms(),
		profiles:      make(map[string]*catalogue.Profile),
		emailOutcomes: make(map[string]*EmailOutcome),
		limit:         model.DefaultListOptions().Limit,
	}
	c.poller = newPoller(DefaultPollInterval, c.pollTick, c.logger)
	for _, opt := range opts {
		opt(c)
	}
	if c.poller.interval <= 0 {
		c.poller.interval = DefaultPollInterval
	}
	c.logger = c.logger.With("component", "portal")
	c.poller.logger = c.logger
	return c
}

func emptyForms() map[catalogue.Category][]catalogue.PendingForm {
	return make(map[catalogue.Category][]catalogue.PendingForm, len(catalogue.Categories))
}

// --- Startup ---

// IsStartupLink reports whether location is an email-confirmation or a
// password-reset link.
func IsStartupLink(location string) bool {
	_, ok := emailLinkToken(location)
	if !ok {
		_, ok = resetLinkToken(location)
	}
	return ok
}

func linkSegments(location string) []string {
	u, err := url.Parse(location)
	if err != nil {
		return nil
	}
	return strings.Split(strings.Trim(u.Path, "/"), "/")
}

// emailLinkToken matches /email/{token}/validate.
func emailLinkToken(location string) (string, bool) {
	parts := linkSegments(location)
	if len(parts) == 3 && parts[0] == "email" && parts[1] != "" && parts[2] == "validate" {
		return parts[1], true
	}
	return "", false
}

// resetLinkToken matches /reset/{token}.
func resetLinkToken(location string) (string, bool) {
	parts := linkSegments(location)
	if len(parts) == 2 && parts[0] == "reset" && parts[1] != "" {
		return parts[1], true
	}
	return "", false
}

// Initialize handles a page load at location. An email-confirmation link
// captures its token, shows the email-validation page and consumes the
// token. A reset link captures its token and validates it before the
// new-password dialog opens. In both cases session restoration is skipped
// and the returned rewrite is true: the caller must send the browser to
// the bare root. Otherwise the session is restored from the stored
// credentials when their token is still well formed.
func (c *Controller) Initialize(ctx context.Context, location string) (rewrite bool) {
	if tok, ok := emailLinkToken(location); ok {
		c.mu.Lock()
		c.emailToken = tok
		c.page = model.PageEmailValidation
		c.modal = ModalNone
		c.mu.Unlock()
		c.logger.Debug("email confirmation link")
		c.ConfirmEmail(ctx)
		return true
	}

	if tok, ok := resetLinkToken(location); ok {
		c.mu.Lock()
		c.resetToken = tok
		c.mu.Unlock()
		c.logger.Debug("password reset link")
		c.checkResetToken(ctx, tok)
		return true
	}

	c.restore(ctx)
	return false
}

func (c *Controller) restore(ctx context.Context) {
	if !c.api.IsAuthenticated(ctx) {
		return
	}
	claims, err := c.api.GetUserData(ctx)
	if err != nil {
		c.logger.Warn("restore session", "error", err)
		return
	}
	if claims == nil {
		return
	}
	c.setSession(sessionFromClaims(claims))
	c.logger.Debug("session restored", "user_id", claims.UserID)
}

func (c *Controller) checkResetToken(ctx context.Context, tok string) {
	err := c.api.ValidateResetToken(ctx, tok)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetToken != tok {
		return
	}
	switch {
	case err == nil:
		c.modal = ModalResetPassword
		c.errors = nil
	case catalogue.IsNetwork(err):
		c.resetToken = ""
		c.addToastLocked(ToastError, msgOffline)
	default:
		c.resetToken = ""
		c.addToastLocked(ToastError, msgResetInvalidLink)
		c.logger.Info("reset token rejected", "status", catalogue.StatusOf(err))
	}
}

func sessionFromClaims(cl *catalogue.Claims) *model.Session {
	return &model.Session{
		UserID:    cl.UserID,
		FirstName: cl.FirstName,
		LastName:  cl.LastName,
		Email:     cl.Email,
		Phone:     cl.Phone,
		Role:      model.ParseRole(cl.Role),
	}
}

// --- Session lifecycle ---

// setSession replaces the session and fires the role-change event that
// starts or stops the moderation pollers. Moderation snapshots belong to
// the previous session and are dropped; a new admin session refreshes them
// at once even when the pollers were already running.
func (c *Controller) setSession(sess *model.Session) {
	c.mu.Lock()
	wasAdmin := c.session.IsAdmin()
	c.session = sess
	c.epoch++
	c.pendingUsers = nil
	c.pendingForms = emptyForms()
	c.refreshedAt = time.Time{}
	c.formDetail = Ref{}
	c.form = nil
	isAdmin := sess.IsAdmin()
	c.mu.Unlock()

	switch {
	case isAdmin:
		c.poller.Restart()
	case wasAdmin:
		c.poller.Stop()
	}
}

// current returns the session and the epoch it belongs to.
func (c *Controller) current() (*model.Session, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.epoch
}

// Login authenticates. Success restores the session from the returned
// claims, closes the login dialog and shows home. Each failure maps to
// exactly one outcome: inline messages for malformed input, the pending or
// confirm-email dialog for accounts that cannot log in yet, an offline
// message for transport failures and a retry message for the rest.
func (c *Controller) Login(ctx context.Context, email, pw string) bool {
	email = strings.TrimSpace(email)
	if errs := validate.Login(email, pw); !errs.OK() {
		c.setErrors(errs)
		return false
	}

	claims, synthesized, err := c.api.Login(ctx, email, pw)
	if err != nil {
		c.loginFailed(err)
		return false
	}
	if synthesized {
		c.logger.Warn("login claims incomplete, identity completed locally", "user_id", claims.UserID)
	}

	sess := sessionFromClaims(claims)
	c.setSession(sess)

	c.mu.Lock()
	c.modal = ModalNone
	c.errors = nil
	c.page = model.PageHome
	c.addToastLocked(ToastSuccess, msgLoginWelcome, sess.DisplayName())
	if synthesized {
		c.addToastLocked(ToastInfo, msgLoginSynthesized)
	}
	c.mu.Unlock()

	c.logger.Info("logged in", "user_id", sess.UserID, "role", sess.Role)
	return true
}

func (c *Controller) loginFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case catalogue.IsForbidden(err) && catalogue.CodeOf(err) == catalogue.CodeAccountPending:
		c.modal = ModalPendingApproval
		c.errors = nil
	case catalogue.IsForbidden(err) && catalogue.CodeOf(err) == catalogue.CodeEmailUnconfirmed:
		c.modal = ModalConfirmEmail
		c.errors = nil
	case catalogue.IsBadRequest(err):
		c.errors = fieldErrors(err, msgLoginInvalid)
	case catalogue.IsNetwork(err):
		c.errors = map[string]string{FormError: msgOffline}
	case catalogue.IsUnauthorized(err):
		c.errors = map[string]string{FormError: msgLoginCredentials}
	default:
		c.errors = map[string]string{FormError: msgGeneric}
	}
	c.logger.Info("login failed", "status", catalogue.StatusOf(err), "code", catalogue.CodeOf(err))
}

// Logout stops the pollers, clears the stored credentials, the session and
// every moderation snapshot, and shows home. Safe to call repeatedly.
func (c *Controller) Logout(ctx context.Context) {
	if c.endSession(ctx, 0, false, nil) {
		c.logger.Info("logged out")
	}
}

// HandleSessionExpired is Logout plus a message for the user. Every
// authorization failure of an authenticated call ends up here.
func (c *Controller) HandleSessionExpired(ctx context.Context, msgKey string) {
	c.endSession(ctx, 0, false, &Toast{Level: ToastError, Key: msgKey})
	c.logger.Info("session expired")
}

// expire ends the session only if it is still the one from epoch, so that
// concurrent failures of one session produce a single expiry.
func (c *Controller) expire(ctx context.Context, epoch uint64, msgKey string) {
	if c.endSession(ctx, epoch, true, &Toast{Level: ToastError, Key: msgKey}) {
		c.logger.Info("session expired")
	}
}

func (c *Controller) endSession(ctx context.Context, epoch uint64, checkEpoch bool, toast *Toast) bool {
	c.mu.Lock()
	if checkEpoch && c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	had := c.session != nil
	c.epoch++
	c.session = nil
	c.pendingUsers = nil
	c.pendingForms = emptyForms()
	c.refreshedAt = time.Time{}
	c.profiles = make(map[string]*catalogue.Profile)
	c.formDetail = Ref{}
	c.form = nil
	c.page = model.PageHome
	c.modal = ModalNone
	c.errors = nil
	if toast != nil {
		c.toasts = append(c.toasts, *toast)
	}
	c.mu.Unlock()

	c.poller.Stop()
	// The caller may be a poll tick whose context Stop just cancelled.
	if err := c.api.Logout(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("clear stored credentials", "error", err)
	}
	return had
}

// --- Navigation ---

// Navigate shows target when its precondition holds for the session, and
// home otherwise. It returns the page actually shown. Pages that display
// remote data load it on arrival.
func (c *Controller) Navigate(ctx context.Context, target model.Page) model.Page {
	c.mu.Lock()
	page := model.Resolve(target, c.session)
	c.page = page
	c.modal = ModalNone
	c.errors = nil
	c.mu.Unlock()

	if page != target {
		c.logger.Debug("navigation denied", "target", target)
		return page
	}

	switch page {
	case model.PageAccount:
		c.LoadProfile(ctx)
	case model.PageValidateContributors:
		c.RefreshPendingContributors(ctx)
	case model.PageValidateForms:
		c.RefreshPendingForms(ctx)
	case model.PageEmailValidation:
		c.ConfirmEmail(ctx)
	}
	return page
}

// Back returns from the current page to its logical parent: a record
// detail goes back to the search results when there are any, a moderation
// detail goes back to the moderation list, everything else goes home.
func (c *Controller) Back(ctx context.Context) model.Page {
	c.mu.Lock()
	page := c.page
	searched := !c.search.IsZero()
	c.mu.Unlock()

	switch {
	case page == model.PageValidateFormDetail:
		return c.BackFromFormDetail(ctx)
	case page == model.PageDetail && searched:
		c.mu.Lock()
		c.detail = Ref{}
		c.record = nil
		c.page = model.PageSearch
		c.mu.Unlock()
		return model.PageSearch
	default:
		return c.Navigate(ctx, model.PageHome)
	}
}

// Search replaces the search context, shows the search page and loads the
// matching records.
func (c *Controller) Search(ctx context.Context, sc SearchContext) {
	sc.Categories = dedupCategories(sc.Categories)
	opts := model.ListOptions{Limit: c.limit, Offset: sc.Offset}
	opts.Clamp()
	sc.Offset = opts.Offset

	c.mu.Lock()
	c.search = sc
	c.results = nil
	c.page = model.PageSearch
	c.modal = ModalNone
	c.errors = nil
	c.mu.Unlock()

	res, err := c.api.Search(ctx, catalogue.SearchQuery{
		Text:       sc.Query,
		Categories: sc.Categories,
		Filters:    sc.Filters,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
	if err != nil {
		c.failPublic(err)
		return
	}

	c.mu.Lock()
	c.results = res
	c.mu.Unlock()
}

// SearchCategory searches one category with no text and no filters.
func (c *Controller) SearchCategory(ctx context.Context, cat catalogue.Category) {
	c.Search(ctx, SearchContext{Categories: []catalogue.Category{cat}})
}

func dedupCategories(in []catalogue.Category) []catalogue.Category {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[catalogue.Category]bool, len(in))
	out := make([]catalogue.Category, 0, len(in))
	for _, cat := range in {
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	return out
}

// ViewDetail loads a public record and shows it. A failed load leaves the
// current page in place.
func (c *Controller) ViewDetail(ctx context.Context, cat catalogue.Category, id string) bool {
	rec, err := c.api.GetRecord(ctx, cat, id)
	if err != nil {
		c.failPublic(err)
		return false
	}

	c.mu.Lock()
	c.detail = Ref{Category: cat, ID: id}
	c.record = rec
	c.page = model.PageDetail
	c.modal = ModalNone
	c.mu.Unlock()
	return true
}

// ViewFormDetail loads a pending form for moderation and shows it (admin).
func (c *Controller) ViewFormDetail(ctx context.Context, cat catalogue.Category, id string) bool {
	sess, epoch := c.current()
	if !model.PageValidateFormDetail.AllowedFor(sess) {
		c.Navigate(ctx, model.PageValidateFormDetail)
		return false
	}

	form, err := c.api.GetPendingForm(ctx, cat, id)
	if err != nil {
		c.fail(ctx, epoch, "load pending form", err, false)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	c.formDetail = Ref{Category: cat, ID: id}
	c.form = form
	c.page = model.PageValidateFormDetail
	c.modal = ModalNone
	return true
}

// BackFromFormDetail returns to the moderation list and refreshes it.
func (c *Controller) BackFromFormDetail(ctx context.Context) model.Page {
	c.mu.Lock()
	c.formDetail = Ref{}
	c.form = nil
	page := model.Resolve(model.PageValidateForms, c.session)
	c.page = page
	c.mu.Unlock()

	if page == model.PageValidateForms {
		c.RefreshPendingForms(ctx)
	}
	return page
}

// --- Moderation snapshots ---

// pollTick runs both refreshers independently of each other.
func (c *Controller) pollTick(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.RefreshPendingContributors(ctx)
	}()
	go func() {
		defer wg.Done()
		c.RefreshPendingForms(ctx)
	}()
	wg.Wait()
}

// RefreshPendingContributors replaces the pending-contributor snapshot.
// Without an admin session it returns without calling the API.
func (c *Controller) RefreshPendingContributors(ctx context.Context) {
	sess, epoch := c.current()
	if !sess.IsAdmin() {
		return
	}

	users, err := c.api.GetPendingUsers(ctx)
	if err != nil {
		c.refreshFailed(ctx, epoch, "pending contributors", err, func() { c.pendingUsers = nil })
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.pendingUsers = users
	c.refreshedAt = time.Now()
}

// RefreshPendingForms replaces the four pending-form snapshots, fetched in
// parallel. Without an admin session it returns without calling the API.
func (c *Controller) RefreshPendingForms(ctx context.Context) {
	sess, epoch := c.current()
	if !sess.IsAdmin() {
		return
	}

	results := make([][]catalogue.PendingForm, len(catalogue.Categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range catalogue.Categories {
		i, cat := i, cat
		g.Go(func() error {
			forms, err := c.api.GetPendingForms(gctx, cat)
			if err != nil {
				return err
			}
			results[i] = forms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.refreshFailed(ctx, epoch, "pending forms", err, func() { c.pendingForms = emptyForms() })
		return
	}

	forms := emptyForms()
	for i, cat := range catalogue.Categories {
		forms[cat] = results[i]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.pendingForms = forms
	c.refreshedAt = time.Now()
}

// refreshFailed handles a background refresh failure. Only two outcomes
// are acted upon: an expired session ends it, and a revoked admin right
// zeroes the snapshot and stops the pollers until the next session change.
// Everything else is logged.
func (c *Controller) refreshFailed(ctx context.Context, epoch uint64, what string, err error, zero func()) {
	switch {
	case catalogue.IsUnauthorized(err):
		c.expire(ctx, epoch, msgSessionExpired)
	case catalogue.IsForbidden(err):
		c.mu.Lock()
		current := c.epoch == epoch
		if current {
			zero()
		}
		c.mu.Unlock()
		if !current {
			return
		}
		c.poller.Stop()
		c.logger.Info("moderation access denied", "snapshot", what)
	default:
		if ctx.Err() == nil {
			c.logger.Warn("refresh failed", "snapshot", what, "error", err)
		}
	}
}

// PendingCounts derives the badge numbers from the snapshot lists.
func (c *Controller) PendingCounts() model.PendingCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countsLocked()
}

func (c *Controller) countsLocked() model.PendingCounts {
	counts := model.PendingCounts{Contributors: len(c.pendingUsers)}
	for _, forms := range c.pendingForms {
		counts.Forms += len(forms)
	}
	return counts
}

// ModerateContributor approves or rejects a pending account (admin) and
// refreshes the contributor snapshot.
func (c *Controller) ModerateContributor(ctx context.Context, userID string, d catalogue.Decision) bool {
	sess, epoch := c.current()
	if !sess.IsAdmin() {
		return false
	}

	if err := c.api.ModerateUser(ctx, userID, d); err != nil {
		c.fail(ctx, epoch, "moderate contributor", err, false)
		c.RefreshPendingContributors(ctx)
		return false
	}

	key := msgModerationUserApproved
	if d == catalogue.DecisionReject {
		key = msgModerationUserRejected
	}
	c.notify(ToastSuccess, key)
	c.logger.Info("contributor moderated", "user_id", userID, "decision", d)
	c.RefreshPendingContributors(ctx)
	return true
}

// ModerateForm approves or rejects a pending form (admin). When the form
// was open in the moderation detail, the page returns to the list.
func (c *Controller) ModerateForm(ctx context.Context, cat catalogue.Category, id string, d catalogue.Decision) bool {
	sess, epoch := c.current()
	if !sess.IsAdmin() {
		return false
	}

	if err := c.api.ModerateForm(ctx, cat, id, d); err != nil {
		c.fail(ctx, epoch, "moderate form", err, false)
		c.RefreshPendingForms(ctx)
		return false
	}

	key := msgModerationFormApproved
	if d == catalogue.DecisionReject {
		key = msgModerationFormRejected
	}
	c.notify(ToastSuccess, key)
	c.logger.Info("form moderated", "category", cat, "form_id", id, "decision", d)

	c.mu.Lock()
	open := c.formDetail == Ref{Category: cat, ID: id}
	c.mu.Unlock()
	if open {
		c.BackFromFormDetail(ctx)
	} else {
		c.RefreshPendingForms(ctx)
	}
	return true
}

// --- Accounts ---

// Signup submits a contributor application. Success opens the
// pending-approval dialog; rejected input keeps the signup dialog open
// with field messages.
func (c *Controller) Signup(ctx context.Context, req catalogue.SignupRequest, confirm string) bool {
	req.Email = strings.TrimSpace(req.Email)
	if errs := validate.Signup(req, confirm); !errs.OK() {
		c.setErrors(errs)
		return false
	}

	err := c.api.CreateUser(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		c.modal = ModalPendingApproval
		c.errors = nil
		c.addToastLocked(ToastSuccess, msgSignupSuccess)
		c.logger.Info("signup submitted")
		return true
	case catalogue.IsBadRequest(err):
		c.errors = fieldErrors(err, msgInvalidInput)
		c.addToastLocked(ToastError, msgInvalidInput)
	case catalogue.IsConflict(err):
		c.errors = map[string]string{"email": msgSignupEmailTaken}
		c.addToastLocked(ToastError, msgSignupEmailTaken)
	case catalogue.IsNetwork(err):
		c.addToastLocked(ToastError, msgOffline)
	default:
		c.addToastLocked(ToastError, msgGeneric)
	}
	c.logger.Info("signup failed", "status", catalogue.StatusOf(err))
	return false
}

// ConfirmPasswordReset sets a new password with the token captured from a
// reset link. Success closes the dialog and opens the login dialog.
func (c *Controller) ConfirmPasswordReset(ctx context.Context, pw, confirm string) bool {
	c.mu.Lock()
	tok := c.resetToken
	c.mu.Unlock()
	if tok == "" {
		return false
	}
	if errs := validate.ResetPassword(pw, confirm); !errs.OK() {
		c.setErrors(errs)
		return false
	}

	err := c.api.ConfirmPasswordReset(ctx, tok, pw)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		c.resetToken = ""
		c.modal = ModalLogin
		c.errors = nil
		c.addToastLocked(ToastSuccess, msgResetSuccess)
		return true
	case catalogue.IsBadRequest(err) && len(catalogue.FieldsOf(err)) > 0:
		c.errors = fieldErrors(err, msgInvalidInput)
	case catalogue.IsBadRequest(err), catalogue.IsNotFound(err), catalogue.IsGone(err):
		c.resetToken = ""
		c.modal = ModalNone
		c.errors = nil
		c.addToastLocked(ToastError, msgResetInvalidLink)
	case catalogue.IsNetwork(err):
		c.addToastLocked(ToastError, msgOffline)
	default:
		c.addToastLocked(ToastError, msgGeneric)
	}
	return false
}

// ConfirmEmail consumes the captured email-confirmation token. The API is
// called at most once per token; later calls return the cached outcome.
func (c *Controller) ConfirmEmail(ctx context.Context) *EmailOutcome {
	c.mu.Lock()
	tok := c.emailToken
	cached := c.emailOutcomes[tok]
	c.mu.Unlock()
	if tok == "" {
		return nil
	}
	if cached != nil {
		return cached
	}

	v, err, _ := c.flight.Do("email:"+tok, func() (any, error) {
		c.mu.Lock()
		o := c.emailOutcomes[tok]
		c.mu.Unlock()
		if o != nil {
			return o, nil
		}
		return nil, c.api.ConfirmEmail(ctx, tok)
	})
	if o, ok := v.(*EmailOutcome); ok && o != nil {
		return o
	}

	var outcome *EmailOutcome
	switch {
	case err == nil:
		outcome = &EmailOutcome{Confirmed: true}
	case catalogue.IsConflict(err):
		outcome = &EmailOutcome{Confirmed: true, ErrKey: msgEmailAlreadyConfirmed}
	case catalogue.IsBadRequest(err), catalogue.IsNotFound(err), catalogue.IsGone(err):
		outcome = &EmailOutcome{ErrKey: msgEmailInvalidLink}
	case catalogue.IsNetwork(err):
		c.notify(ToastError, msgOffline)
		return &EmailOutcome{ErrKey: msgOffline}
	default:
		c.logger.Warn("email confirmation failed", "error", err)
		return &EmailOutcome{ErrKey: msgGeneric}
	}

	c.mu.Lock()
	c.emailOutcomes[tok] = outcome
	c.mu.Unlock()
	return outcome
}

// LoadProfile returns the current user's account, loading it at most once
// per user id. Concurrent loads for the same user share one API call.
func (c *Controller) LoadProfile(ctx context.Context) *catalogue.Profile {
	c.mu.Lock()
	sess, epoch := c.session, c.epoch
	var cached *catalogue.Profile
	if sess != nil {
		cached = c.profiles[sess.UserID]
	}
	c.mu.Unlock()
	if sess == nil {
		return nil
	}
	if cached != nil {
		return cached
	}

	v, err, _ := c.flight.Do("profile:"+sess.UserID, func() (any, error) {
		c.mu.Lock()
		p := c.profiles[sess.UserID]
		c.mu.Unlock()
		if p != nil {
			return p, nil
		}
		return c.api.GetUserProfile(ctx)
	})
	if err != nil {
		c.fail(ctx, epoch, "load profile", err, true)
		return nil
	}
	p := v.(*catalogue.Profile)

	c.mu.Lock()
	if c.epoch == epoch {
		c.profiles[sess.UserID] = p
	}
	c.mu.Unlock()
	return p
}

// UpdateProfile changes the current user's account. An empty password
// keeps the current one.
func (c *Controller) UpdateProfile(ctx context.Context, upd catalogue.ProfileUpdate, confirm string) bool {
	sess, epoch := c.current()
	if sess == nil {
		return false
	}
	upd.Email = strings.TrimSpace(upd.Email)
	if errs := validate.Profile(upd, confirm); !errs.OK() {
		c.setErrors(errs)
		return false
	}

	p, err := c.api.UpdateUserProfile(ctx, upd)
	if err != nil {
		switch {
		case catalogue.IsBadRequest(err):
			c.setErrors(fieldErrors(err, msgInvalidInput))
			c.notify(ToastError, msgInvalidInput)
		case catalogue.IsConflict(err):
			c.setErrors(map[string]string{"email": msgSignupEmailTaken})
			c.notify(ToastError, msgSignupEmailTaken)
		default:
			c.fail(ctx, epoch, "update profile", err, true)
		}
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	next := *c.session
	next.FirstName, next.LastName = p.FirstName, p.LastName
	next.Email, next.Phone = p.Email, p.Phone
	c.session = &next
	c.profiles[next.UserID] = p
	c.errors = nil
	c.addToastLocked(ToastSuccess, msgAccountUpdated)
	return true
}

// DeleteAccount removes the current user's account and ends the session.
func (c *Controller) DeleteAccount(ctx context.Context) bool {
	sess, epoch := c.current()
	if sess == nil {
		return false
	}

	if err := c.api.DeleteUserAccount(ctx); err != nil {
		c.fail(ctx, epoch, "delete account", err, true)
		return false
	}

	c.endSession(ctx, epoch, true, &Toast{Level: ToastSuccess, Key: msgAccountDeleted})
	c.logger.Info("account deleted", "user_id", sess.UserID)
	return true
}

// Contribute proposes a new catalogue record and shows home on success.
func (c *Controller) Contribute(ctx context.Context, contrib catalogue.Contribution) bool {
	sess, epoch := c.current()
	if sess == nil {
		c.Navigate(ctx, model.PageContribute)
		return false
	}
	if errs := validate.Contribution(contrib); !errs.OK() {
		c.setErrors(errs)
		return false
	}

	if err := c.api.Submit(ctx, contrib); err != nil {
		if catalogue.IsBadRequest(err) {
			c.setErrors(fieldErrors(err, msgInvalidInput))
			c.notify(ToastError, msgInvalidInput)
			return false
		}
		c.fail(ctx, epoch, "submit contribution", err, false)
		return false
	}

	c.mu.Lock()
	c.page = model.PageHome
	c.errors = nil
	c.addToastLocked(ToastSuccess, msgContributeSuccess)
	c.mu.Unlock()
	return true
}

// --- Failure mapping ---

// fail maps a failed authenticated call to its single user-visible
// outcome. ownAccount marks calls about the current user's own account,
// for which not-found also ends the session.
func (c *Controller) fail(ctx context.Context, epoch uint64, op string, err error, ownAccount bool) {
	c.logger.Info("call failed", "op", op, "status", catalogue.StatusOf(err), "error", err)
	switch {
	case catalogue.IsUnauthorized(err), catalogue.IsForbidden(err):
		c.expire(ctx, epoch, msgSessionExpired)
	case ownAccount && catalogue.IsNotFound(err):
		c.expire(ctx, epoch, msgAccountGone)
	default:
		c.failPublic(err)
	}
}

// failPublic maps a failure that can never end the session.
func (c *Controller) failPublic(err error) {
	switch {
	case catalogue.IsNetwork(err):
		c.notify(ToastError, msgOffline)
	case catalogue.IsNotFound(err):
		c.notify(ToastError, msgNotFound)
	case catalogue.IsBadRequest(err):
		c.notify(ToastError, msgInvalidInput)
	default:
		c.notify(ToastError, msgGeneric)
	}
}

// fieldErrors returns the per-field messages of a rejected request, or a
// form-level fallback when the API named no field.
func fieldErrors(err error, fallback string) map[string]string {
	fields := catalogue.FieldsOf(err)
	if len(fields) == 0 {
		return map[string]string{FormError: fallback}
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// --- Dialogs and notifications ---

// OpenModal shows a dialog. The new-password dialog needs a captured reset
// token and the delete-account dialog needs a session.
func (c *Controller) OpenModal(m Modal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !modals[m]:
		return false
	case m == ModalResetPassword && c.resetToken == "":
		return false
	case m == ModalDeleteAccount && c.session == nil:
		return false
	}
	c.modal = m
	c.errors = nil
	return true
}

// CloseModal hides m if it is the open dialog. Closing the new-password
// dialog discards the reset token.
func (c *Controller) CloseModal(m Modal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modal != m {
		return
	}
	c.modal = ModalNone
	c.errors = nil
	if m == ModalResetPassword {
		c.resetToken = ""
	}
}

// PopToasts returns and clears the pending notifications.
func (c *Controller) PopToasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.toasts
	c.toasts = nil
	return out
}

func (c *Controller) notify(level ToastLevel, key string, args ...any) {
	c.mu.Lock()
	c.addToastLocked(level, key, args...)
	c.mu.Unlock()
}

func (c *Controller) addToastLocked(level ToastLevel, key string, args ...any) {
	c.toasts = append(c.toasts, Toast{Level: level, Key: key, Args: args})
}

func (c *Controller) setErrors(errs map[string]string) {
	c.mu.Lock()
	c.errors = errs
	c.mu.Unlock()
}

// --- Read side ---

// Page returns the page currently on screen.
func (c *Controller) Page() model.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Session returns a copy of the current session, nil when logged out.
func (c *Controller) Session() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Snapshot returns a consistent read-only copy of the controller state.
func (c *Controller) Snapshot() View {
	polling := c.poller.Running()

	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Page:         c.page,
		Search:       c.search,
		Results:      c.results,
		Detail:       c.detail,
		Record:       c.record,
		FormDetail:   c.formDetail,
		Form:         c.form,
		PendingUsers: c.pendingUsers,
		PendingForms: make(map[catalogue.Category][]catalogue.PendingForm, len(c.pendingForms)),
		Counts:       c.countsLocked(),
		RefreshedAt:  c.refreshedAt,
		Polling:      polling,
		Modal:        c.modal,
		EmailToken:   c.emailToken,
		Email:        c.emailOutcomes[c.emailToken],
	}
	if c.session != nil {
		s := *c.session
		v.Session = &s
		v.Profile = c.profiles[s.UserID]
	}
	for cat, forms := range c.pendingForms {
		v.PendingForms[cat] = forms
	}
	if len(c.errors) > 0 {
		v.Errors = make(map[string]string, len(c.errors))
		for k, e := range c.errors {
			v.Errors[k] = e
		}
	}
	return v
}

// Close stops the pollers. The controller stays usable.
func (c *Controller) Close() {
	c.poller.Stop()
}
