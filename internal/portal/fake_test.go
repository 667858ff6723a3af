package portal

import (
	"context"
	"net/http"
	"sync"

	"github.com/me/patrimoine/pkg/catalogue"
)

// fakeAPI is an in-memory API. Errors set on it are returned by the
// matching call; every call is counted.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	claims      *catalogue.Claims
	synthesized bool
	loginErr    error
	stored      *catalogue.Claims
	authValid   bool

	createErr  error
	profile    *catalogue.Profile
	profileErr error
	updateErr  error
	deleteErr  error

	resetErr        error
	confirmResetErr error
	emailErr        error

	pendingUsers    []catalogue.PendingUser
	pendingUsersErr error
	pendingForms    map[catalogue.Category][]catalogue.PendingForm
	pendingFormsErr error
	form            *catalogue.PendingForm
	formErr         error
	moderateErr     error

	searchRes  *catalogue.SearchResult
	searchErr  error
	lastQuery  catalogue.SearchQuery
	record     *catalogue.Record
	recordErr  error
	submitErr  error
	lastSubmit catalogue.Contribution
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) count(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*catalogue.Claims, bool, error) {
	f.count("Login")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, false, f.loginErr
	}
	c := *f.claims
	f.stored = &c
	f.authValid = true
	return &c, f.synthesized, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.count("Logout")
	f.mu.Lock()
	f.stored = nil
	f.authValid = false
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) IsAuthenticated(ctx context.Context) bool {
	f.count("IsAuthenticated")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authValid && f.stored != nil
}

func (f *fakeAPI) GetUserData(ctx context.Context) (*catalogue.Claims, error) {
	f.count("GetUserData")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		return nil, nil
	}
	c := *f.stored
	return &c, nil
}

func (f *fakeAPI) CreateUser(ctx context.Context, req catalogue.SignupRequest) error {
	f.count("CreateUser")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createErr
}

func (f *fakeAPI) GetUserProfile(ctx context.Context) (*catalogue.Profile, error) {
	f.count("GetUserProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeAPI) UpdateUserProfile(ctx context.Context, upd catalogue.ProfileUpdate) (*catalogue.Profile, error) {
	f.count("UpdateUserProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &catalogue.Profile{FirstName: upd.FirstName, LastName: upd.LastName, Email: upd.Email, Phone: upd.Phone}, nil
}

func (f *fakeAPI) DeleteUserAccount(ctx context.Context) error {
	f.count("DeleteUserAccount")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeAPI) ValidateResetToken(ctx context.Context, resetToken string) error {
	f.count("ValidateResetToken")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resetErr
}

func (f *fakeAPI) ConfirmPasswordReset(ctx context.Context, resetToken, password string) error {
	f.count("ConfirmPasswordReset")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmResetErr
}

func (f *fakeAPI) ConfirmEmail(ctx context.Context, emailToken string) error {
	f.count("ConfirmEmail")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emailErr
}

func (f *fakeAPI) GetPendingUsers(ctx context.Context) ([]catalogue.PendingUser, error) {
	f.count("GetPendingUsers")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingUsersErr != nil {
		return nil, f.pendingUsersErr
	}
	return f.pendingUsers, nil
}

func (f *fakeAPI) GetPendingForms(ctx context.Context, cat catalogue.Category) ([]catalogue.PendingForm, error) {
	f.count("GetPendingForms")
	f.count("GetPendingForms:" + string(cat))
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingFormsErr != nil {
		return nil, f.pendingFormsErr
	}
	return f.pendingForms[cat], nil
}

func (f *fakeAPI) GetPendingForm(ctx context.Context, cat catalogue.Category, id string) (*catalogue.PendingForm, error) {
	f.count("GetPendingForm")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.formErr != nil {
		return nil, f.formErr
	}
	return f.form, nil
}

func (f *fakeAPI) ModerateUser(ctx context.Context, userID string, d catalogue.Decision) error {
	f.count("ModerateUser")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moderateErr
}

func (f *fakeAPI) ModerateForm(ctx context.Context, cat catalogue.Category, id string, d catalogue.Decision) error {
	f.count("ModerateForm")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moderateErr
}

func (f *fakeAPI) Search(ctx context.Context, q catalogue.SearchQuery) (*catalogue.SearchResult, error) {
	f.count("Search")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchRes, nil
}

func (f *fakeAPI) GetRecord(ctx context.Context, cat catalogue.Category, id string) (*catalogue.Record, error) {
	f.count("GetRecord")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return f.record, nil
}

func (f *fakeAPI) Submit(ctx context.Context, c catalogue.Contribution) error {
	f.count("Submit")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSubmit = c
	return f.submitErr
}

// apiErr builds a catalogue error with the given status.
func apiErr(status int, code string) error {
	return &catalogue.Error{Op: "test", StatusCode: status, Code: code}
}

var (
	errUnauthorized = apiErr(http.StatusUnauthorized, "")
	errForbidden    = apiErr(http.StatusForbidden, "")
	errNotFound     = apiErr(http.StatusNotFound, "")
	errServer       = apiErr(http.StatusInternalServerError, "")
	errOffline      = catalogue.WrapError("test", context.DeadlineExceeded)
)
