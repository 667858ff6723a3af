package portal

import (
	"time"

	"github.com/me/patrimoine/pkg/catalogue"
	"github.com/me/patrimoine/pkg/model"
)

// Modal names the dialog currently shown over the page. At most one is
// open at a time.
type Modal string

const (
	ModalNone            Modal = ""
	ModalLogin           Modal = "login"
	ModalSignup          Modal = "signup"
	ModalPendingApproval Modal = "pending-approval"
	ModalConfirmEmail    Modal = "confirm-email"
	ModalResetPassword   Modal = "reset-password"
	ModalDeleteAccount   Modal = "delete-account"
)

var modals = map[Modal]bool{
	ModalLogin:           true,
	ModalSignup:          true,
	ModalPendingApproval: true,
	ModalConfirmEmail:    true,
	ModalResetPassword:   true,
	ModalDeleteAccount:   true,
}

// ParseModal validates a modal name.
func ParseModal(s string) (Modal, bool) {
	m := Modal(s)
	return m, modals[m]
}

// ToastLevel is the severity of a toast notification.
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

// Toast is a one-shot notification. Key is a translation key; Args fill
// its placeholders.
type Toast struct {
	Level ToastLevel
	Key   string
	Args  []any
}

// FormError is the Errors key for a message that belongs to the whole form
// rather than to one field.
const FormError = "_form"

// SearchContext is the query driving the search page. It is replaced
// wholesale by every search.
type SearchContext struct {
	Query      string
	Categories []catalogue.Category
	Filters    catalogue.Filters
	Offset     int
}

// IsZero reports whether nothing has been searched yet.
func (s SearchContext) IsZero() bool {
	return s.Query == "" && len(s.Categories) == 0 && s.Filters.IsZero()
}

// Ref locates one catalogue record or one pending form.
type Ref struct {
	Category catalogue.Category
	ID       string
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// EmailOutcome is the result of consuming an email-confirmation token.
type EmailOutcome struct {
	Confirmed bool
	ErrKey    string
}

// View is a read-only copy of everything needed to render one response.
type View struct {
	Page    model.Page
	Session *model.Session

	Search  SearchContext
	Results *catalogue.SearchResult

	Detail Ref
	Record *catalogue.Record

	FormDetail Ref
	Form       *catalogue.PendingForm

	PendingUsers []catalogue.PendingUser
	PendingForms map[catalogue.Category][]catalogue.PendingForm
	Counts       model.PendingCounts
	RefreshedAt  time.Time
	Polling      bool

	Modal      Modal
	Errors     map[string]string
	EmailToken string
	Email      *EmailOutcome
	Profile    *catalogue.Profile
}
