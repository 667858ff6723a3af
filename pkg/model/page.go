package model

// Page names the single top-level view rendered for a client.
type Page string

const (
	PageHome                 Page = "home"
	PageSearch               Page = "search"
	PageContribute           Page = "contribute"
	PageAccount              Page = "account"
	PageValidateForms        Page = "validate-forms"
	PageValidateContributors Page = "validate-contributors"
	PageDetail               Page = "detail"
	PageValidateFormDetail   Page = "validate-form-detail"
	PageEmailValidation      Page = "email-validation"
	PageLegalMentions        Page = "legal-mentions"
	PagePrivacyPolicy        Page = "privacy-policy"
	PageTermsOfUse           Page = "terms-of-use"
)

// Access is the precondition a page places on the session.
type Access int

const (
	// AccessPublic pages render for everyone.
	AccessPublic Access = iota
	// AccessAuthenticated pages need a non-nil session.
	AccessAuthenticated
	// AccessAdmin pages need a session with admin role.
	AccessAdmin
)

// PageAccess is the transition table: the precondition of every page.
var PageAccess = map[Page]Access{
	PageHome:                 AccessPublic,
	PageSearch:               AccessPublic,
	PageDetail:               AccessPublic,
	PageEmailValidation:      AccessPublic,
	PageLegalMentions:        AccessPublic,
	PagePrivacyPolicy:        AccessPublic,
	PageTermsOfUse:           AccessPublic,
	PageContribute:           AccessAuthenticated,
	PageAccount:              AccessAuthenticated,
	PageValidateForms:        AccessAdmin,
	PageValidateContributors: AccessAdmin,
	PageValidateFormDetail:   AccessAdmin,
}

// String returns the string representation of the page.
func (p Page) String() string {
	return string(p)
}

// ParsePage converts a string to a Page. The boolean is false for unknown
// names.
func ParsePage(s string) (Page, bool) {
	p := Page(s)
	_, ok := PageAccess[p]
	return p, ok
}

// AllowedFor reports whether the page's precondition holds for sess.
func (p Page) AllowedFor(sess *Session) bool {
	access, ok := PageAccess[p]
	if !ok {
		return false
	}
	switch access {
	case AccessAuthenticated:
		return sess != nil
	case AccessAdmin:
		return sess.IsAdmin()
	default:
		return true
	}
}

// AllowedPages returns the set of pages reachable with sess.
func AllowedPages(sess *Session) map[Page]bool {
	out := make(map[Page]bool, len(PageAccess))
	for p := range PageAccess {
		if p.AllowedFor(sess) {
			out[p] = true
		}
	}
	return out
}

// Resolve is the single dispatch point of the page state machine: it
// returns target when its precondition holds for sess, and home otherwise.
// Unknown targets also resolve to home.
func Resolve(target Page, sess *Session) Page {
	if target.AllowedFor(sess) {
		return target
	}
	return PageHome
}
