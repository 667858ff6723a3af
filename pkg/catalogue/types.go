package catalogue

import (
	"time"
)

// Category is one of the four catalogue record families.
type Category string

const (
	CategoryMonumentsLieux     Category = "monuments-lieux"
	CategoryMobiliersImages    Category = "mobiliers-images"
	CategoryPersonnesMorales   Category = "personnes-morales"
	CategoryPersonnesPhysiques Category = "personnes-physiques"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryMonumentsLieux,
	CategoryMobiliersImages,
	CategoryPersonnesMorales,
	CategoryPersonnesPhysiques,
}

// ParseCategory validates a category identifier.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Claims is the identity bundle returned at login and persisted locally.
type Claims struct {
	UserID    string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
}

// Complete reports whether the claims identify a user.
func (c *Claims) Complete() bool {
	return c != nil && c.UserID != "" && c.Email != ""
}

// Credentials is what the client persists between requests for one browser.
type Credentials struct {
	Token   string
	Claims  Claims
	SavedAt time.Time
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token string  `json:"token"`
	User  *Claims `json:"user"`
}

// SignupRequest is a contributor application.
type SignupRequest struct {
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Password   string `json:"password"`
	Motivation string `json:"motivation,omitempty"`
}

// Profile is the full account record of the current user.
type Profile struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileUpdate changes the current user's account. Empty Password keeps
// the current one.
type ProfileUpdate struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password,omitempty"`
}

// PendingUser is a contributor account awaiting admin approval.
type PendingUser struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstname"`
	LastName   string    `json:"lastname"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Motivation string    `json:"motivation,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PendingForm is a submitted catalogue record awaiting moderation.
type PendingForm struct {
	ID          string            `json:"id"`
	Category    Category          `json:"category"`
	Title       string            `json:"title"`
	SubmittedBy string            `json:"submitted_by"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Decision is a moderation verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a moderation verdict.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), true
	}
	return "", false
}

// LocationFilter scopes a search geographically. Any level may be empty.
type LocationFilter struct {
	Communes    []string `json:"communes,omitempty"`
	Departments []string `json:"departments,omitempty"`
	Regions     []string `json:"regions,omitempty"`
	Countries   []string `json:"countries,omitempty"`
}

// IsZero reports whether no location level is set.
func (l *LocationFilter) IsZero() bool {
	return l == nil || len(l.Communes)+len(l.Departments)+len(l.Regions)+len(l.Countries) == 0
}

// Filters are the advanced search facets. Every list is independent.
type Filters struct {
	Location           *LocationFilter `json:"location,omitempty"`
	Centuries          []string        `json:"centuries,omitempty"`
	Materials          []string        `json:"materials,omitempty"`
	ConservationStates []string        `json:"conservation_states,omitempty"`
	Techniques         []string        `json:"techniques,omitempty"`
	Professions        []string        `json:"professions,omitempty"`
	TransportModes     []string        `json:"transport_modes,omitempty"`
}

// IsZero reports whether no facet is set.
func (f Filters) IsZero() bool {
	return f.Location.IsZero() &&
		len(f.Centuries)+len(f.Materials)+len(f.ConservationStates)+
			len(f.Techniques)+len(f.Professions)+len(f.TransportModes) == 0
}

// SearchQuery is sent to the search endpoint.
type SearchQuery struct {
	Text       string     `json:"query"`
	Categories []Category `json:"categories,omitempty"`
	Filters    Filters    `json:"filters"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// Record is one public catalogue entry.
type Record struct {
	ID          string            `json:"id"`
	Category    Category          `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Location    string            `json:"location,omitempty"`
	Century     string            `json:"century,omitempty"`
	Images      []string          `json:"images,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Total   int      `json:"total"`
	Results []Record `json:"results"`
}

// Contribution is a new record proposed by a contributor.
type Contribution struct {
	Category    Category          `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Health is the API's health probe payload.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
