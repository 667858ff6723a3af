package ui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/me/patrimoine/internal/i18n"
	"github.com/me/patrimoine/internal/logging"
	"github.com/me/patrimoine/internal/portal"
	"github.com/me/patrimoine/internal/store"
	"github.com/me/patrimoine/pkg/catalogue"
)

// remoteAPI is a fake catalogue API.
type remoteAPI struct {
	mu        sync.Mutex
	lastQuery catalogue.SearchQuery
	emails    []string
}

func (a *remoteAPI) handler(t *testing.T) http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "Secret-pass1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "u2",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := tok.SignedString([]byte("test-key"))
		if err != nil {
			t.Errorf("sign token: %v", err)
		}
		_ = json.NewEncoder(w).Encode(catalogue.LoginResult{
			Token: signed,
			User:  &catalogue.Claims{UserID: "u2", FirstName: "Camille", LastName: "Dupont", Email: in["email"], Role: "contributor"},
		})
	})
	r.Post("/search", func(w http.ResponseWriter, r *http.Request) {
		var q catalogue.SearchQuery
		_ = json.NewDecoder(r.Body).Decode(&q)
		a.mu.Lock()
		a.lastQuery = q
		a.mu.Unlock()
		_ = json.NewEncoder(w).Encode(catalogue.SearchResult{
			Total:   1,
			Results: []catalogue.Record{{ID: "r1", Category: catalogue.CategoryMonumentsLieux, Title: "Pont du Gard"}},
		})
	})
	r.Get("/records/{category}/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(catalogue.Record{ID: chi.URLParam(r, "id"), Title: "Pont du Gard", Description: "Aqueduc romain"})
	})
	r.Post("/auth/email/{token}/validate", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.emails = append(a.emails, chi.URLParam(r, "token"))
		a.mu.Unlock()
		if chi.URLParam(r, "token") == "bad" {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	r.Get("/auth/reset/{token}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "token") == "expired" {
			w.WriteHeader(http.StatusGone)
		}
	})
	return r
}

type testEnv struct {
	server *httptest.Server
	remote *remoteAPI
	store  *store.SQLiteStore
	reg    *portal.Registry
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	remote := &remoteAPI{}
	api := httptest.NewServer(remote.handler(t))
	t.Cleanup(api.Close)

	st, err := store.NewSQLiteStore(":memory:", logging.Discard())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	env := &testEnv{remote: remote, store: st}
	env.server = env.serve(t, api.URL)
	env.client = newBrowser(t)
	return env
}

// serve starts a front end on top of the env's store.
func (env *testEnv) serve(t *testing.T, apiURL string) *httptest.Server {
	t.Helper()
	client := catalogue.NewClient(catalogue.DefaultConfig().WithBaseURL(apiURL), nil)
	reg := portal.NewRegistry(func(id string) portal.API {
		return client.Bind(env.store, id)
	}, portal.DefaultRegistryConfig(), env.store, logging.Discard())
	t.Cleanup(reg.Close)
	env.reg = reg

	catalog, err := i18n.Load("fr")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	r := chi.NewRouter()
	New(reg, env.store, catalog, logging.Discard(), Config{}).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (env *testEnv) do(t *testing.T, method, path string, form url.Values) *http.Response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, env.server.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// post expects a redirect to the root.
func (env *testEnv) post(t *testing.T, path string, form url.Values) {
	t.Helper()
	resp := env.do(t, http.MethodPost, path, form)
	assertSeeOtherRoot(t, resp)
}

// page renders the root and returns its body.
func (env *testEnv) page(t *testing.T) string {
	t.Helper()
	resp := env.do(t, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func assertSeeOtherRoot(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("%s %s status = %d, want 303", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestIndex_IssuesClientCookie(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == ClientCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("first visit should set the client cookie")
	}

	// Second visit reuses the cookie.
	resp = env.do(t, http.MethodGet, "/", nil)
	for _, c := range resp.Cookies() {
		if c.Name == ClientCookieName {
			t.Error("client cookie re-issued on second visit")
		}
	}
}

func TestIndex_FirstVisitCreatesNoController(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		resp := env.do(t, http.MethodGet, "/", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		env.client.Jar, _ = cookiejar.New(nil)
	}
	if n := env.reg.Len(); n != 0 {
		t.Errorf("Len() = %d after cookie-less visits, want 0", n)
	}

	env.page(t)
	env.page(t)
	if n := env.reg.Len(); n != 1 {
		t.Errorf("Len() = %d for a returning browser, want 1", n)
	}
}

func TestConsentBanner(t *testing.T) {
	env := newTestEnv(t)

	if body := env.page(t); !strings.Contains(body, `action="/consent"`) {
		t.Error("consent banner missing on first visit")
	}
	env.post(t, "/consent", nil)
	if body := env.page(t); strings.Contains(body, `action="/consent"`) {
		t.Error("consent banner still shown after consent")
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/modal/login/open", nil)
	if body := env.page(t); !strings.Contains(body, `action="/login"`) {
		t.Fatal("login dialog not rendered")
	}

	env.post(t, "/login", url.Values{"email": {"c@d.fr"}, "password": {"wrong"}})
	body := env.page(t)
	if !strings.Contains(body, "Identifiants incorrects.") {
		t.Error("credential error not rendered")
	}
	if !strings.Contains(body, `action="/login"`) {
		t.Error("login dialog should stay open after a failure")
	}

	env.post(t, "/login", url.Values{"email": {"c@d.fr"}, "password": {"Secret-pass1"}})
	body = env.page(t)
	if !strings.Contains(body, "Bienvenue Camille Dupont") {
		t.Error("welcome toast missing")
	}
	if !strings.Contains(body, `action="/logout"`) {
		t.Error("logged-in navigation missing")
	}
	if body := env.page(t); strings.Contains(body, "Bienvenue") {
		t.Error("toast shown twice")
	}

	env.post(t, "/logout", nil)
	if body := env.page(t); strings.Contains(body, `action="/logout"`) {
		t.Error("still logged in after logout")
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/login", url.Values{"email": {"c@d.fr"}, "password": {"Secret-pass1"}})

	// A second front end over the same store sees the same browser.
	first, _ := url.Parse(env.server.URL)
	var clientCookie *http.Cookie
	for _, c := range env.client.Jar.Cookies(first) {
		if c.Name == ClientCookieName {
			clientCookie = c
		}
	}
	if clientCookie == nil {
		t.Fatal("no client cookie")
	}

	api := httptest.NewServer(env.remote.handler(t))
	t.Cleanup(api.Close)
	env.server = env.serve(t, api.URL)
	second, _ := url.Parse(env.server.URL)
	env.client.Jar.SetCookies(second, []*http.Cookie{{Name: ClientCookieName, Value: clientCookie.Value, Path: "/"}})

	if body := env.page(t); !strings.Contains(body, "Camille Dupont") {
		t.Error("session not restored from stored credentials")
	}
}

func TestNavigate_DeniedGoesHome(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/go/validate-forms", nil)
	body := env.page(t)
	if !strings.Contains(body, "<title>Accueil") {
		t.Error("anonymous admin navigation should render home")
	}

	env.post(t, "/go/legal-mentions", nil)
	if body := env.page(t); !strings.Contains(body, "<title>Mentions légales") {
		t.Error("public page not rendered")
	}

	resp := env.do(t, http.MethodPost, "/go/nowhere", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown page status = %d, want 404", resp.StatusCode)
	}
}

func TestSearchAndDetail(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/search?q=pont&category=monuments-lieux&category=bogus&century=XVIe", nil)
	assertSeeOtherRoot(t, resp)

	env.remote.mu.Lock()
	q := env.remote.lastQuery
	env.remote.mu.Unlock()
	if q.Text != "pont" || len(q.Categories) != 1 || q.Categories[0] != catalogue.CategoryMonumentsLieux {
		t.Errorf("query sent = %+v", q)
	}
	if len(q.Filters.Centuries) != 1 || q.Filters.Centuries[0] != "XVIe" {
		t.Errorf("filters sent = %+v", q.Filters)
	}

	body := env.page(t)
	if !strings.Contains(body, "Pont du Gard") || !strings.Contains(body, "/detail/monuments-lieux/r1") {
		t.Error("search results not rendered")
	}

	assertSeeOtherRoot(t, env.do(t, http.MethodGet, "/detail/monuments-lieux/r1", nil))
	if body := env.page(t); !strings.Contains(body, "Aqueduc romain") {
		t.Error("detail not rendered")
	}

	env.post(t, "/back", nil)
	if body := env.page(t); !strings.Contains(body, "<title>Recherche") {
		t.Error("back from detail should return to the results")
	}

	resp = env.do(t, http.MethodGet, "/category/unknown", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown category status = %d", resp.StatusCode)
	}
}

func TestEmailLink(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/email/tok-1/validate", nil)
	assertSeeOtherRoot(t, resp)

	body := env.page(t)
	if !strings.Contains(body, "Votre adresse électronique est confirmée.") {
		t.Error("confirmation not rendered")
	}
	env.page(t)

	env.remote.mu.Lock()
	defer env.remote.mu.Unlock()
	if len(env.remote.emails) != 1 || env.remote.emails[0] != "tok-1" {
		t.Errorf("confirm calls = %v, want exactly one for tok-1", env.remote.emails)
	}
}

func TestResetLink(t *testing.T) {
	env := newTestEnv(t)

	assertSeeOtherRoot(t, env.do(t, http.MethodGet, "/reset/good", nil))
	if body := env.page(t); !strings.Contains(body, `action="/password/reset"`) {
		t.Error("reset dialog not opened")
	}

	assertSeeOtherRoot(t, env.do(t, http.MethodGet, "/reset/expired", nil))
	if body := env.page(t); !strings.Contains(body, "Ce lien de réinitialisation est invalide ou a expiré.") {
		t.Error("invalid link message missing")
	}
}

func TestModal_Unknown(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/modal/bogus/open", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLanguage(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/", nil)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.8")
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), "<title>Home") {
		t.Error("Accept-Language not honoured")
	}

	env.post(t, "/lang", url.Values{"lang": {"en"}})
	if body := env.page(t); !strings.Contains(body, `<html lang="en">`) {
		t.Error("language cookie not honoured")
	}
}

func TestPasswordStrength(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/password/strength", url.Values{"password": {"abc"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Valid    bool   `json:"valid"`
		Strength string `json:"strength"`
		Rules    []struct {
			Key string `json:"key"`
			Met bool   `json:"met"`
		} `json:"rules"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Valid || out.Strength != "weak" || len(out.Rules) != 5 {
		t.Errorf("got %+v", out)
	}
}

func TestParseSearch(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/search?q=+moulin+&category=mobiliers-images&commune=Arles&commune=+&offset=40&material=bois", nil)
	sc := parseSearch(r)

	if sc.Query != "moulin" {
		t.Errorf("Query = %q", sc.Query)
	}
	if len(sc.Categories) != 1 || sc.Categories[0] != catalogue.CategoryMobiliersImages {
		t.Errorf("Categories = %v", sc.Categories)
	}
	if sc.Offset != 40 {
		t.Errorf("Offset = %d", sc.Offset)
	}
	if sc.Filters.Location == nil || len(sc.Filters.Location.Communes) != 1 {
		t.Errorf("Location = %+v", sc.Filters.Location)
	}
	if len(sc.Filters.Materials) != 1 || sc.Filters.Materials[0] != "bois" {
		t.Errorf("Materials = %v", sc.Filters.Materials)
	}

	if got := searchURL(sc, 60); !strings.Contains(got, "offset=60") || !strings.Contains(got, "commune=Arles") {
		t.Errorf("searchURL() = %q", got)
	}
}
