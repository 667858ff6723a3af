package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/me/patrimoine/internal/portal"
	"github.com/me/patrimoine/pkg/catalogue"
)

// Template functions available in all templates. "t" and "tt" are bound
// to the request language at render time.
var templateFuncs = template.FuncMap{
	"t":  func(key string, args ...any) string { return key },
	"tt": func(key string, args []any) string { return key },
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return humanize.Time(t)
	},
	"count": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006")
	},
	"categoryKey": func(c catalogue.Category) string {
		return "category." + string(c)
	},
	"pageKey": func(p any) string {
		return fmt.Sprintf("page.%v", p)
	},
	"toastColor": func(l portal.ToastLevel) string {
		switch l {
		case portal.ToastSuccess:
			return "bg-green-50 text-green-800 border-green-200"
		case portal.ToastError:
			return "bg-red-50 text-red-800 border-red-200"
		default:
			return "bg-blue-50 text-blue-800 border-blue-200"
		}
	},
	"formsOf": func(m map[catalogue.Category][]catalogue.PendingForm, c catalogue.Category) []catalogue.PendingForm {
		return m[c]
	},
	"hasCategory": func(cats []catalogue.Category, c catalogue.Category) bool {
		for _, x := range cats {
			if x == c {
				return true
			}
		}
		return false
	},
	"searchURL": searchURL,
	"prevOffset": func(sc portal.SearchContext, res *catalogue.SearchResult) int {
		n := len(res.Results)
		if n == 0 || sc.Offset == 0 {
			return -1
		}
		return max(sc.Offset-n, 0)
	},
	"nextOffset": func(sc portal.SearchContext, res *catalogue.SearchResult) int {
		next := sc.Offset + len(res.Results)
		if len(res.Results) == 0 || next >= res.Total {
			return -1
		}
		return next
	},
	"join": strings.Join,
}

// searchURL rebuilds the query string of a search at offset.
func searchURL(sc portal.SearchContext, offset int) string {
	q := url.Values{}
	if sc.Query != "" {
		q.Set("q", sc.Query)
	}
	for _, c := range sc.Categories {
		q.Add("category", string(c))
	}
	f := sc.Filters
	if f.Location != nil {
		addAll(q, "commune", f.Location.Communes)
		addAll(q, "department", f.Location.Departments)
		addAll(q, "region", f.Location.Regions)
		addAll(q, "country", f.Location.Countries)
	}
	addAll(q, "century", f.Centuries)
	addAll(q, "material", f.Materials)
	addAll(q, "conservation_state", f.ConservationStates)
	addAll(q, "technique", f.Techniques)
	addAll(q, "profession", f.Professions)
	addAll(q, "transport_mode", f.TransportModes)
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return "/search?" + q.Encode()
}

func addAll(q url.Values, key string, vs []string) {
	for _, v := range vs {
		q.Add(key, v)
	}
}

// renderTemplate renders the named page inside the layout. t translates
// message keys into the request language.
func renderTemplate(w io.Writer, name string, t func(string, ...any) string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	layout, ok := templates["layout"]
	if !ok {
		return fmt.Errorf("layout template not found")
	}

	tmpl, err := template.New("layout").Funcs(templateFuncs).Funcs(template.FuncMap{
		"t":  t,
		"tt": func(key string, args []any) string { return t(key, args...) },
	}).Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	if _, err := tmpl.New("content").Parse(content); err != nil {
		return fmt.Errorf("parse content: %w", err)
	}
	for compName, compContent := range templates {
		if strings.HasPrefix(compName, "components/") {
			if _, err := tmpl.New(filepath.Base(compName)).Parse(compContent); err != nil {
				return fmt.Errorf("parse component %s: %w", compName, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// templates holds all template content, keyed by page name.
var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{t (pageKey .View.Page)}} - {{t "app.name"}}</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-stone-50 min-h-screen">
    {{template "nav" .}}
    {{template "toasts" .}}
    <main class="max-w-6xl mx-auto py-6 px-4">
        {{template "content" .}}
    </main>
    {{template "modals" .}}
    {{template "footer" .}}
</body>
</html>`,

	"components/nav": `{{define "nav"}}
<nav class="bg-white shadow-sm border-b">
    <div class="max-w-6xl mx-auto px-4 flex justify-between h-16">
        <div class="flex items-center space-x-6">
            <form action="/go/home" method="POST"><button class="text-xl font-bold text-amber-700">{{t "app.name"}}</button></form>
            <form action="/go/search" method="POST"><button class="text-sm text-gray-600 hover:text-gray-900">{{t "page.search"}}</button></form>
            {{if index .Allowed "contribute"}}
            <form action="/go/contribute" method="POST"><button class="text-sm text-gray-600 hover:text-gray-900">{{t "page.contribute"}}</button></form>
            {{end}}
            {{if index .Allowed "validate-contributors"}}
            <form action="/go/validate-contributors" method="POST">
                <button class="text-sm text-gray-600 hover:text-gray-900">{{t "page.validate-contributors"}}
                    {{if .View.Counts.Contributors}}<span class="ml-1 rounded-full bg-red-600 px-2 text-xs text-white">{{count .View.Counts.Contributors}}</span>{{end}}
                </button>
            </form>
            {{end}}
            {{if index .Allowed "validate-forms"}}
            <form action="/go/validate-forms" method="POST">
                <button class="text-sm text-gray-600 hover:text-gray-900">{{t "page.validate-forms"}}
                    {{if .View.Counts.Forms}}<span class="ml-1 rounded-full bg-red-600 px-2 text-xs text-white">{{count .View.Counts.Forms}}</span>{{end}}
                </button>
            </form>
            {{end}}
        </div>
        <div class="flex items-center space-x-4">
            <form action="/lang" method="POST">
                <select name="lang" onchange="this.form.submit()" class="text-sm border rounded" aria-label="{{t "ui.language"}}">
                    {{range .Languages}}<option value="{{.}}" {{if eq . $.Lang}}selected{{end}}>{{.}}</option>{{end}}
                </select>
            </form>
            {{if .View.Session}}
            <form action="/go/account" method="POST"><button class="text-sm text-gray-600">{{.View.Session.DisplayName}}</button></form>
            <form action="/logout" method="POST"><button class="text-sm text-gray-500 hover:text-gray-700">{{t "ui.logout"}}</button></form>
            {{else}}
            <form action="/modal/login/open" method="POST"><button class="text-sm text-gray-600">{{t "ui.login"}}</button></form>
            <form action="/modal/signup/open" method="POST"><button class="text-sm font-medium text-amber-700">{{t "ui.signup"}}</button></form>
            {{end}}
        </div>
    </div>
</nav>
{{end}}`,

	"components/toasts": `{{define "toasts"}}
{{if .Toasts}}
<div class="max-w-6xl mx-auto px-4 mt-4 space-y-2">
    {{range .Toasts}}<div class="rounded-md border p-3 text-sm {{toastColor .Level}}" role="status">{{tt .Key .Args}}</div>{{end}}
</div>
{{end}}
{{end}}`,

	"components/footer": `{{define "footer"}}
<footer class="max-w-6xl mx-auto px-4 py-8 text-xs text-gray-500 flex space-x-4">
    <form action="/go/legal-mentions" method="POST"><button>{{t "page.legal-mentions"}}</button></form>
    <form action="/go/privacy-policy" method="POST"><button>{{t "page.privacy-policy"}}</button></form>
    <form action="/go/terms-of-use" method="POST"><button>{{t "page.terms-of-use"}}</button></form>
</footer>
{{if not .Consent}}
<div class="fixed bottom-0 inset-x-0 bg-gray-900 text-white p-4 flex justify-between items-center text-sm">
    <span>{{t "ui.consent"}}</span>
    <form action="/consent" method="POST"><button class="rounded bg-amber-600 px-3 py-1">{{t "ui.consent_accept"}}</button></form>
</div>
{{end}}
{{end}}`,

	"components/field": `{{define "fielderror"}}{{with .}}<p class="mt-1 text-xs text-red-600">{{t .}}</p>{{end}}{{end}}`,

	"components/modals": `{{define "modals"}}
{{$errs := .View.Errors}}
{{if .View.Modal}}
<div class="fixed inset-0 bg-black/40 flex items-center justify-center">
<div class="bg-white rounded-lg shadow-lg w-full max-w-md p-6 space-y-4">
{{if eq .View.Modal "login"}}
    <h2 class="text-lg font-semibold">{{t "ui.login"}}</h2>
    {{template "fielderror" index $errs "_form"}}
    <form action="/login" method="POST" class="space-y-3">
        <input name="email" type="email" placeholder="{{t "ui.email"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "email"}}
        <input name="password" type="password" placeholder="{{t "ui.password"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "password"}}
        <button class="w-full rounded bg-amber-700 py-2 text-white">{{t "ui.login"}}</button>
    </form>
{{else if eq .View.Modal "signup"}}
    <h2 class="text-lg font-semibold">{{t "ui.signup"}}</h2>
    {{template "fielderror" index $errs "_form"}}
    <form action="/signup" method="POST" class="space-y-3">
        <input name="firstname" placeholder="{{t "ui.first_name"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "firstname"}}
        <input name="lastname" placeholder="{{t "ui.last_name"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "lastname"}}
        <input name="email" type="email" placeholder="{{t "ui.email"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "email"}}
        <input name="phone" placeholder="{{t "ui.phone"}}" class="w-full border rounded px-3 py-2">
        <input name="password" type="password" placeholder="{{t "ui.password"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "password"}}
        <input name="confirm" type="password" placeholder="{{t "ui.confirm_password"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "confirm"}}
        <textarea name="motivation" class="w-full border rounded px-3 py-2"></textarea>
        <button class="w-full rounded bg-amber-700 py-2 text-white">{{t "ui.signup"}}</button>
    </form>
{{else if eq .View.Modal "pending-approval"}}
    <h2 class="text-lg font-semibold">{{t "ui.pending_title"}}</h2>
    <p class="text-sm text-gray-600">{{t "ui.pending_body"}}</p>
{{else if eq .View.Modal "confirm-email"}}
    <h2 class="text-lg font-semibold">{{t "ui.confirm_email_title"}}</h2>
    <p class="text-sm text-gray-600">{{t "ui.confirm_email_body"}}</p>
{{else if eq .View.Modal "reset-password"}}
    <h2 class="text-lg font-semibold">{{t "ui.reset_title"}}</h2>
    {{template "fielderror" index $errs "_form"}}
    <form action="/password/reset" method="POST" class="space-y-3">
        <input name="password" type="password" placeholder="{{t "ui.password"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "password"}}
        <input name="confirm" type="password" placeholder="{{t "ui.confirm_password"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "confirm"}}
        <button class="w-full rounded bg-amber-700 py-2 text-white">{{t "ui.save"}}</button>
    </form>
{{else if eq .View.Modal "delete-account"}}
    <h2 class="text-lg font-semibold">{{t "ui.delete_account"}}</h2>
    <p class="text-sm text-gray-600">{{t "ui.delete_confirm"}}</p>
    <form action="/account/delete" method="POST"><button class="w-full rounded bg-red-600 py-2 text-white">{{t "ui.delete_account"}}</button></form>
{{end}}
    <form action="/modal/{{.View.Modal}}/close" method="POST"><button class="text-sm text-gray-500">{{t "ui.close"}}</button></form>
</div>
</div>
{{end}}
{{end}}`,

	"components/searchform": `{{define "searchform"}}
<form action="/search" method="GET" class="bg-white shadow rounded-lg p-4 space-y-3">
    <div class="flex space-x-2">
        <input name="q" value="{{.View.Search.Query}}" placeholder="{{t "ui.search_placeholder"}}" class="flex-1 border rounded px-3 py-2">
        <button class="rounded bg-amber-700 px-4 text-white">{{t "ui.search"}}</button>
    </div>
    <div class="flex flex-wrap gap-4 text-sm">
        {{range .Categories}}
        <label><input type="checkbox" name="category" value="{{.}}" {{if hasCategory $.View.Search.Categories .}}checked{{end}}> {{t (categoryKey .)}}</label>
        {{end}}
    </div>
</form>
{{end}}`,

	"home": `{{define "content"}}
<div class="space-y-8">
    <div>
        <h1 class="text-3xl font-semibold text-gray-900">{{t "app.name"}}</h1>
        <p class="mt-1 text-gray-500">{{t "app.tagline"}}</p>
    </div>
    {{template "searchform" .}}
    <div class="grid grid-cols-2 gap-4 sm:grid-cols-4">
        {{range .Categories}}
        <a href="/category/{{.}}" class="bg-white shadow rounded-lg p-6 text-center text-amber-800 hover:bg-amber-50">{{t (categoryKey .)}}</a>
        {{end}}
    </div>
</div>
{{end}}`,

	"search": `{{define "content"}}
<div class="space-y-6">
    {{template "searchform" .}}
    {{with .View.Results}}
    <p class="text-sm text-gray-500">{{t "ui.results" .Total}}</p>
    <ul class="bg-white shadow rounded-lg divide-y">
        {{range .Results}}
        <li class="p-4">
            <a href="/detail/{{.Category}}/{{.ID}}" class="font-medium text-amber-800">{{.Title}}</a>
            <p class="text-xs text-gray-500">{{t (categoryKey .Category)}}{{with .Location}} · {{.}}{{end}}</p>
        </li>
        {{else}}
        <li class="p-4 text-sm text-gray-500 text-center">{{t "ui.no_results"}}</li>
        {{end}}
    </ul>
    <div class="flex justify-between text-sm">
        {{$prev := prevOffset $.View.Search .}}{{$next := nextOffset $.View.Search .}}
        <span>{{if ge $prev 0}}<a href="{{searchURL $.View.Search $prev}}">{{t "ui.previous"}}</a>{{end}}</span>
        <span>{{if ge $next 0}}<a href="{{searchURL $.View.Search $next}}">{{t "ui.next"}}</a>{{end}}</span>
    </div>
    {{end}}
</div>
{{end}}`,

	"detail": `{{define "content"}}
<div class="bg-white shadow rounded-lg p-6 space-y-4">
    <form action="/back" method="POST"><button class="text-sm text-gray-500">&larr; {{t "ui.back"}}</button></form>
    {{with .View.Record}}
    <h1 class="text-2xl font-semibold">{{.Title}}</h1>
    <p class="text-sm text-gray-500">{{t (categoryKey .Category)}}{{with .Century}} · {{.}}{{end}}{{with .Location}} · {{.}}{{end}}</p>
    {{with .Description}}<p class="text-gray-700">{{.}}</p>{{end}}
    {{range .Images}}<img src="{{.}}" alt="" class="max-h-64 rounded">{{end}}
    {{if .Fields}}
    <dl class="grid grid-cols-2 gap-2 text-sm">
        {{range $k, $v := .Fields}}<dt class="text-gray-500">{{$k}}</dt><dd>{{$v}}</dd>{{end}}
    </dl>
    {{end}}
    {{end}}
</div>
{{end}}`,

	"contribute": `{{define "content"}}
{{$errs := .View.Errors}}
<div class="bg-white shadow rounded-lg p-6 space-y-4">
    <h1 class="text-2xl font-semibold">{{t "page.contribute"}}</h1>
    {{template "fielderror" index $errs "_form"}}
    <form action="/contribute" method="POST" class="space-y-3">
        <select name="category" class="w-full border rounded px-3 py-2">
            {{range .Categories}}<option value="{{.}}">{{t (categoryKey .)}}</option>{{end}}
        </select>
        {{template "fielderror" index $errs "category"}}
        <input name="title" placeholder="{{t "ui.title"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "title"}}
        <textarea name="description" placeholder="{{t "ui.description"}}" class="w-full border rounded px-3 py-2"></textarea>
        {{template "fielderror" index $errs "description"}}
        <input name="field_location" placeholder="{{t "ui.location"}}" class="w-full border rounded px-3 py-2">
        <button class="rounded bg-amber-700 px-4 py-2 text-white">{{t "ui.submit"}}</button>
    </form>
</div>
{{end}}`,

	"account": `{{define "content"}}
{{$errs := .View.Errors}}
<div class="bg-white shadow rounded-lg p-6 space-y-4">
    <h1 class="text-2xl font-semibold">{{t "page.account"}}</h1>
    {{template "fielderror" index $errs "_form"}}
    {{with .View.Profile}}
    <form action="/account" method="POST" class="space-y-3">
        <input name="firstname" value="{{.FirstName}}" placeholder="{{t "ui.first_name"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "firstname"}}
        <input name="lastname" value="{{.LastName}}" placeholder="{{t "ui.last_name"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "lastname"}}
        <input name="email" type="email" value="{{.Email}}" placeholder="{{t "ui.email"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "email"}}
        <input name="phone" value="{{.Phone}}" placeholder="{{t "ui.phone"}}" class="w-full border rounded px-3 py-2">
        <input name="password" type="password" placeholder="{{t "ui.password"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "password"}}
        <input name="confirm" type="password" placeholder="{{t "ui.confirm_password"}}" class="w-full border rounded px-3 py-2">
        {{template "fielderror" index $errs "confirm"}}
        <button class="rounded bg-amber-700 px-4 py-2 text-white">{{t "ui.save"}}</button>
    </form>
    {{end}}
    <form action="/modal/delete-account/open" method="POST"><button class="text-sm text-red-600">{{t "ui.delete_account"}}</button></form>
</div>
{{end}}`,

	"validate-contributors": `{{define "content"}}
<div class="space-y-4">
    <div class="flex justify-between items-baseline">
        <h1 class="text-2xl font-semibold">{{t "page.validate-contributors"}}</h1>
        <span class="text-xs text-gray-500">{{t "ui.refreshed" (ago .View.RefreshedAt)}}</span>
    </div>
    <ul class="bg-white shadow rounded-lg divide-y">
        {{range .View.PendingUsers}}
        <li class="p-4 flex justify-between items-center">
            <div>
                <p class="font-medium">{{.FirstName}} {{.LastName}}</p>
                <p class="text-xs text-gray-500">{{.Email}} · {{formatDate .CreatedAt}}</p>
                {{with .Motivation}}<p class="text-sm text-gray-600">{{.}}</p>{{end}}
            </div>
            <div class="flex space-x-2">
                <form action="/moderation/users/{{.ID}}/approve" method="POST"><button class="rounded bg-green-600 px-3 py-1 text-sm text-white">{{t "ui.approve"}}</button></form>
                <form action="/moderation/users/{{.ID}}/reject" method="POST"><button class="rounded bg-red-600 px-3 py-1 text-sm text-white">{{t "ui.reject"}}</button></form>
            </div>
        </li>
        {{else}}
        <li class="p-4 text-sm text-gray-500 text-center">{{t "ui.pending_none"}}</li>
        {{end}}
    </ul>
</div>
{{end}}`,

	"validate-forms": `{{define "content"}}
<div class="space-y-6">
    <div class="flex justify-between items-baseline">
        <h1 class="text-2xl font-semibold">{{t "page.validate-forms"}}</h1>
        <span class="text-xs text-gray-500">{{t "ui.refreshed" (ago .View.RefreshedAt)}}</span>
    </div>
    {{range $cat := .Categories}}
    {{$forms := formsOf $.View.PendingForms $cat}}
    <section>
        <h2 class="text-lg font-medium">{{t (categoryKey $cat)}} <span class="text-sm text-gray-500">({{count (len $forms)}})</span></h2>
        <ul class="bg-white shadow rounded-lg divide-y mt-2">
            {{range $forms}}
            <li class="p-4 flex justify-between">
                <a href="/moderation/{{$cat}}/{{.ID}}" class="text-amber-800">{{.Title}}</a>
                <span class="text-xs text-gray-500">{{t "ui.submitted_by" .SubmittedBy}} · {{formatDate .SubmittedAt}}</span>
            </li>
            {{else}}
            <li class="p-4 text-sm text-gray-500 text-center">{{t "ui.pending_none"}}</li>
            {{end}}
        </ul>
    </section>
    {{end}}
</div>
{{end}}`,

	"validate-form-detail": `{{define "content"}}
<div class="bg-white shadow rounded-lg p-6 space-y-4">
    <form action="/moderation/back" method="POST"><button class="text-sm text-gray-500">&larr; {{t "ui.back"}}</button></form>
    {{with .View.Form}}
    <h1 class="text-2xl font-semibold">{{.Title}}</h1>
    <p class="text-sm text-gray-500">{{t (categoryKey .Category)}} · {{t "ui.submitted_by" .SubmittedBy}}</p>
    {{if .Fields}}
    <dl class="grid grid-cols-2 gap-2 text-sm">
        {{range $k, $v := .Fields}}<dt class="text-gray-500">{{$k}}</dt><dd>{{$v}}</dd>{{end}}
    </dl>
    {{end}}
    <div class="flex space-x-2">
        <form action="/moderation/forms/{{.Category}}/{{.ID}}/approve" method="POST"><button class="rounded bg-green-600 px-3 py-1 text-white">{{t "ui.approve"}}</button></form>
        <form action="/moderation/forms/{{.Category}}/{{.ID}}/reject" method="POST"><button class="rounded bg-red-600 px-3 py-1 text-white">{{t "ui.reject"}}</button></form>
    </div>
    {{end}}
</div>
{{end}}`,

	"email-validation": `{{define "content"}}
<div class="bg-white shadow rounded-lg p-6 text-center space-y-4">
    <h1 class="text-2xl font-semibold">{{t "page.email-validation"}}</h1>
    {{with .View.Email}}
    {{if .Confirmed}}<p class="text-green-700">{{t "ui.email_confirmed"}}</p>{{end}}
    {{with .ErrKey}}<p class="text-sm text-gray-600">{{t .}}</p>{{end}}
    {{if .Confirmed}}<form action="/modal/login/open" method="POST"><button class="rounded bg-amber-700 px-4 py-2 text-white">{{t "ui.login"}}</button></form>{{end}}
    {{end}}
</div>
{{end}}`,

	"legal-mentions": `{{define "content"}}
<article class="bg-white shadow rounded-lg p-6 prose">
    <h1>{{t "page.legal-mentions"}}</h1>
</article>
{{end}}`,

	"privacy-policy": `{{define "content"}}
<article class="bg-white shadow rounded-lg p-6 prose">
    <h1>{{t "page.privacy-policy"}}</h1>
    <p>{{t "ui.consent"}}</p>
</article>
{{end}}`,

	"terms-of-use": `{{define "content"}}
<article class="bg-white shadow rounded-lg p-6 prose">
    <h1>{{t "page.terms-of-use"}}</h1>
</article>
{{end}}`,
}
