package medlog

import (
	"github.com/a-h/templ"

	"github.com/eringen/medlog/analytics"
	"github.com/eringen/medlog/visits"
)

// PageMeta carries per-request chrome data into the layout.
type PageMeta struct {
	SiteName  string
	Title     string
	UserEmail string
	SignedIn  bool
	CSRFToken string
	Path      string // request path, for highlighting the active nav entry
}

// LoginPage is the data behind the sign-in form.
type LoginPage struct {
	Email     string
	Error     string
	CSRFToken string
}

// HistoryPage is the data behind the visit history list.
type HistoryPage struct {
	Visits     []visits.Visit
	Total      int // visits before filtering
	Query      string
	Category   visits.Category
	Categories []visits.Category // categories present in the user's history
	Message    string
	CSRFToken  string
}

// VisitFormPage is the data behind the create/edit form.
type VisitFormPage struct {
	Visit             visits.Visit
	IsNew             bool
	Errors            map[string]string
	Categories        []visits.Category
	SymptomCategories []visits.SymptomCategory
	CSRFToken         string
}

// ViewFuncs holds the templ components the App renders. Every page body is
// wrapped by Layout.
type ViewFuncs struct {
	Layout      func(meta PageMeta, body templ.Component) templ.Component
	Login       func(page LoginPage) templ.Component
	Dashboard   func(d *analytics.Dashboard) templ.Component
	History     func(page HistoryPage) templ.Component
	VisitForm   func(page VisitFormPage) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}
