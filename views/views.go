// Package views contains the default page components for a medlog App.
// Components are templ.Components backed by embedded html/template files.
package views

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/medlog"
	"github.com/eringen/medlog/analytics"
)

//go:embed html/*.html
var files embed.FS

var tmpl = template.Must(template.New("views").Funcs(funcs).ParseFS(files, "html/*.html"))

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return tmpl.ExecuteTemplate(w, name, data)
	})
}

type layoutData struct {
	medlog.PageMeta
	Body template.HTML
}

// Layout renders the page chrome around body.
func Layout(meta medlog.PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := body.Render(ctx, &buf); err != nil {
			return err
		}
		return tmpl.ExecuteTemplate(w, "layout", layoutData{PageMeta: meta, Body: template.HTML(buf.String())})
	})
}

func Login(page medlog.LoginPage) templ.Component {
	return component("login", page)
}

func Dashboard(d *analytics.Dashboard) templ.Component {
	return component("dashboard", d)
}

func History(page medlog.HistoryPage) templ.Component {
	return component("history", page)
}

func VisitForm(page medlog.VisitFormPage) templ.Component {
	return component("visit_form", page)
}

func NotFound() templ.Component {
	return component("not_found", nil)
}

func ServerError() templ.Component {
	return component("server_error", nil)
}

// Funcs returns the default view set.
func Funcs() medlog.ViewFuncs {
	return medlog.ViewFuncs{
		Layout:      Layout,
		Login:       Login,
		Dashboard:   Dashboard,
		History:     History,
		VisitForm:   VisitForm,
		NotFound:    NotFound,
		ServerError: ServerError,
	}
}
