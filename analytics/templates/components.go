package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

//go:embed html/*.html
var files embed.FS

var tmpl = template.Must(template.New("analytics").Funcs(template.FuncMap{
	"decimal": func(f float64) string { return fmt.Sprintf("%.1f", f) },
}).ParseFS(files, "html/*.html"))

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return tmpl.ExecuteTemplate(w, name, data)
	})
}

// ReportPage renders the range selector and the report body.
func ReportPage(vm *ReportViewModel) templ.Component {
	return component("report_page", vm)
}

// ReportFragment renders only the report body, for in-place range changes.
func ReportFragment(vm *ReportViewModel) templ.Component {
	return component("report_fragment", vm)
}
