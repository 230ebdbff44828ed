package handler

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
	"github.com/freightdesk/freightdesk-console-go/internal/guard"

	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// pageData feeds every HTML template. Fields a given page does not use
// stay zero.
type pageData struct {
	Title      string
	Module     string
	Slug       string
	Actor      *domain.Actor
	Error      string
	Return     string
	Username   string
	NeedsSetup bool
	Currencies []domain.Currency
	Landing    string
}

// parseTemplates binds the permission funcs to the live session, so
// `can`/`canAny`/`canAll` in templates always see current state.
func parseTemplates(s guard.Session) *template.Template {
	return template.Must(
		template.New("").Funcs(guard.FuncMap(s)).ParseFS(templateFS, "templates/*.tmpl"),
	)
}

func (c *console) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.tpl.ExecuteTemplate(w, name, data); err != nil {
		c.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
	}
}
