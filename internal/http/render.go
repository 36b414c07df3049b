package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"monthlynet/internal/core"
	"monthlynet/internal/log"
	appweb "monthlynet/web"
)

var templateFuncs = template.FuncMap{
	"money":  core.FormatMoney,
	"signed": core.FormatSigned,
	// inputValue leaves zero balances blank so the placeholder shows.
	"inputValue": func(v float64) string {
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"fmtFloat": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 1, 64)
	},
	"year": func() int { return time.Now().Year() },
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("monthlynet").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// layout carries what every full page needs.
type layout struct {
	Title  string
	Active string
	Theme  string
}

func (s *Server) layout(r *http.Request, title, active string) layout {
	return layout{Title: title, Active: active, Theme: themeFromRequest(r)}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	s.renderResponse(w, r, NewHTMXResponse().Status(status), name, data)
}

// renderResponse executes name into a buffer first so a template failure
// yields a clean 500 instead of a half-written page.
func (s *Server) renderResponse(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
		InternalServerError("Something went wrong rendering this page").Write(w)
		return
	}
	b.Header("Content-Type", "text/html; charset=utf-8").Body(buf.Bytes()).Write(w)
}
