package gateway

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"vaultflow/pkg/problems"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer writes the three success pages and the error page.
type Renderer interface {
	Roles(w http.ResponseWriter, r *http.Request, roles []string, code string)
	Token(w http.ResponseWriter, r *http.Request, token string)
	Error(w http.ResponseWriter, r *http.Request, out *Outcome)
}

// HTMLRenderer renders embedded html/template pages. Errors are sent as
// problem+json instead when the client asks for JSON.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded templates.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

func (h *HTMLRenderer) Roles(w http.ResponseWriter, r *http.Request, roles []string, code string) {
	h.page(w, http.StatusOK, "roles.html", map[string]any{"Roles": roles, "Code": code})
}

func (h *HTMLRenderer) Token(w http.ResponseWriter, r *http.Request, token string) {
	w.Header().Set("Cache-Control", "no-store")
	h.page(w, http.StatusOK, "token.html", map[string]any{"Token": token})
}

func (h *HTMLRenderer) Error(w http.ResponseWriter, r *http.Request, out *Outcome) {
	status := out.Category.HTTPStatus()
	if problems.Wants(r) {
		problems.Write(w, problems.Problem{
			Type:   problems.Type(string(out.Category)),
			Title:  out.Category.Message(),
			Status: status,
			Code:   out.Code,
		})
		return
	}
	h.page(w, status, "error.html", map[string]any{"Message": out.Category.Message(), "Code": out.Code})
}

// page executes into a buffer first so a template error never leaves a
// half-written 200 behind.
func (h *HTMLRenderer) page(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
