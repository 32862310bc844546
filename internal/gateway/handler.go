// internal/gateway/handler.go
package gateway

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the three user-facing routes.
// GET  /       redirect to the Google consent page
// GET  /roles  role picker (carries ?code= from the OAuth callback)
// POST /login  form: code, role -> token page
func RegisterRoutes(r chi.Router, g *Gateway, view Renderer) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		url, err := g.AuthorizationURL(req.Context())
		if err != nil {
			renderError(w, req, view, OpAuthorizationURL, err)
			return
		}
		http.Redirect(w, req, url, http.StatusFound)
	})

	r.Get("/roles", func(w http.ResponseWriter, req *http.Request) {
		roles, err := g.ListRoles(req.Context())
		if err != nil {
			renderError(w, req, view, OpListRoles, err)
			return
		}
		view.Roles(w, req, roles, req.URL.Query().Get("code"))
	})

	r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			view.Error(w, req, &Outcome{
				Operation: OpExchange,
				Category:  CategoryInvalidRequest,
				Code:      CodeMissingLoginInput,
				Cause:     err,
			})
			return
		}
		token, err := g.Exchange(req.Context(), LoginExchange{
			Code: req.PostForm.Get("code"),
			Role: req.PostForm.Get("role"),
		})
		if err != nil {
			renderError(w, req, view, OpExchange, err)
			return
		}
		view.Token(w, req, token)
	})
}

func renderError(w http.ResponseWriter, req *http.Request, view Renderer, op Operation, err error) {
	var out *Outcome
	if !errors.As(err, &out) {
		out = classify(op, err)
	}
	view.Error(w, req, out)
}
