package handler

import (
	"net/http"
)

// ============================================================
// Guarded workspace pages
// ============================================================

// roleLandings maps the first matching role to its home page; everyone
// else lands on shipments.
var roleLandings = map[string]string{
	"accountant": "/accounting",
	"sales":      "/quotations",
	"admin":      "/users",
}

const defaultLanding = "/shipments"

func (c *console) landingFor() string {
	st := c.mgr.State()
	if st.Actor != nil {
		for _, role := range st.Actor.Roles {
			if path, ok := roleLandings[role]; ok {
				return path
			}
		}
	}
	return defaultLanding
}

func (c *console) root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, c.landingFor(), http.StatusSeeOther)
}

func (c *console) unauthorized(w http.ResponseWriter, r *http.Request) {
	st := c.mgr.State()
	c.render(w, http.StatusForbidden, "unauthorized.tmpl", pageData{
		Title:   "Not authorized",
		Actor:   st.Actor,
		Landing: c.landingFor(),
	})
}

// modulePage renders the generic workspace page for one permission
// module. Action links inside the template are gated per-code.
func (c *console) modulePage(title, module, slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := c.mgr.State()
		c.render(w, http.StatusOK, "module.tmpl", pageData{
			Title:  title,
			Module: module,
			Slug:   slug,
			Actor:  st.Actor,
		})
	}
}

func (c *console) accountingPage(w http.ResponseWriter, r *http.Request) {
	st := c.mgr.State()
	c.render(w, http.StatusOK, "accounting.tmpl", pageData{
		Title: "Accounting",
		Actor: st.Actor,
	})
}
