package guard

import "html/template"

// Gate is the fragment-level counterpart of Guard: it answers "should
// this element render" and nothing else. Unlike Guard it never
// redirects; a failed gate simply omits the fragment.
type Gate struct {
	// Permission is a single required code.
	Permission string
	// Permissions is a required list, interpreted per RequireAll.
	Permissions []string
	// RequireAll demands every listed code; otherwise one suffices.
	RequireAll bool
}

// Allowed reports whether the gated fragment should render. Gates
// appear only inside already-guarded pages, so there is no
// authentication step here: an unauthenticated session holds no
// permissions and fails closed anyway.
func (g Gate) Allowed(s Session) bool {
	return allowed(s, Options{
		Permission:  g.Permission,
		Permissions: g.Permissions,
		RequireAll:  g.RequireAll,
	})
}

// FuncMap exposes gate checks to templates as `can`, `canAny` and
// `canAll`. The session is captured at render time, so templates see
// the same snapshot the surrounding guard decided on.
func FuncMap(s Session) template.FuncMap {
	return template.FuncMap{
		"can": s.HasPermission,
		"canAny": func(codes ...string) bool {
			return s.HasAnyPermission(codes...)
		},
		"canAll": func(codes ...string) bool {
			for _, code := range codes {
				if !s.HasPermission(code) {
					return false
				}
			}
			return true
		},
	}
}
