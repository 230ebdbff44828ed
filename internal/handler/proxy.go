package handler

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"strings"

	"go.uber.org/zap"
)

// statusClass buckets response codes for the proxy counter. 401 keeps
// its own bucket because it drives session teardown.
func statusClass(code int) string {
	if code == http.StatusUnauthorized {
		return "401"
	}
	return fmt.Sprintf("%dxx", code/100)
}

// proxyHandler forwards /api/* to the freight backend's /v1/* with the
// operator's access token attached. The browser never sees or holds a
// token; this process is the only token holder.
func (c *console) proxyHandler() http.Handler {
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(c.backendURL)
			pr.Out.URL.Path = "/v1" + strings.TrimPrefix(pr.In.URL.Path, "/api")
			pr.Out.Host = c.backendURL.Host
			if tok := c.vault.AccessToken(); tok != "" {
				pr.Out.Header.Set("Authorization", "Bearer "+tok)
			}
			pr.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			c.metrics.IncrProxyRequest(statusClass(resp.StatusCode))
			// A 401 on any feature call means the backend invalidated
			// the session; tear down locally so the next navigation
			// lands on the login page instead of erroring repeatedly.
			if resp.StatusCode == http.StatusUnauthorized {
				c.metrics.IncrAuthFailure("proxy")
				c.mgr.AuthFailure()
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			c.logger.Error("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
			c.metrics.IncrProxyRequest("error")
			writeError(w, http.StatusBadGateway, "freight backend unavailable")
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.mgr.IsAuthenticated() {
			c.metrics.IncrProxyRequest("unauthenticated")
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		rp.ServeHTTP(w, r)
	})
}
