package handler

import (
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
	"github.com/freightdesk/freightdesk-console-go/internal/guard"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/cache"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/observability"
	"github.com/freightdesk/freightdesk-console-go/internal/perm"
	"github.com/freightdesk/freightdesk-console-go/internal/port"
	"github.com/freightdesk/freightdesk-console-go/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const currencyCacheKey = "currencies"

// RouterConfig carries everything the HTTP layer needs, wired once in
// main.
type RouterConfig struct {
	Session        session.Manager
	Refs           port.ReferenceAPI
	Vault          port.TokenVault
	BackendURL     *url.URL
	LoginPerMinute int
	LoginBurst     int
	CacheTTL       time.Duration
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// console bundles the handler dependencies behind one receiver.
type console struct {
	mgr        session.Manager
	refs       port.ReferenceAPI
	vault      port.TokenVault
	backendURL *url.URL
	currencies *cache.InMemory[[]domain.Currency]
	limiter    *ipLimiter
	tpl        *template.Template
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	c := &console{
		mgr:        cfg.Session,
		refs:       cfg.Refs,
		vault:      cfg.Vault,
		backendURL: cfg.BackendURL,
		currencies: cache.New[[]domain.Currency](cfg.CacheTTL),
		limiter:    newIPLimiter(cfg.LoginPerMinute, cfg.LoginBurst),
		tpl:        parseTemplates(cfg.Session),
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}

	g := guard.New(cfg.Session, cfg.Logger)

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(cfg.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", c.healthz)
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/v1/session", c.sessionSnapshot)
	r.Get("/v1/currencies", c.currenciesJSON)

	// --- Authentication flow (public) ---
	r.Get(guard.LoginPath, c.loginPage)
	r.Post(guard.LoginPath, c.loginSubmit)
	r.Post("/logout", c.logout)

	// --- Authenticated but permission-free pages ---
	r.Group(func(r chi.Router) {
		r.Use(g.RequireAuth())
		r.Get("/", c.root)
		r.Get(guard.UnauthorizedPath, c.unauthorized)
		r.Get(guard.ChangePasswordPath, c.changePasswordPage)
		r.Post(guard.ChangePasswordPath, c.changePasswordSubmit)
	})

	// --- Permission-guarded workspaces ---
	view := func(module string) guard.Options {
		return guard.Options{Permission: perm.Code(module, perm.ActionView)}
	}
	r.With(g.Protect(view(perm.ModuleShipment))).
		Get("/shipments", c.modulePage("Shipments", perm.ModuleShipment, "shipments"))
	r.With(g.Protect(view(perm.ModuleQuotation))).
		Get("/quotations", c.modulePage("Quotations", perm.ModuleQuotation, "quotations"))
	r.With(g.Protect(view(perm.ModuleInvoice))).
		Get("/invoices", c.modulePage("Invoices", perm.ModuleInvoice, "invoices"))
	r.With(g.Protect(view(perm.ModuleCustomer))).
		Get("/customers", c.modulePage("Customers", perm.ModuleCustomer, "customers"))
	r.With(g.Protect(view(perm.ModuleUser))).
		Get("/users", c.modulePage("Users", perm.ModuleUser, "users"))

	// Accounting is reachable with either invoice or payment access;
	// the page itself gates its sections per-code.
	r.With(g.Protect(guard.Options{
		Permissions: []string{
			perm.Code(perm.ModuleInvoice, perm.ActionView),
			perm.Code(perm.ModulePayment, perm.ActionView),
		},
	})).Get("/accounting", c.accountingPage)

	// --- Backend passthrough ---
	r.Handle("/api/*", c.proxyHandler())

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func (c *console) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"session": c.mgr.State().Phase.String(),
	})
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// currenciesJSON backs the setup form's currency dropdown when it is
// refreshed client-side.
func (c *console) currenciesJSON(w http.ResponseWriter, r *http.Request) {
	if !c.mgr.IsAuthenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if cached, ok := c.currencies.Get(currencyCacheKey); ok {
		c.metrics.IncrCacheHit("currencies")
		writeJSON(w, http.StatusOK, cached)
		return
	}
	c.metrics.IncrCacheMiss("currencies")

	list, err := c.refs.Currencies(r.Context())
	if err != nil {
		handleServiceError(w, err, c.logger)
		return
	}
	c.currencies.Set(currencyCacheKey, list)
	writeJSON(w, http.StatusOK, list)
}

func (c *console) sessionSnapshot(w http.ResponseWriter, r *http.Request) {
	st := c.mgr.State()
	resp := struct {
		Phase         string                         `json:"phase"`
		Authenticated bool                           `json:"authenticated"`
		Actor         *domain.Actor                  `json:"actor,omitempty"`
		Activity      *observability.SessionSnapshot `json:"activity"`
	}{
		Phase:         st.Phase.String(),
		Authenticated: c.mgr.IsAuthenticated(),
		Actor:         st.Actor,
		Activity:      c.metrics.GetSessionSnapshot(),
	}
	writeJSON(w, http.StatusOK, resp)
}
