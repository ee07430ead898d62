package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"shopadmin.app/internal/analytics"
	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/catalog"
	"shopadmin.app/internal/customer"
	"shopadmin.app/internal/obs"
)

const serviceName = "shopadmin-api"

// ReadyCheck checks that the service can reach its database.
type ReadyCheck struct {
	DB *sql.DB
}

func (rc ReadyCheck) Check(ctx context.Context) error {
	if rc.DB == nil {
		return nil
	}
	return rc.DB.PingContext(ctx)
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Limits tunes the ambient request limits.
type Limits struct {
	PerSecond          float64
	Burst              int
	AnalyticsPerMinute int
	MaxBodyBytes       int64
	CORSOrigins        []string
}

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Accounts  *auth.Service
	Tokens    TokenVerifier
	Audit     *audit.Recorder
	Feed      *audit.Feed
	Catalog   *catalog.Service
	Customers *customer.Service
	Analytics *analytics.Service
	Ready     ReadyCheck
	Version   string
	Logger    *zap.Logger
	Limits    Limits
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	accounts  *auth.Service
	tokens    TokenVerifier
	audit     *audit.Recorder
	feed      *audit.Feed
	catalog   *catalog.Service
	customers *customer.Service
	analytics *analytics.Service
	ready     ReadyCheck
	version   string
	logger    *zap.Logger
	limits    Limits

	globalLimit    *ipLimiter
	analyticsLimit *ipLimiter
}

func New(d Deps) (*API, error) {
	switch {
	case d.Accounts == nil:
		return nil, errors.New("httpapi: account service is required")
	case d.Tokens == nil:
		return nil, errors.New("httpapi: token verifier is required")
	case d.Audit == nil:
		return nil, errors.New("httpapi: audit recorder is required")
	case d.Catalog == nil:
		return nil, errors.New("httpapi: catalog service is required")
	case d.Customers == nil:
		return nil, errors.New("httpapi: customer service is required")
	case d.Analytics == nil:
		return nil, errors.New("httpapi: analytics service is required")
	}
	if d.Logger == nil {
		d.Logger = obs.Logger()
	}
	if d.Limits.MaxBodyBytes <= 0 {
		d.Limits.MaxBodyBytes = 1 << 20
	}
	a := &API{
		mux:       http.NewServeMux(),
		accounts:  d.Accounts,
		tokens:    d.Tokens,
		audit:     d.Audit,
		feed:      d.Feed,
		catalog:   d.Catalog,
		customers: d.Customers,
		analytics: d.Analytics,
		ready:     d.Ready,
		version:   d.Version,
		logger:    d.Logger,
		limits:    d.Limits,
	}
	if d.Limits.PerSecond > 0 && d.Limits.Burst > 0 {
		a.globalLimit = newIPLimiter(d.Limits.PerSecond, d.Limits.Burst, "rate limit exceeded")
	}
	if d.Limits.AnalyticsPerMinute > 0 {
		a.analyticsLimit = newIPLimiter(float64(d.Limits.AnalyticsPerMinute)/60, d.Limits.AnalyticsPerMinute,
			"Too many requests to analytics endpoints, please try again later.")
	}
	a.mount()
	return a, nil
}

// Handler returns the fully wrapped handler for the HTTP server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	if a.globalLimit != nil {
		h = a.globalLimit.Middleware(h)
	}
	h = MaxBodyBytes(h, a.limits.MaxBodyBytes)
	h = CORS(h, a.limits.CORSOrigins)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h, a.logger)
	return RequestID(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
