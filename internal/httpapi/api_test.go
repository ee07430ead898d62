package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shopadmin.app/internal/analytics"
	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/catalog"
	"shopadmin.app/internal/customer"
)

const (
	testSecret   = "test-secret"
	rootPassword = "root-pass"
)

type testEnv struct {
	t          *testing.T
	baseURL    string
	client     *http.Client
	api        *API
	tokens     *auth.TokenService
	service    *auth.Service
	accounts   *auth.MemoryStore
	logs       *audit.MemoryStore
	products   *catalog.MemoryStore
	recorder   *audit.Recorder
	superadmin auth.Account
}

func newTestAPI(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	accounts := auth.NewMemoryStore()
	service, err := auth.NewService(accounts, tokens, auth.WithPasswordCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	root, created, err := service.EnsureSuperadmin(context.Background(), auth.BootstrapInput{
		Username: "root",
		Password: rootPassword,
	})
	if err != nil || !created {
		t.Fatalf("EnsureSuperadmin: created=%v err=%v", created, err)
	}

	logs := audit.NewMemoryStore()
	feed := audit.NewFeed()
	recorder, err := audit.NewRecorder(logs,
		audit.WithLogger(zap.NewNop()),
		audit.WithFeed(feed),
		audit.WithDirectory(accounts),
	)
	if err != nil {
		t.Fatalf("audit.NewRecorder: %v", err)
	}
	products := catalog.NewMemoryStore()
	cat, err := catalog.NewService(products, catalog.NewViewDeduper(64, time.Hour))
	if err != nil {
		t.Fatalf("catalog.NewService: %v", err)
	}
	stats, err := analytics.NewService(
		analytics.CatalogSource{Store: products},
		analytics.StoreInventory{Accounts: accounts, Catalog: products, Audit: logs},
	)
	if err != nil {
		t.Fatalf("analytics.NewService: %v", err)
	}

	customers, err := customer.NewService(customer.NewMemoryStore(), tokens,
		customer.WithPasswordCost(bcrypt.MinCost),
		customer.WithTokenTTL(24*time.Hour),
	)
	if err != nil {
		t.Fatalf("customer.NewService: %v", err)
	}

	deps := Deps{
		Accounts:  service,
		Tokens:    tokens,
		Audit:     recorder,
		Feed:      feed,
		Catalog:   cat,
		Customers: customers,
		Analytics: stats,
		Version:   "test",
		Logger:    zap.NewNop(),
		Limits: Limits{
			PerSecond:          1000,
			Burst:              1000,
			AnalyticsPerMinute: 1000,
		},
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	api, err := New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		srv.Close()
		recorder.Wait()
	})

	return &testEnv{
		t:          t,
		baseURL:    srv.URL,
		client:     srv.Client(),
		api:        api,
		tokens:     tokens,
		service:    service,
		accounts:   accounts,
		logs:       logs,
		products:   products,
		recorder:   recorder,
		superadmin: root,
	}
}

func (e *testEnv) do(method, path string, body any, token string) *http.Response {
	e.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (e *testEnv) login(username, password string) loginResponse {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/login", loginRequest{Username: username, Password: password}, "")
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		e.t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
	return decode[loginResponse](e.t, resp)
}

// account registers an account directly through the service.
func (e *testEnv) account(username string, role auth.Role) auth.Account {
	e.t.Helper()
	acc, err := e.service.Register(context.Background(), auth.RegisterInput{
		Username: username,
		Password: username + "-pass",
		Role:     string(role),
	})
	if err != nil {
		e.t.Fatalf("register %s: %v", username, err)
	}
	return acc
}

func (e *testEnv) tokenFor(acc auth.Account) string {
	e.t.Helper()
	token, _, err := e.tokens.Issue(acc.ID, acc.Role, 0)
	if err != nil {
		e.t.Fatalf("issue token: %v", err)
	}
	return token
}

// customerToken registers a customer with password "pw" and returns
// their token.
func (e *testEnv) customerToken(email string) string {
	e.t.Helper()
	session, err := e.api.customers.Register(context.Background(), customer.RegisterInput{
		Name:     "Customer",
		Email:    email,
		Password: "pw",
	})
	if err != nil {
		e.t.Fatalf("register customer: %v", err)
	}
	return session.Token
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// readError consumes the body and returns the error envelope, if any.
// Success bodies of any shape decode to an empty envelope.
func readError(r *http.Response) errorResponse {
	defer r.Body.Close()
	var body errorResponse
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body := readError(resp)
		t.Fatalf("expected status %d, got %d (%s)", want, resp.StatusCode, body.Message)
	}
}
