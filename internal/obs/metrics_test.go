package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"shopadmin.app/internal/ids"
)

func TestCanonicalPath(t *testing.T) {
	id := ids.New()
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/users/" + id:                    "/users/:id",
		"/products/" + id:                 "/products/:id",
		"/system-logs/archive/" + id:      "/system-logs/archive/:id",
		"/system-logs?actionType=LOGIN":   "/system-logs",
		"/products/not-an-id":             "/products/not-an-id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentKeepsStatus(t *testing.T) {
	Init()
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/brew", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}
}
