package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRegisterMountsRoutes(t *testing.T) {
	d, _, _, _ := testDeps(t)
	t.Setenv("SYNC_POLL_INTERVAL", "1h")

	e := echo.New()
	Register(e, d)
	t.Cleanup(shutdownSyncWorkers)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	// Authenticated routes reject anonymous requests at the guard.
	req = httptest.NewRequest(http.MethodGet, "/api/task", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /api/task = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/cron/readables/sync", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unkeyed cron = %d", rec.Code)
	}
}

func TestRegisterPanicsWithoutLogger(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil logger")
		}
	}()
	Register(echo.New(), Deps{})
}
