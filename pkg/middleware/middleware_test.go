package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diagnosis/roomstay/pkg/logger"
)

func TestTrace_TagsContextAndEchoesID(t *testing.T) {
	var gotID, gotService any
	h := Trace("hotels")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Context().Value(logger.RequestIDKey)
		gotService = r.Context().Value(logger.ServiceKey)
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/hotels/5", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if gotID != "abc-123" || gotService != "hotels" {
		t.Fatalf("unexpected context values id=%v service=%v", gotID, gotService)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected handler status to pass through, got %d", rec.Code)
	}
}

func TestTrace_MissingIDStaysMissing(t *testing.T) {
	var gotID any
	h := Trace("search")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Context().Value(logger.RequestIDKey)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	if gotID != nil {
		t.Fatalf("expected no request id in context, got %v", gotID)
	}
	if rec.Header().Get(RequestIDHeader) != "" {
		t.Fatal("no id should be invented")
	}
}
