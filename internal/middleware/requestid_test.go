package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		want     string
		generate bool
	}{
		{name: "propagates caller id", header: "req-42.a:b_c", want: "req-42.a:b_c"},
		{name: "trims whitespace", header: "  abc-1  ", want: "abc-1"},
		{name: "missing header", header: "", generate: true},
		{name: "rejects control characters", header: "abc\r\nSet-Cookie: x", generate: true},
		{name: "rejects spaces inside", header: "a b", generate: true},
		{name: "rejects overlong id", header: strings.Repeat("a", maxRequestIDLength+1), generate: true},
		{name: "accepts id at the limit", header: strings.Repeat("a", maxRequestIDLength), want: strings.Repeat("a", maxRequestIDLength)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			echoed := rec.Header().Get(RequestIDHeader)
			if echoed != seen {
				t.Fatalf("response id %q differs from context id %q", echoed, seen)
			}
			if tc.generate {
				if _, err := uuid.Parse(seen); err != nil {
					t.Fatalf("expected generated uuid, got %q", seen)
				}
				return
			}
			if seen != tc.want {
				t.Fatalf("request id = %q, want %q", seen, tc.want)
			}
		})
	}
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := RequestIDFromContext(req.Context()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
