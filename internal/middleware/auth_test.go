package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

const testBotToken = "123456:TEST-TOKEN"

func signedInitData(t *testing.T, fields map[string]string) string {
	t.Helper()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	values := url.Values{}
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
		values.Set(k, fields[k])
	}
	values.Set("hash", signInitData(strings.Join(lines, "\n"), testBotToken))
	return values.Encode()
}

func TestVerifyInitData(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	data := signedInitData(t, map[string]string{
		"auth_date": strconv.FormatInt(now.Add(-time.Minute).Unix(), 10),
		"query_id":  "AAE",
		"user":      `{"id":987654,"first_name":"Sara","username":"sara"}`,
	})

	user, err := VerifyInitData(data, testBotToken, time.Hour, now)
	if err != nil {
		t.Fatalf("VerifyInitData error: %v", err)
	}
	if user.ID != 987654 || user.Username != "sara" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := VerifyInitData(data, "other-token", time.Hour, now); !errors.Is(err, ErrInitDataInvalid) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	if _, err := VerifyInitData(data, testBotToken, 30*time.Second, now); !errors.Is(err, ErrInitDataExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}

	tampered := strings.Replace(data, "987654", "111111", 1)
	if _, err := VerifyInitData(tampered, testBotToken, time.Hour, now); !errors.Is(err, ErrInitDataInvalid) {
		t.Fatalf("expected tampered data to fail, got %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	now := time.Now()
	initData := signedInitData(t, map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
		"user":      `{"id":42}`,
	})
	var seen int64
	handler := Auth(AuthConfig{BotToken: testBotToken, ServiceToken: "svc", MaxAge: time.Hour})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = AccountIDFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	tests := []struct {
		name      string
		auth      string
		accountID string
		status    int
		account   int64
	}{
		{"telegram init data", "tma " + initData, "", http.StatusNoContent, 42},
		{"service token", "Bearer svc", "77", http.StatusNoContent, 77},
		{"service token without account", "Bearer svc", "", http.StatusUnauthorized, 0},
		{"wrong service token", "Bearer nope", "77", http.StatusUnauthorized, 0},
		{"missing header", "", "", http.StatusUnauthorized, 0},
		{"unknown scheme", "Basic abc", "", http.StatusUnauthorized, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/v1/wallet", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			if tc.accountID != "" {
				req.Header.Set("X-Account-ID", tc.accountID)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if seen != tc.account {
				t.Fatalf("account = %d, want %d", seen, tc.account)
			}
		})
	}
}
