package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInitDataInvalid = errors.New("invalid telegram init data")
	ErrInitDataExpired = errors.New("telegram init data expired")
)

type accountKey struct{}

// AuthConfig configures account authentication. Either credential may be
// empty, which disables that scheme.
type AuthConfig struct {
	BotToken     string
	ServiceToken string
	MaxAge       time.Duration
	Now          func() time.Time
}

// TelegramUser is the subset of the WebApp user object the API needs.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Auth resolves the calling account from either
//
//	Authorization: tma <initData>
//
// signed by the bot, or a service token plus X-Account-ID for trusted
// backends such as the chat bot process.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, credential, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
			if !ok || strings.TrimSpace(credential) == "" {
				writeUnauthorized(w, "missing authorization")
				return
			}
			credential = strings.TrimSpace(credential)

			var accountID int64
			switch {
			case strings.EqualFold(scheme, "tma") && cfg.BotToken != "":
				user, err := VerifyInitData(credential, cfg.BotToken, cfg.MaxAge, now())
				if err != nil {
					writeUnauthorized(w, err.Error())
					return
				}
				accountID = user.ID
			case strings.EqualFold(scheme, "Bearer") && cfg.ServiceToken != "":
				if subtle.ConstantTimeCompare([]byte(credential), []byte(cfg.ServiceToken)) != 1 {
					writeUnauthorized(w, "invalid token")
					return
				}
				id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get("X-Account-ID")), 10, 64)
				if err != nil || id <= 0 {
					writeUnauthorized(w, "X-Account-ID required")
					return
				}
				accountID = id
			default:
				writeUnauthorized(w, "unsupported authorization scheme")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAccountID(r.Context(), accountID)))
		})
	}
}

// VerifyInitData checks the WebApp init data signature: the secret is
// HMAC-SHA256("WebAppData", botToken) and the signed message is every field
// except hash, sorted by key, as "key=value" lines.
func VerifyInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInitDataInvalid
	}
	received := values.Get("hash")
	if received == "" {
		return nil, ErrInitDataInvalid
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	expected := signInitData(strings.Join(lines, "\n"), botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(received))) {
		return nil, ErrInitDataInvalid
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, ErrInitDataInvalid
		}
		if now.Sub(time.Unix(authDate, 0)) > maxAge {
			return nil, ErrInitDataExpired
		}
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID <= 0 {
		return nil, ErrInitDataInvalid
	}
	return &user, nil
}

func signInitData(dataCheckString, botToken string) string {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "detail": detail})
}

func AccountIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(accountKey{}).(int64)
	return v, ok && v > 0
}

func ContextWithAccountID(ctx context.Context, accountID int64) context.Context {
	if accountID <= 0 {
		return ctx
	}
	return context.WithValue(ctx, accountKey{}, accountID)
}
