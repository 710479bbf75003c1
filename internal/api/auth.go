package api

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"spacebook/internal/config"

	"golang.org/x/time/rate"
)

const (
	apiKeyHeaderDefault  = "x-api-key"
	permReadReservations = "read:reservations"
	permWriteReservation = "write:reservations"
	clientKeyUnknown     = "unknown"
)

// HTTPAuth проверяет API ключи и лимитирует частоту запросов по клиенту.
type HTTPAuth struct {
	cfg config.APIConfig

	clientsByAPIKey map[string]config.APIClientKey
	limiters        sync.Map // client key -> *rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clientsByAPIKey: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			client, ok := a.authenticate(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			if !a.checkPermissions(client, r.Method) {
				writeError(w, http.StatusForbidden, "permission denied")
				return
			}
		}

		if !a.allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) authenticate(r *http.Request) (config.APIClientKey, bool) {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	if apiKey == "" {
		return config.APIClientKey{}, false
	}
	client, ok := a.clientsByAPIKey[apiKey]
	return client, ok
}

// checkPermissions maps HTTP methods onto read/write permissions. An empty
// permissions list means the key is unrestricted.
func (a *HTTPAuth) checkPermissions(client config.APIClientKey, method string) bool {
	required := permWriteReservation
	if method == http.MethodGet || method == http.MethodHead {
		required = permReadReservations
	}

	if len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

func (a *HTTPAuth) allow(key string) bool {
	if a.cfg.RateLimit.RPS <= 0 {
		return true
	}

	lim, ok := a.limiters.Load(key)
	if !ok {
		burst := a.cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 5
		}
		lim, _ = a.limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst))
	}
	return lim.(*rate.Limiter).Allow()
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return clientKeyUnknown
}

func (a *HTTPAuth) apiKeyHeader() string {
	header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = apiKeyHeaderDefault
	}
	return header
}
