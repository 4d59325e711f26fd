package auth

import (
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// headerAPIKey is the request header carrying the raw API key.
const headerAPIKey = "X-API-Key"

// Middleware validates the X-API-Key header against the key store and
// rate-limits requests per key with a token bucket.
type Middleware struct {
	store     *Store
	logger    *zap.SugaredLogger
	perMinute int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewMiddleware creates auth middleware. perMinute caps the sustained
// request rate for each key; zero disables rate limiting.
func NewMiddleware(store *Store, perMinute int, logger *zap.SugaredLogger) *Middleware {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Middleware{
		store:     store,
		logger:    logger,
		perMinute: perMinute,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Wrap guards a handler with key validation and rate limiting.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := r.Header.Get(headerAPIKey)
		if rawKey == "" {
			unauthorized(w, "missing API key")
			return
		}

		key, err := m.store.Validate(r.Context(), rawKey)
		if err != nil {
			m.logger.Debugw("API key rejected", "path", r.URL.Path)
			unauthorized(w, "invalid API key")
			return
		}

		if m.perMinute > 0 && !m.limiter(key.ID).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limiter returns the token bucket for a key, creating it on first use.
func (m *Middleware) limiter(keyID string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.limiters[keyID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(m.perMinute)/60.0), m.perMinute)
		m.limiters[keyID] = l
	}
	return l
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
