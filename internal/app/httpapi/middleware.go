package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vitaltrack/healthd/internal/app/identity"
	"github.com/vitaltrack/healthd/internal/apperrors"
)

type contextKey string

const (
	callerKey    contextKey = "caller"
	ownerSlotKey contextKey = "ownerSlot"
)

// ownerSlot lets the audit wrapper, which sits outside identity resolution,
// learn which owner a request resolved to.
type ownerSlot struct {
	mu    sync.Mutex
	owner string
}

func (s *ownerSlot) set(owner string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
}

func (s *ownerSlot) get() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// requireCaller resolves the calling identity and stores it in the request
// context. Resolution failures stop the request with 401.
func requireCaller(resolver identity.Resolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := resolver.Resolve(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if slot, ok := r.Context().Value(ownerSlotKey).(*ownerSlot); ok {
			slot.set(caller.OwnerKey)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}

func callerFrom(ctx context.Context) (identity.Caller, error) {
	caller, ok := ctx.Value(callerKey).(identity.Caller)
	if !ok {
		return identity.Caller{}, apperrors.Authorization("no caller in request context")
	}
	return caller, nil
}

func wrapWithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || originAllowed(origin, allowedOrigins)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == origin || strings.HasSuffix(origin, a) {
			return true
		}
	}
	return false
}

// rateLimiter keeps one token bucket per client key.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newRateLimiter(requestsPerSecond, burst int) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

func wrapWithRateLimit(next http.Handler, rl *rateLimiter) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host := strings.Split(r.RemoteAddr, ":"); len(host) > 0 {
			key = host[0]
		}
		if !rl.limiter(key).Allow() {
			writeError(w, http.StatusTooManyRequests, apperrors.Validation("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type auditRecorder struct {
	http.ResponseWriter
	status int
}

func (r *auditRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *auditRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func wrapWithAudit(next http.Handler, log *auditLog) http.Handler {
	if log == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &auditRecorder{ResponseWriter: w, status: http.StatusOK}
		slot := &ownerSlot{}
		r = r.WithContext(context.WithValue(r.Context(), ownerSlotKey, slot))
		next.ServeHTTP(rec, r)

		log.add(auditEntry{
			Time:       time.Now().UTC(),
			Owner:      slot.get(),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}
