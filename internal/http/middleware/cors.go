package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Defaults used when CORSConfig leaves a field empty.
var (
	DefaultCORSHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	DefaultCORSExpose  = []string{"X-Request-ID"}
)

const corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// CORSConfig describes which browser origins may call the admin API.
//
// Origins are matched exactly, "*" allows any origin, and a leading "*." on
// the host ("https://*.clinica.com.br") allows any subdomain of that host on
// the same scheme.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

type originMatcher struct {
	any       bool
	exact     map[string]struct{}
	wildcards []wildcardOrigin
}

// wildcardOrigin matches "https://" + anything + ".clinica.com.br".
type wildcardOrigin struct {
	prefix string
	suffix string
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: map[string]struct{}{}}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			m.any = true
		case strings.Contains(origin, "://*."):
			scheme, host, _ := strings.Cut(origin, "://*")
			m.wildcards = append(m.wildcards, wildcardOrigin{prefix: scheme + "://", suffix: host})
		default:
			m.exact[origin] = struct{}{}
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	if m.any {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, w := range m.wildcards {
		if len(origin) <= len(w.prefix)+len(w.suffix) || !strings.HasPrefix(origin, w.prefix) || !strings.HasSuffix(origin, w.suffix) {
			continue
		}
		if sub := origin[len(w.prefix) : len(origin)-len(w.suffix)]; !strings.ContainsAny(sub, "/:@") {
			return true
		}
	}
	return false
}

// CORS answers preflights and sets the allow headers for permitted origins.
// Requests from other origins pass through without CORS headers, so the
// browser blocks them.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	origins := newOriginMatcher(cfg.AllowedOrigins)
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = DefaultCORSHeaders
	}
	exposed := cfg.ExposedHeaders
	if len(exposed) == 0 {
		exposed = DefaultCORSExpose
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	allowHeaders := strings.Join(headers, ", ")
	exposeHeaders := strings.Join(exposed, ", ")
	maxAgeSeconds := strconv.Itoa(int(maxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")
			if !origins.allows(origin) {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
			if preflight {
				w.Header().Set("Access-Control-Allow-Methods", corsMethods)
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Set("Access-Control-Max-Age", maxAgeSeconds)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
