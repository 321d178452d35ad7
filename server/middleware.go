package server

import (
	"net/http"
	"os"
	"slices"
	"strings"
)

// emoteCORS lets browser overlays read the emote routes. Health, readiness and metrics
// never get CORS headers.
type emoteCORS struct {
	// origins lists the allowed Origin values; empty allows any origin.
	origins []string
}

// loadEmoteCORS reads the comma-separated CORS_ALLOWED_ORIGINS.
func loadEmoteCORS() emoteCORS {
	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return emoteCORS{origins: origins}
}

func isEmoteRoute(path string) bool {
	return path == "/emotes" || strings.HasPrefix(path, "/emotes/") || path == "/guild/emotes"
}

func (c emoteCORS) allowOrigin(origin string) string {
	if len(c.origins) == 0 {
		return "*"
	}
	if slices.Contains(c.origins, origin) {
		return origin
	}
	return ""
}

// wrap adds CORS headers to emote responses and answers their preflight requests.
func (c emoteCORS) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !isEmoteRoute(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		allowed := c.allowOrigin(origin)
		if allowed != "" {
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Set("Access-Control-Expose-Headers", "X-Correlation-ID")
		}
		if allowed != "*" {
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed != "" {
				h.Set("Access-Control-Allow-Methods", "GET, HEAD")
				h.Set("Access-Control-Allow-Headers", "X-Correlation-ID")
				h.Set("Access-Control-Max-Age", "86400")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
