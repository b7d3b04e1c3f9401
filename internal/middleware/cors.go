package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var corsBaseHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader}

// CORSConfig builds a permissive cross-origin policy for origins. A "*" entry
// admits every origin; the request origin is echoed back instead of a literal
// wildcard because credentials are allowed.
func CORSConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowHeaders:     append([]string(nil), corsBaseHeaders...),
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	wildcard, explicit := splitOrigins(origins)
	if wildcard {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = explicit
	}
	return cfg
}

func splitOrigins(origins []string) (wildcard bool, explicit []string) {
	explicit = make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			wildcard = true
			continue
		}
		explicit = append(explicit, o)
	}
	return wildcard, explicit
}

// CORS applies CORSConfig with two adjustments. Preflights are granted every
// header they ask for in Access-Control-Request-Headers. Plain requests from
// an origin outside the list are served without CORS headers, leaving the
// browser to block the response; only their preflights are refused.
func CORS(origins []string) gin.HandlerFunc {
	base := CORSConfig(origins)
	apply := cors.New(base)

	wildcard, explicit := splitOrigins(origins)
	allowed := make(map[string]struct{}, len(explicit))
	for _, o := range explicit {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions

		if origin != "" && !wildcard && !preflight {
			if _, ok := allowed[strings.ToLower(origin)]; !ok {
				c.Next()
				return
			}
		}

		requested := requestedHeaders(c.GetHeader("Access-Control-Request-Headers"))
		if preflight && len(requested) > 0 {
			cfg := base
			cfg.AllowHeaders = append(append([]string(nil), corsBaseHeaders...), requested...)
			cors.New(cfg)(c)
			return
		}
		apply(c)
	}
}

func requestedHeaders(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
