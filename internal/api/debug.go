package api

import (
	"net/http"
	"runtime"
	"time"

	"tourplan/internal/buildinfo"
)

// DebugJSON handles GET /debug/vars: build info and the effective settings,
// without secrets.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"build":      buildinfo.Info(),
		"time":       time.Now().UTC().Format(time.RFC3339),
		"goroutines": runtime.NumGoroutine(),
		"config": map[string]any{
			"PORT":                 c.Port,
			"LOG_LEVEL":            c.LogLevel,
			"RATE_RPS":             c.RateRPS,
			"RATE_BURST":           c.RateBurst,
			"CACHE_TTL":            c.CacheTTL.Std().String(),
			"WEBHOOK_MAX_ATTEMPTS": c.Export.MaxAttempts,
			"HAS_DATABASE_URL":     c.DatabaseURL != "",
			"HAS_REDIS_URL":        c.RedisURL != "",
			"HAS_EXPORT_WEBHOOK":   c.Export.WebhookURL != "",
			"optimizer":            c.Optimizer,
		},
	})
}
