package runtime

import (
	"net/http"
	"strings"

	"github.com/drblury/pulseflow/internal/runtime/jsoncodec"
)

// InfoHandler returns an http.Handler serving the per-exchange publish
// statistics as JSON. Mount it next to the Prometheus drain handler so
// dashboards can read the latency, throughput, and error breakdowns that
// counters alone cannot express.
func (p *Publisher) InfoHandler() http.Handler {
	return http.HandlerFunc(p.handleGetInfos)
}

func (p *Publisher) handleGetInfos(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Set CORS headers based on configuration
	if origins := p.conf.GetStatsCORSAllowedOrigins(); len(origins) > 0 {
		allowedOrigin := allowedCORSOrigin(origins, r.Header.Get("Origin"))
		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
	}

	// Handle preflight requests
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := jsoncodec.Encode(w, p.Infos()); err != nil {
		p.log.Error("Failed to encode publish stats", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// allowedCORSOrigin checks if the request origin is allowed and returns the
// appropriate Access-Control-Allow-Origin value.
func allowedCORSOrigin(allowedOrigins []string, requestOrigin string) string {
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
