package monitor

import (
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OnlineCounter reports how many users are registered.
type OnlineCounter interface {
	Len() int
}

// NewServer builds the HTTP server exposing /metrics and /health.
func NewServer(addr string, online OnlineCounter) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler(online))

	return &stdhttp.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(online OnlineCounter) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		_, _ = fmt.Fprintf(w, "ok %d\n", online.Len())
	}
}
