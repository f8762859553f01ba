package server

import (
	"time"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/newslens/newslens/internal/conf"
	"github.com/newslens/newslens/internal/service"
)

// NewHTTPServer builds the Kratos HTTP transport and mounts the analysis
// routes on it.
func NewHTTPServer(c conf.ServerConfig, s *service.NewsService) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)
	srv.HandleFunc("/analyze", s.HandleAnalyze)
	srv.HandleFunc("/analyze/stream", s.HandleStream)
	srv.HandleFunc("/charts", s.HandleCharts)
	srv.HandleFunc("/health", s.HandleHealth)
	return srv
}
