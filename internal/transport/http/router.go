package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"wkd-tester/internal/platform/metrics"
	"wkd-tester/pkg/platform/httputil"
	"wkd-tester/pkg/platform/middleware/metadata"
	"wkd-tester/pkg/platform/middleware/requestid"
	"wkd-tester/pkg/platform/middleware/requestlog"
	"wkd-tester/pkg/platform/middleware/requesttime"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// Deps are the pieces the router needs. Gatherer and HTTPMetrics are
// optional; without them /metrics is not served.
type Deps struct {
	Logger      *slog.Logger
	HTTPMetrics *metrics.HTTP
	Gatherer    prometheus.Gatherer
	Handlers    []Registrar
}

// NewRouter wires the middleware stack, operational endpoints and every
// registered handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(requestlog.Middleware(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	return otelhttp.NewHandler(r, "wkd-tester",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
