package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/saadiahenna/hennabook/internal/config"
	"github.com/saadiahenna/hennabook/internal/http/csrf"
	"github.com/saadiahenna/hennabook/internal/http/ratelimit"
	"github.com/saadiahenna/hennabook/internal/logging"
	"github.com/saadiahenna/hennabook/internal/metrics"
	"github.com/saadiahenna/hennabook/internal/store"
	"github.com/saadiahenna/hennabook/internal/ui"
)

// Router is the HTTP entry point. Close releases the rate limiters'
// background goroutines.
type Router struct {
	http.Handler
	limiters []*ratelimit.IPRateLimiter
}

func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Close()
	}
}

// NewRouter wires the booking form, the booking API and the operational
// endpoints. Client addresses for rate limiting come from the limiters, which
// only honour forwarded headers from cfg.TrustedProxies.
func NewRouter(cfg *config.Config, st *store.Store, uiHandler *ui.Handler, logger logrus.FieldLogger) *Router {
	r := chi.NewRouter()

	// Intake: 1 request per second, burst of 5
	intakeRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(1), 5, 5*time.Minute, cfg.TrustedProxies)
	// Confirm links: 5 requests per second, burst of 10
	confirmRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(5), 10, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	r.Route("/api/bookings", func(r chi.Router) {
		r.With(intakeRateLimiter.Middleware()).Post("/", uiHandler.CreateBooking)
		r.With(confirmRateLimiter.Middleware()).Get("/confirm", uiHandler.ConfirmBooking)
	})

	r.Get("/", uiHandler.Home)
	r.Group(func(r chi.Router) {
		r.Use(csrf.Middleware(cfg))
		r.Get("/book", uiHandler.BookingForm)
		r.With(intakeRateLimiter.Middleware()).Post("/book", uiHandler.SubmitBookingForm)
		r.Get("/book/confirmed", uiHandler.Confirmed)
	})

	return &Router{
		Handler:  r,
		limiters: []*ratelimit.IPRateLimiter{intakeRateLimiter, confirmRateLimiter},
	}
}
