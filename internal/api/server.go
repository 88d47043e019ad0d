package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lox/greengrid/internal/chart"
	"github.com/lox/greengrid/internal/metrics"
	"github.com/lox/greengrid/internal/models"
	"github.com/lox/greengrid/internal/notify"
)

// HistoryProvider is the read-only source of historical records.
type HistoryProvider interface {
	// Recent returns up to n of the newest records, oldest first.
	Recent(ctx context.Context, n int) ([]models.HistoricalRecord, error)
	// Latest returns the newest record, or nil when there is none.
	Latest(ctx context.Context) (*models.HistoricalRecord, error)
}

type Server struct {
	history    HistoryProvider
	notifier   *notify.Notifier
	chartCache *chart.Cache
	port       string
	loc        *time.Location
	log        zerolog.Logger
	now        func() time.Time
}

func NewServer(history HistoryProvider, port string, loc *time.Location, log zerolog.Logger) *Server {
	if loc == nil {
		loc = time.Local
	}
	return &Server{
		history:    history,
		notifier:   notify.New(),
		chartCache: chart.NewCache(time.Minute),
		port:       port,
		loc:        loc,
		log:        log.With().Str("component", "server").Logger(),
		now:        time.Now,
	}
}

// SetClock replaces the clock used for default hours and notification
// timestamps.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
	s.notifier = notify.NewWithClock(now)
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/data", s.handleData)
	r.Get("/data/summary", s.handleDataSummary)
	r.Get("/predict", s.handlePredictFallback)
	r.Post("/predict", s.handlePredict)
	r.Get("/recommendation", s.handleRecommendationFallback)
	r.Post("/recommendation", s.handleRecommendation)
	r.Post("/forecast", s.handleForecast)
	r.Post("/notify", s.handleNotify)
	r.Get("/chart.png", s.handleChart)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", server.Addr).Msg("starting server")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe logs each request and records it in the request metrics, labelled
// by route pattern rather than raw path.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestLatency.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
