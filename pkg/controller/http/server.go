package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aseriousbiz/abbot/pkg/utils/async"
	"github.com/aseriousbiz/abbot/pkg/utils/metrics"
	"github.com/aseriousbiz/abbot/pkg/utils/safe"
)

type Server struct {
	router             *chi.Mux
	eventUC            EventUseCase
	slackSigningSecret string
	oauthRedirectURI   string
	metrics            *metrics.Metrics
	retryWindow        time.Duration
	now                func() time.Time
	dispatch           func(ctx context.Context, handler func(ctx context.Context) error)
}

type Options func(*Server)

// WithSlack enables the /hooks/slack and /oauth/slack routes
func WithSlack(eventUC EventUseCase, signingSecret string) Options {
	return func(s *Server) {
		s.eventUC = eventUC
		s.slackSigningSecret = signingSecret
	}
}

// WithOAuthRedirectURI sets the redirect_uri sent back to oauth.v2.access
func WithOAuthRedirectURI(uri string) Options {
	return func(s *Server) {
		s.oauthRedirectURI = uri
	}
}

// WithMetrics records request counters and serves /metrics
func WithMetrics(m *metrics.Metrics) Options {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRetryWindow sets how long event ids are remembered for retry detection
func WithRetryWindow(d time.Duration) Options {
	return func(s *Server) {
		s.retryWindow = d
	}
}

// WithClock overrides the clock of the retry filter
func WithClock(now func() time.Time) Options {
	return func(s *Server) {
		s.now = now
	}
}

func New(opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:      r,
		retryWindow: DefaultRetryWindow,
		now:         time.Now,
		dispatch:    async.Dispatch,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(requestCounter(s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// Slack endpoints use signature verification instead of authentication
	if s.eventUC != nil {
		eventHandler := NewSlackEventHandler(s.eventUC, s.metrics, s.retryWindow, s.now)
		interactionHandler := NewSlackInteractionHandler(s.eventUC)
		eventHandler.dispatch = s.dispatch
		interactionHandler.dispatch = s.dispatch

		r.Route("/hooks/slack", func(r chi.Router) {
			r.Use(SlackSignatureMiddleware(s.slackSigningSecret))

			r.Post("/event", eventHandler.ServeHTTP)
			r.Post("/interaction", interactionHandler.ServeHTTP)
		})

		r.Get("/oauth/slack/callback", slackOAuthCallbackHandler(s.eventUC, s.oauthRedirectURI))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	safe.Write(r.Context(), w, []byte("ok"))
}
