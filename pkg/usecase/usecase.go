package usecase

import (
	"time"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/utils/metrics"
)

type UseCases struct {
	repo       interfaces.Repository
	slack      interfaces.SlackClient
	metrics    *metrics.Metrics
	staleness  time.Duration
	handlers   []interfaces.EventHandler
	Resolver   *Resolver
	Translator *Translator
	Event      *EventUseCase
}

type Option func(*UseCases)

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCases) {
		uc.metrics = m
	}
}

func WithStaleness(d time.Duration) Option {
	return func(uc *UseCases) {
		uc.staleness = d
	}
}

// WithEventHandler adds a handler that receives every translated message and
// event after the organization bookkeeping
func WithEventHandler(h interfaces.EventHandler) Option {
	return func(uc *UseCases) {
		uc.handlers = append(uc.handlers, h)
	}
}

func New(repo interfaces.Repository, slackClient interfaces.SlackClient, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:  repo,
		slack: slackClient,
	}

	for _, opt := range opts {
		opt(uc)
	}

	resolverOpts := []ResolverOption{WithResolverMetrics(uc.metrics)}
	if uc.staleness > 0 {
		resolverOpts = append(resolverOpts, WithRoomStaleness(uc.staleness))
	}
	uc.Resolver = NewResolver(repo, slackClient, resolverOpts...)
	uc.Translator = NewTranslator(repo, uc.Resolver, slackClient, WithTranslatorMetrics(uc.metrics))
	uc.Event = NewEventUseCase(repo, uc.Translator, uc.handlers...)

	return uc
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
