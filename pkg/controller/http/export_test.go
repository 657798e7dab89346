package http

import (
	"context"
	"time"
)

var (
	VerifySlackSignature = verifySlackSignature
	DecodeEventCallback  = decodeEventCallback
	DecodeInteraction    = decodeInteraction
)

// WithSyncDispatch runs envelope handling inline so tests can observe it
func WithSyncDispatch() Options {
	return func(s *Server) {
		s.dispatch = func(ctx context.Context, handler func(ctx context.Context) error) {
			_ = handler(ctx)
		}
	}
}

// RetryFilter exposes the retry de-duplication for direct tests
type RetryFilter struct{ f *retryFilter }

func NewRetryFilter(window time.Duration, now func() time.Time) *RetryFilter {
	return &RetryFilter{f: newRetryFilter(window, now)}
}

func (x *RetryFilter) FirstDelivery(eventID string) bool { return x.f.firstDelivery(eventID) }

func (x *RetryFilter) Remembered() int {
	x.f.mu.Lock()
	defer x.f.mu.Unlock()
	return len(x.f.seen)
}
