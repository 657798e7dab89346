package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	slackmodel "github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/utils/async"
	"github.com/aseriousbiz/abbot/pkg/utils/errutil"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
	"github.com/aseriousbiz/abbot/pkg/utils/metrics"
	"github.com/aseriousbiz/abbot/pkg/utils/safe"
)

// DefaultRetryWindow is how long an event id is remembered to drop retried
// deliveries
const DefaultRetryWindow = 10 * time.Minute

// maxSlackBodySize caps signed request bodies read into memory
const maxSlackBodySize = 1 << 20

// EventUseCase is the entry point for decoded Slack envelopes
type EventUseCase interface {
	HandleEnvelope(ctx context.Context, env slackmodel.Envelope) error
}

// verifySlackSignature checks the v0 signature of a request body. Requests
// older than five minutes are rejected.
func verifySlackSignature(signingSecret string, header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return goerr.Wrap(err, "invalid signature headers",
			goerr.V("timestamp", header.Get("X-Slack-Request-Timestamp")))
	}
	if _, err := sv.Write(body); err != nil {
		return goerr.Wrap(err, "failed to compute HMAC")
	}
	if err := sv.Ensure(); err != nil {
		return goerr.Wrap(err, "signature mismatch")
	}
	return nil
}

// SlackSignatureMiddleware creates a middleware that verifies Slack request signatures
func SlackSignatureMiddleware(signingSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := safe.ReadAll(r.Body, maxSlackBodySize)
			safe.Close(ctx, r.Body)
			if errors.Is(err, safe.ErrTooLarge) {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "slack request body too large"), http.StatusRequestEntityTooLarge)
				return
			}
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}

			if err := verifySlackSignature(signingSecret, r.Header, body); err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "slack signature verification failed"), http.StatusUnauthorized)
				return
			}

			// restore the body for the handler
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// retryFilter remembers recently seen event ids. Expired ids are swept at
// most once per window.
type retryFilter struct {
	mu        sync.Mutex
	window    time.Duration
	now       func() time.Time
	seen      map[string]time.Time
	lastSweep time.Time
}

func newRetryFilter(window time.Duration, now func() time.Time) *retryFilter {
	return &retryFilter{
		window:    window,
		now:       now,
		seen:      make(map[string]time.Time),
		lastSweep: now(),
	}
}

// firstDelivery records eventID and reports whether it was not seen within
// the window
func (f *retryFilter) firstDelivery(eventID string) bool {
	if eventID == "" {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if now.Sub(f.lastSweep) > f.window {
		for id, at := range f.seen {
			if now.Sub(at) > f.window {
				delete(f.seen, id)
			}
		}
		f.lastSweep = now
	}

	if at, ok := f.seen[eventID]; ok && now.Sub(at) <= f.window {
		return false
	}
	f.seen[eventID] = now
	return true
}

// SlackEventHandler handles Slack Events API webhook requests
type SlackEventHandler struct {
	eventUC  EventUseCase
	metrics  *metrics.Metrics
	retries  *retryFilter
	dispatch func(ctx context.Context, handler func(ctx context.Context) error)
}

// NewSlackEventHandler creates a new Slack event handler
func NewSlackEventHandler(eventUC EventUseCase, m *metrics.Metrics, retryWindow time.Duration, now func() time.Time) *SlackEventHandler {
	if now == nil {
		now = time.Now
	}
	return &SlackEventHandler{
		eventUC:  eventUC,
		metrics:  m,
		retries:  newRetryFilter(retryWindow, now),
		dispatch: async.Dispatch,
	}
}

// ServeHTTP handles Slack webhook requests
func (h *SlackEventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	// Read body (already verified by middleware)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}

	outer, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slack event"), http.StatusBadRequest)
		return
	}

	switch outer.Type {
	case slackevents.URLVerification:
		var challenge *slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to unmarshal challenge"), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		safe.Write(ctx, w, []byte(challenge.Challenge))

	case slackevents.CallbackEvent:
		env, err := decodeEventCallback(body)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		// Return 200 immediately to satisfy Slack's 3-second timeout requirement
		w.WriteHeader(http.StatusOK)

		if env.Event == nil {
			logger.Debug("ignoring unsupported slack event", "type", outer.InnerEvent.Type, "event_id", env.EventID)
			return
		}
		if !h.retries.firstDelivery(env.EventID) {
			h.metrics.DuplicateDelivery()
			logger.Info("dropping retried slack event",
				"event_id", env.EventID,
				"retry_num", r.Header.Get("X-Slack-Retry-Num"),
				"retry_reason", r.Header.Get("X-Slack-Retry-Reason"),
			)
			return
		}

		h.dispatch(ctx, func(ctx context.Context) error {
			logging.From(ctx).Info("processing slack callback event",
				"type", outer.InnerEvent.Type,
				"team_id", env.TeamID,
				"event_id", env.EventID,
			)
			if err := h.eventUC.HandleEnvelope(ctx, env); err != nil {
				return goerr.Wrap(err, "failed to handle slack event", goerr.V("event_id", env.EventID))
			}
			return nil
		})

	default:
		logger.Warn("unknown slack event type", "type", outer.Type)
		w.WriteHeader(http.StatusOK)
	}
}
