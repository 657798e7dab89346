package http

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/utils/async"
	"github.com/aseriousbiz/abbot/pkg/utils/errutil"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
)

// SlackInteractionHandler handles Slack interactive component payloads
// (block actions, view submissions, shortcuts)
type SlackInteractionHandler struct {
	eventUC  EventUseCase
	dispatch func(ctx context.Context, handler func(ctx context.Context) error)
}

// NewSlackInteractionHandler creates a new Slack interaction handler
func NewSlackInteractionHandler(eventUC EventUseCase) *SlackInteractionHandler {
	return &SlackInteractionHandler{
		eventUC:  eventUC,
		dispatch: async.Dispatch,
	}
}

// ServeHTTP handles Slack interaction webhook requests
func (h *SlackInteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Slack sends interaction payloads as application/x-www-form-urlencoded
	// with a "payload" field containing JSON
	payload := r.FormValue("payload")
	if payload == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("missing payload field in interaction request"), http.StatusBadRequest)
		return
	}

	p, err := decodeInteraction([]byte(payload))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	if p == nil {
		logging.From(ctx).Debug("ignoring unsupported interaction type")
		return
	}

	h.dispatch(ctx, func(ctx context.Context) error {
		if err := h.eventUC.HandleEnvelope(ctx, p); err != nil {
			return goerr.Wrap(err, "failed to handle slack interaction",
				goerr.V("kind", p.Kind),
				goerr.V("team_id", p.TeamID),
				goerr.V("user_id", p.User.ID))
		}
		return nil
	})
}
