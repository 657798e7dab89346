package async

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/utils/errutil"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
)

// Dispatch executes handler in a new goroutine with a context detached from
// the request, keeping the request's logger and Sentry hub. Errors and panics
// are reported through errutil.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		bgCtx = sentry.SetHubOnContext(bgCtx, hub.Clone())
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(bgCtx, goerr.New("panic in async handler", goerr.V("panic", fmt.Sprint(r))), "async handler panicked")
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()
}
