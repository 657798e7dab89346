package http

import (
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	slackmodel "github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/usecase"
	"github.com/aseriousbiz/abbot/pkg/utils/errutil"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
	"github.com/aseriousbiz/abbot/pkg/utils/safe"
)

// slackOAuthCallbackHandler completes an installation from the OAuth
// redirect. It runs synchronously so the installer sees the outcome.
func slackOAuthCallbackHandler(eventUC EventUseCase, redirectURI string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		if reason := query.Get("error"); reason != "" {
			logging.From(ctx).Info("slack installation declined", "error", reason)
			http.Error(w, "Installation was cancelled", http.StatusBadRequest)
			return
		}

		code := query.Get("code")
		if code == "" {
			errutil.HandleHTTP(ctx, w, goerr.New("missing code parameter"), http.StatusBadRequest)
			return
		}

		env := &slackmodel.InstallEnvelope{Code: code, RedirectURI: redirectURI}
		if err := eventUC.HandleEnvelope(ctx, env); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, usecase.ErrInstallFailed) {
				status = http.StatusBadGateway
			}
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to complete slack installation"), status)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		safe.Write(ctx, w, []byte("Abbot is installed. You can close this window."))
	}
}
