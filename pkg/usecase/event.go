package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
)

// EventUseCase routes inbound envelopes through the Translator and hands
// the results to event handlers. The organization bookkeeping handler always
// runs first.
type EventUseCase struct {
	translator *Translator
	handlers   []interfaces.EventHandler
}

// NewEventUseCase creates an EventUseCase. handlers run after the built-in
// bookkeeping, in order.
func NewEventUseCase(repo interfaces.Repository, translator *Translator, handlers ...interfaces.EventHandler) *EventUseCase {
	return &EventUseCase{
		translator: translator,
		handlers:   append([]interfaces.EventHandler{NewBookkeeper(repo)}, handlers...),
	}
}

// HandleEnvelope translates env and dispatches it. Dropped envelopes are not
// an error.
func (uc *EventUseCase) HandleEnvelope(ctx context.Context, env slack.Envelope) error {
	logger := logging.From(ctx)

	if isMessageEnvelope(env) {
		msg, err := uc.translator.TranslateMessage(ctx, env)
		if err != nil {
			return goerr.Wrap(err, "failed to translate message")
		}
		if msg == nil {
			logger.Debug("message dropped")
			return nil
		}

		ctx = logging.With(ctx, logger.With("event_id", msg.EventID, "organization_id", msg.Organization.ID))
		for _, h := range uc.handlers {
			if err := h.OnMessage(ctx, msg); err != nil {
				return goerr.Wrap(err, "failed to handle message", goerr.V(EventIDKey, msg.EventID))
			}
		}
		return nil
	}

	var (
		ev  *model.PlatformEvent
		err error
	)
	switch x := env.(type) {
	case *slack.InstallEnvelope:
		ev, err = uc.translator.TranslateInstallEvent(ctx, env)
	case *slack.EventEnvelope:
		if _, ok := x.Event.(*slack.AppUninstalledEvent); ok {
			ev, err = uc.translator.TranslateUninstallEvent(ctx, env)
		} else {
			ev, err = uc.translator.TranslateEvent(ctx, env)
		}
	default:
		ev, err = uc.translator.TranslateEvent(ctx, env)
	}
	if err != nil {
		return goerr.Wrap(err, "failed to translate event")
	}
	if ev == nil {
		logger.Debug("event dropped")
		return nil
	}

	ctx = logging.With(ctx, logger.With("event_kind", ev.Kind, "organization_id", ev.Organization.ID))
	for _, h := range uc.handlers {
		if err := h.OnEvent(ctx, ev); err != nil {
			return goerr.Wrap(err, "failed to handle event",
				goerr.V(EventIDKey, ev.EventID),
				goerr.V("kind", ev.Kind))
		}
	}
	return nil
}

// isMessageEnvelope reports whether env carries a conversational message
// rather than a platform event
func isMessageEnvelope(env slack.Envelope) bool {
	callback, ok := env.(*slack.EventEnvelope)
	if !ok {
		return false
	}
	switch ev := callback.Event.(type) {
	case *slack.AppMentionEvent:
		return true
	case *slack.MessageEvent:
		if ev.IsEditOrDelete() {
			return false
		}
		_, _, removed := parseRemovedFromRoom(ev.Text)
		return !removed
	default:
		return false
	}
}

// Bookkeeper keeps organizations in step with installation and workspace
// events
type Bookkeeper struct {
	repo interfaces.Repository
}

var _ interfaces.EventHandler = &Bookkeeper{}

// NewBookkeeper creates a Bookkeeper
func NewBookkeeper(repo interfaces.Repository) *Bookkeeper {
	return &Bookkeeper{repo: repo}
}

// OnMessage does nothing; room activity is recorded during translation
func (x *Bookkeeper) OnMessage(ctx context.Context, msg *model.Message) error {
	return nil
}

// OnEvent applies install, uninstall and team change events to the
// organization
func (x *Bookkeeper) OnEvent(ctx context.Context, ev *model.PlatformEvent) error {
	switch p := ev.Payload.(type) {
	case model.AppInstall:
		return x.install(ctx, ev.Organization, p.Install)
	case model.AppUninstall:
		return x.uninstall(ctx, ev.Organization)
	case model.TeamChange:
		return x.teamChange(ctx, ev.Organization, p)
	}
	return nil
}

func (x *Bookkeeper) install(ctx context.Context, org *model.Organization, install *model.InstallEvent) error {
	if install == nil {
		return goerr.Wrap(ErrUnexpectedPayload, "install event without installation", goerr.V(OrganizationIDKey, org.ID))
	}

	updated := org.Clone()
	updated.Bot = install.Bot.Clone()
	updated.EnterpriseGridID = install.EnterpriseID
	if install.Name != "" {
		updated.Name = install.Name
	}
	if install.Domain != "" {
		updated.Domain = install.Domain
	}
	if install.Avatar != "" {
		updated.Avatar = install.Avatar
	}
	if updated.PlanType == types.PlanTypeNone {
		// a foreign organization becomes a customer once it installs
		updated.PlanType = types.PlanTypeFree
	}
	updated.UpdatedAt = nowUTC()

	saved, err := x.repo.Organization().Update(ctx, updated)
	if err != nil {
		return goerr.Wrap(err, "failed to store installation", goerr.V(OrganizationIDKey, org.ID))
	}
	if _, err := x.repo.User().EnsureAbbotMember(ctx, saved); err != nil {
		return goerr.Wrap(err, "failed to ensure abbot member", goerr.V(OrganizationIDKey, org.ID))
	}

	logging.From(ctx).Info("slack app installed",
		"organization_id", saved.ID,
		"team_id", saved.PlatformID,
		"app_id", saved.Bot.AppID,
		"scopes", saved.Bot.Scopes,
	)
	return nil
}

func (x *Bookkeeper) uninstall(ctx context.Context, org *model.Organization) error {
	if org.Bot == nil || org.Bot.APIToken.IsEmpty() {
		return nil
	}

	updated := org.Clone()
	updated.Bot.APIToken = model.Secret{}
	updated.UpdatedAt = nowUTC()
	if _, err := x.repo.Organization().Update(ctx, updated); err != nil {
		return goerr.Wrap(err, "failed to clear api token", goerr.V(OrganizationIDKey, org.ID))
	}

	logging.From(ctx).Info("slack app uninstalled", "organization_id", org.ID, "team_id", org.PlatformID)
	return nil
}

func (x *Bookkeeper) teamChange(ctx context.Context, org *model.Organization, change model.TeamChange) error {
	updated := org.Clone()
	if change.Name != "" {
		updated.Name = change.Name
	}
	if change.Domain != "" {
		updated.Domain = change.Domain
	}
	if updated.Name == org.Name && updated.Domain == org.Domain {
		return nil
	}
	updated.UpdatedAt = nowUTC()

	if _, err := x.repo.Organization().Update(ctx, updated); err != nil {
		return goerr.Wrap(err, "failed to update organization", goerr.V(OrganizationIDKey, org.ID))
	}
	return nil
}
