package interfaces

import (
	"context"

	"github.com/aseriousbiz/abbot/pkg/domain/model"
)

// EventHandler receives translated events. Business rules live behind it.
type EventHandler interface {
	OnMessage(ctx context.Context, msg *model.Message) error
	OnEvent(ctx context.Context, ev *model.PlatformEvent) error
}
