package model

import (
	"time"

	"github.com/aseriousbiz/abbot/pkg/domain/types"
)

// DefaultRoomStaleness is how long platform data of a Room is trusted before
// the resolver asks Slack again
const DefaultRoomStaleness = time.Hour

// RoomID is the internal identifier of a Room
type RoomID string

// Room is a Slack conversation owned by exactly one Organization
type Room struct {
	ID                  RoomID
	OrganizationID      OrganizationID
	PlatformRoomID      string // Slack channel id, unique per organization
	Name                string
	RoomType            types.RoomType
	BotIsMember         *bool // nil when unknown
	Archived            bool
	Deleted             bool
	Shared              bool
	Topic               string
	Purpose             string
	LastPlatformUpdate  time.Time
	LastMessageActivity time.Time
	CreatedAt           time.Time
}

// NeedsPlatformUpdate reports whether the platform data is missing or older
// than window at now
func (r *Room) NeedsPlatformUpdate(now time.Time, window time.Duration) bool {
	if r.LastPlatformUpdate.IsZero() {
		return true
	}
	return now.Sub(r.LastPlatformUpdate) > window
}

// IsBotMember reports whether the bot is known to be in the room
func (r *Room) IsBotMember() bool {
	return r.BotIsMember != nil && *r.BotIsMember
}

// Clone returns a deep copy
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	if r.BotIsMember != nil {
		v := *r.BotIsMember
		c.BotIsMember = &v
	}
	return &c
}
