package types

import "github.com/m-mizutani/goerr/v2"

// RoomType classifies a Slack conversation
type RoomType string

const (
	RoomTypePublicChannel           RoomType = "PUBLIC_CHANNEL"
	RoomTypePrivateChannel          RoomType = "PRIVATE_CHANNEL"
	RoomTypeDirectMessage           RoomType = "DIRECT_MESSAGE"
	RoomTypeMultiPartyDirectMessage RoomType = "MULTI_PARTY_DIRECT_MESSAGE"
)

// AllRoomTypes returns all valid room types
func AllRoomTypes() []RoomType {
	return []RoomType{
		RoomTypePublicChannel,
		RoomTypePrivateChannel,
		RoomTypeDirectMessage,
		RoomTypeMultiPartyDirectMessage,
	}
}

// IsValid checks if the room type is valid
func (r RoomType) IsValid() bool {
	switch r {
	case RoomTypePublicChannel,
		RoomTypePrivateChannel,
		RoomTypeDirectMessage,
		RoomTypeMultiPartyDirectMessage:
		return true
	default:
		return false
	}
}

// IsDirectMessage reports whether the room is a one-to-one or group DM
func (r RoomType) IsDirectMessage() bool {
	return r == RoomTypeDirectMessage || r == RoomTypeMultiPartyDirectMessage
}

// String returns the string representation of the room type
func (r RoomType) String() string {
	return string(r)
}

// ParseRoomType parses a string into a RoomType
func ParseRoomType(s string) (RoomType, error) {
	rt := RoomType(s)
	if !rt.IsValid() {
		return "", goerr.New("invalid room type", goerr.V("room_type", s))
	}
	return rt, nil
}
