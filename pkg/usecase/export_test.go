package usecase

// ParseRemovedFromRoom is exported for testing
func ParseRemovedFromRoom(text string) (roomID, roomName, userID, userName string, ok bool) {
	room, user, ok := parseRemovedFromRoom(text)
	return room.id, room.name, user.id, user.name, ok
}
