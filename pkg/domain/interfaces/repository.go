package interfaces

import (
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrNotFound is returned by Update style operations when the target entity does not exist
	ErrNotFound = goerr.New("entity not found")

	// ErrConflict is returned by Create when an entity with the same external id already exists
	ErrConflict = goerr.New("entity already exists")
)

// Repository defines the interface for data persistence
type Repository interface {
	Organization() OrganizationRepository
	Integration() IntegrationRepository
	Room() RoomRepository
	User() UserRepository

	Close() error
}
