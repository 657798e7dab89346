package memory

import (
	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	organization *organizationRepository
	integration  *integrationRepository
	room         *roomRepository
	user         *userRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		organization: newOrganizationRepository(),
		integration:  newIntegrationRepository(),
		room:         newRoomRepository(),
		user:         newUserRepository(),
	}
}

func (m *Memory) Organization() interfaces.OrganizationRepository {
	return m.organization
}

func (m *Memory) Integration() interfaces.IntegrationRepository {
	return m.integration
}

func (m *Memory) Room() interfaces.RoomRepository {
	return m.room
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Close() error {
	return nil
}
