package memory

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/askemail/pkg/domain/interfaces"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = goerr.New("not found")

// Memory is an in-process Repository implementation for development and
// tests. All state is lost on process exit.
type Memory struct {
	memory *memoryRepository
	usage  *usageRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		memory: newMemoryRepository(),
		usage:  newUsageRepository(),
	}
}

func (m *Memory) Memory() interfaces.MemoryRepository {
	return m.memory
}

func (m *Memory) Usage() interfaces.UsageRepository {
	return m.usage
}

func (m *Memory) Close() error {
	return nil
}
