package chat

import (
	"sync"

	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// Factory builds a Machine for one member. The manager fills MemberID and
// GroupID into the config it passes through.
type Factory func(memberID, groupID string) (*Machine, error)

// Manager owns one Machine per member. Machines are created lazily on first
// access and live until released.
type Manager struct {
	factory Factory
	logger  *logging.Logger

	mu       sync.Mutex
	machines map[string]*Machine
}

func NewManager(factory Factory, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		factory:  factory,
		logger:   logger.Component("chat_manager"),
		machines: make(map[string]*Machine),
	}
}

// Get returns the member's machine, creating it on first access. The group
// id only matters on creation; subsequent calls return the existing machine
// regardless of group.
func (mgr *Manager) Get(memberID, groupID string) (*Machine, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if m, ok := mgr.machines[memberID]; ok {
		return m, nil
	}
	m, err := mgr.factory(memberID, groupID)
	if err != nil {
		return nil, err
	}
	mgr.machines[memberID] = m
	mgr.logger.Debug("machine created", "member_id", memberID)
	return m, nil
}

// Release closes and removes the member's machine. No-op for unknown ids.
func (mgr *Manager) Release(memberID string) {
	mgr.mu.Lock()
	m, ok := mgr.machines[memberID]
	delete(mgr.machines, memberID)
	mgr.mu.Unlock()
	if ok {
		m.Close()
		mgr.logger.Debug("machine released", "member_id", memberID)
	}
}

// Shutdown closes every machine. Used on process shutdown.
func (mgr *Manager) Shutdown() {
	mgr.mu.Lock()
	machines := make([]*Machine, 0, len(mgr.machines))
	for id, m := range mgr.machines {
		machines = append(machines, m)
		delete(mgr.machines, id)
	}
	mgr.mu.Unlock()
	for _, m := range machines {
		m.Close()
	}
}
