package repositories

import (
	"sync"
	"time"

	"github.com/huddle/client/internal/models"
)

type userRecord struct {
	user         models.User
	passwordHash string
}

type requestRecord struct {
	id         uint
	senderID   uint
	receiverID uint
	status     models.FriendRequestStatus
	message    string
	createdAt  time.Time
	updatedAt  time.Time
}

type friendshipRecord struct {
	id        uint
	userA     uint
	userB     uint
	createdAt time.Time
}

type blockRecord struct {
	id        uint
	blockerID uint
	blockedID uint
	reason    string
	createdAt time.Time
}

type conversationRecord struct {
	conv         models.Conversation
	participants []models.Participant
	lastRead     map[uint]uint
}

type resetRecord struct {
	userID    uint
	expiresAt time.Time
}

// Memory is the in-process store behind the development backend. It holds
// users, friend requests, friendships, blocks, conversations and messages.
type Memory struct {
	mu  sync.RWMutex
	now func() time.Time

	nextID map[string]uint

	users         map[uint]*userRecord
	requests      map[uint]*requestRecord
	friendships   map[uint]*friendshipRecord
	blocks        map[uint]*blockRecord
	conversations map[uint]*conversationRecord
	messages      map[uint][]models.Message
	resets        map[string]resetRecord
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:           func() time.Time { return time.Now().UTC() },
		nextID:        make(map[string]uint),
		users:         make(map[uint]*userRecord),
		requests:      make(map[uint]*requestRecord),
		friendships:   make(map[uint]*friendshipRecord),
		blocks:        make(map[uint]*blockRecord),
		conversations: make(map[uint]*conversationRecord),
		messages:      make(map[uint][]models.Message),
		resets:        make(map[string]resetRecord),
	}
}

// WithNowFunc overrides the time source.
func (m *Memory) WithNowFunc(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) idLocked(kind string) uint {
	m.nextID[kind]++
	return m.nextID[kind]
}
