package repositories

import (
	"context"
	"sort"

	"github.com/huddle/client/internal/models"
)

// FriendRepository defines data access for friend requests, friendships and blocks.
type FriendRepository interface {
	SendFriendRequest(ctx context.Context, senderID, receiverID uint, message string) (models.FriendRequest, error)
	IncomingRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error)
	SentRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error)
	RespondFriendRequest(ctx context.Context, userID, requestID uint, accept bool) (models.FriendRequest, error)
	CancelFriendRequest(ctx context.Context, userID, requestID uint) error
	Friends(ctx context.Context, userID uint) ([]models.Friendship, error)
	RemoveFriend(ctx context.Context, userID, friendID uint) error
	AreFriends(ctx context.Context, userID, otherID uint) (bool, error)
	Block(ctx context.Context, blockerID, blockedID uint, reason string) (models.BlockedUser, error)
	Unblock(ctx context.Context, blockerID, blockedID uint) error
	BlockedUsers(ctx context.Context, blockerID uint) ([]models.BlockedUser, error)
	IsBlocked(ctx context.Context, blockerID, blockedID uint) (bool, error)
}

var _ FriendRepository = (*Memory)(nil)

// SendFriendRequest creates a pending request from sender to receiver.
func (m *Memory) SendFriendRequest(_ context.Context, senderID, receiverID uint, message string) (models.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if senderID == receiverID {
		return models.FriendRequest{}, ErrSelfAction
	}
	if _, ok := m.users[receiverID]; !ok {
		return models.FriendRequest{}, ErrUserNotFound
	}
	if m.friendshipLocked(senderID, receiverID) != nil {
		return models.FriendRequest{}, ErrAlreadyFriends
	}
	if m.blockLocked(senderID, receiverID) != nil || m.blockLocked(receiverID, senderID) != nil {
		return models.FriendRequest{}, ErrUserBlocked
	}
	for _, req := range m.requests {
		if req.status != models.FriendRequestPending {
			continue
		}
		if (req.senderID == senderID && req.receiverID == receiverID) ||
			(req.senderID == receiverID && req.receiverID == senderID) {
			return models.FriendRequest{}, ErrRequestPending
		}
	}

	now := m.now()
	req := &requestRecord{
		id:         m.idLocked("request"),
		senderID:   senderID,
		receiverID: receiverID,
		status:     models.FriendRequestPending,
		message:    message,
		createdAt:  now,
		updatedAt:  now,
	}
	m.requests[req.id] = req
	return m.requestLocked(req), nil
}

// IncomingRequests lists pending requests addressed to userID.
func (m *Memory) IncomingRequests(_ context.Context, userID uint) ([]models.FriendRequest, error) {
	return m.pendingRequests(func(r *requestRecord) bool { return r.receiverID == userID }), nil
}

// SentRequests lists pending requests sent by userID.
func (m *Memory) SentRequests(_ context.Context, userID uint) ([]models.FriendRequest, error) {
	return m.pendingRequests(func(r *requestRecord) bool { return r.senderID == userID }), nil
}

// RespondFriendRequest accepts or rejects a pending request addressed to
// userID. Accepting creates the friendship.
func (m *Memory) RespondFriendRequest(_ context.Context, userID, requestID uint, accept bool) (models.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.requests[requestID]
	if !ok {
		return models.FriendRequest{}, ErrRequestNotFound
	}
	req := m.requestLocked(rec)
	if req.Receiver.ID != userID {
		return models.FriendRequest{}, ErrRequestForbidden
	}

	next := models.FriendRequestRejected
	if accept {
		next = models.FriendRequestAccepted
	}
	now := m.now()
	if err := req.Transition(next, now); err != nil {
		return models.FriendRequest{}, ErrRequestNotPending
	}
	rec.status = req.Status
	rec.updatedAt = req.UpdatedAt

	if accept && m.friendshipLocked(rec.senderID, rec.receiverID) == nil {
		f := &friendshipRecord{id: m.idLocked("friendship"), userA: rec.senderID, userB: rec.receiverID, createdAt: now}
		m.friendships[f.id] = f
	}
	return req, nil
}

// CancelFriendRequest withdraws a pending request sent by userID.
func (m *Memory) CancelFriendRequest(_ context.Context, userID, requestID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.requests[requestID]
	if !ok {
		return ErrRequestNotFound
	}
	req := m.requestLocked(rec)
	if req.Sender.ID != userID {
		return ErrRequestForbidden
	}
	if !req.CanCancel(userID) {
		return ErrRequestNotPending
	}
	if err := req.Transition(models.FriendRequestCancelled, m.now()); err != nil {
		return ErrRequestNotPending
	}
	rec.status = req.Status
	rec.updatedAt = req.UpdatedAt
	return nil
}

// Friends lists the friendships of userID from its point of view.
func (m *Memory) Friends(_ context.Context, userID uint) ([]models.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Friendship{}
	for _, f := range m.friendships {
		var other uint
		switch userID {
		case f.userA:
			other = f.userB
		case f.userB:
			other = f.userA
		default:
			continue
		}
		out = append(out, models.Friendship{
			ID:        f.id,
			User:      m.userLocked(userID),
			Friend:    m.userLocked(other),
			CreatedAt: f.createdAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) RemoveFriend(_ context.Context, userID, friendID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.friendshipLocked(userID, friendID)
	if f == nil {
		return ErrFriendshipNotFound
	}
	delete(m.friendships, f.id)
	return nil
}

func (m *Memory) AreFriends(_ context.Context, userID, otherID uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.friendshipLocked(userID, otherID) != nil, nil
}

// Block blocks blockedID for blockerID, ending any friendship and cancelling
// pending requests between them.
func (m *Memory) Block(_ context.Context, blockerID, blockedID uint, reason string) (models.BlockedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if blockerID == blockedID {
		return models.BlockedUser{}, ErrSelfAction
	}
	if _, ok := m.users[blockedID]; !ok {
		return models.BlockedUser{}, ErrUserNotFound
	}
	if m.blockLocked(blockerID, blockedID) != nil {
		return models.BlockedUser{}, ErrAlreadyBlocked
	}

	now := m.now()
	if f := m.friendshipLocked(blockerID, blockedID); f != nil {
		delete(m.friendships, f.id)
	}
	for _, req := range m.requests {
		between := (req.senderID == blockerID && req.receiverID == blockedID) ||
			(req.senderID == blockedID && req.receiverID == blockerID)
		if between && req.status.CanTransition(models.FriendRequestCancelled) {
			req.status = models.FriendRequestCancelled
			req.updatedAt = now
		}
	}

	b := &blockRecord{id: m.idLocked("block"), blockerID: blockerID, blockedID: blockedID, reason: reason, createdAt: now}
	m.blocks[b.id] = b
	return m.blockedLocked(b), nil
}

func (m *Memory) Unblock(_ context.Context, blockerID, blockedID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.blockLocked(blockerID, blockedID)
	if b == nil {
		return ErrNotBlocked
	}
	delete(m.blocks, b.id)
	return nil
}

func (m *Memory) BlockedUsers(_ context.Context, blockerID uint) ([]models.BlockedUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.BlockedUser{}
	for _, b := range m.blocks {
		if b.blockerID == blockerID {
			out = append(out, m.blockedLocked(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) IsBlocked(_ context.Context, blockerID, blockedID uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blockLocked(blockerID, blockedID) != nil, nil
}

func (m *Memory) pendingRequests(match func(*requestRecord) bool) []models.FriendRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.FriendRequest{}
	for _, rec := range m.requests {
		if rec.status == models.FriendRequestPending && match(rec) {
			out = append(out, m.requestLocked(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) requestLocked(rec *requestRecord) models.FriendRequest {
	return models.FriendRequest{
		ID:        rec.id,
		Sender:    m.userLocked(rec.senderID),
		Receiver:  m.userLocked(rec.receiverID),
		Status:    rec.status,
		Message:   rec.message,
		CreatedAt: rec.createdAt,
		UpdatedAt: rec.updatedAt,
	}
}

func (m *Memory) blockedLocked(b *blockRecord) models.BlockedUser {
	return models.BlockedUser{
		ID:        b.id,
		Blocker:   m.userLocked(b.blockerID),
		Blocked:   m.userLocked(b.blockedID),
		Reason:    b.reason,
		CreatedAt: b.createdAt,
	}
}

func (m *Memory) friendshipLocked(a, b uint) *friendshipRecord {
	for _, f := range m.friendships {
		if (f.userA == a && f.userB == b) || (f.userA == b && f.userB == a) {
			return f
		}
	}
	return nil
}

func (m *Memory) blockLocked(blockerID, blockedID uint) *blockRecord {
	for _, b := range m.blocks {
		if b.blockerID == blockerID && b.blockedID == blockedID {
			return b
		}
	}
	return nil
}

func (m *Memory) userLocked(id uint) models.User {
	if rec, ok := m.users[id]; ok {
		return rec.user
	}
	return models.User{ID: id}
}
