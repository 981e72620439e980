package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huddle/client/internal/models"
)

func testUser(id uint, username string) models.User {
	return models.User{ID: id, Username: username}
}

func seedUsers(t *testing.T, store *Memory, usernames ...string) []models.User {
	t.Helper()
	users := make([]models.User, 0, len(usernames))
	for _, name := range usernames {
		user, err := store.CreateUser(context.Background(), models.User{
			Username:    name,
			Email:       name + "@example.com",
			DisplayName: "User " + name,
		}, "hash-"+name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		users = append(users, user)
	}
	return users
}

func TestCreateUserUniqueness(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	seedUsers(t, store, "ada")

	if _, err := store.CreateUser(ctx, models.User{Username: "ADA", Email: "other@example.com"}, "h"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected username conflict, got %v", err)
	}
	if _, err := store.CreateUser(ctx, models.User{Username: "other", Email: "Ada@Example.com"}, "h"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if ErrUsernameTaken.Error() != "username already exists" || ErrEmailTaken.Error() != "email already exists" {
		t.Fatal("conflict messages must match the client catalogue")
	}
}

func TestCredentialsByUsernameOrEmail(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	seedUsers(t, store, "ada")

	user, hash, err := store.Credentials(ctx, "ada@example.com")
	if err != nil || user.Username != "ada" || hash != "hash-ada" {
		t.Fatalf("unexpected credentials %+v %q %v", user, hash, err)
	}
	if user.LastLogin == nil {
		t.Fatal("expected last login to be recorded")
	}
	if _, _, err := store.Credentials(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestUpdateUserKeepsIdentity(t *testing.T) {
	store := NewMemory()
	users := seedUsers(t, store, "ada")

	updated, err := store.UpdateUser(context.Background(), users[0].ID, func(u *models.User) {
		u.Username = "hijack"
		u.Bio = "compilers"
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "ada" || updated.Bio != "compilers" {
		t.Fatalf("unexpected update %+v", updated)
	}
}

func TestSearchUsersPaginates(t *testing.T) {
	store := NewMemory()
	seedUsers(t, store, "ada", "adele", "grace")

	result, err := store.SearchUsers(context.Background(), "AD", 1, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Total != 2 || result.TotalPages != 2 || len(result.Users) != 1 || result.Users[0].Username != "ada" {
		t.Fatalf("unexpected first page %+v", result)
	}

	result, _ = store.SearchUsers(context.Background(), "ad", 3, 1)
	if len(result.Users) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", result.Users)
	}
}

func TestResetTokensAreSingleUse(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	users := seedUsers(t, store, "ada")

	if err := store.SaveResetToken(ctx, users[0].ID, "reset", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save reset token: %v", err)
	}
	id, err := store.ConsumeResetToken(ctx, "reset")
	if err != nil || id != users[0].ID {
		t.Fatalf("consume: %d %v", id, err)
	}
	if _, err := store.ConsumeResetToken(ctx, "reset"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected reused token to fail, got %v", err)
	}

	_ = store.SaveResetToken(ctx, users[0].ID, "old", time.Now().Add(-time.Minute))
	if _, err := store.ConsumeResetToken(ctx, "old"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestFriendRequestLifecycle(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	users := seedUsers(t, store, "ada", "grace")
	ada, grace := users[0], users[1]

	if _, err := store.SendFriendRequest(ctx, ada.ID, ada.ID, ""); !errors.Is(err, ErrSelfAction) {
		t.Fatalf("expected self action error, got %v", err)
	}
	if _, err := store.SendFriendRequest(ctx, ada.ID, 99, ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected missing receiver, got %v", err)
	}

	req, err := store.SendFriendRequest(ctx, ada.ID, grace.ID, "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if req.Status != models.FriendRequestPending || req.Sender.Username != "ada" {
		t.Fatalf("unexpected request %+v", req)
	}
	if _, err := store.SendFriendRequest(ctx, grace.ID, ada.ID, ""); !errors.Is(err, ErrRequestPending) {
		t.Fatalf("expected pending duplicate error, got %v", err)
	}

	incoming, _ := store.IncomingRequests(ctx, grace.ID)
	sent, _ := store.SentRequests(ctx, ada.ID)
	if len(incoming) != 1 || len(sent) != 1 {
		t.Fatalf("expected one incoming and one sent, got %d/%d", len(incoming), len(sent))
	}

	if _, err := store.RespondFriendRequest(ctx, ada.ID, req.ID, true); !errors.Is(err, ErrRequestForbidden) {
		t.Fatalf("sender must not respond, got %v", err)
	}
	accepted, err := store.RespondFriendRequest(ctx, grace.ID, req.ID, true)
	if err != nil || accepted.Status != models.FriendRequestAccepted {
		t.Fatalf("accept: %+v %v", accepted, err)
	}
	if _, err := store.RespondFriendRequest(ctx, grace.ID, req.ID, false); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("terminal request must not transition, got %v", err)
	}
	if err := store.CancelFriendRequest(ctx, ada.ID, req.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("accepted request must not be cancelled, got %v", err)
	}

	friends, _ := store.Friends(ctx, grace.ID)
	if len(friends) != 1 || friends[0].Friend.ID != ada.ID || friends[0].User.ID != grace.ID {
		t.Fatalf("unexpected friends %+v", friends)
	}
	if ok, _ := store.AreFriends(ctx, ada.ID, grace.ID); !ok {
		t.Fatal("expected friendship")
	}
	if _, err := store.SendFriendRequest(ctx, ada.ID, grace.ID, ""); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected already friends, got %v", err)
	}

	if err := store.RemoveFriend(ctx, ada.ID, grace.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.RemoveFriend(ctx, ada.ID, grace.ID); !errors.Is(err, ErrFriendshipNotFound) {
		t.Fatalf("expected friendship not found, got %v", err)
	}
}

func TestCancelFriendRequestOnlyBySender(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	users := seedUsers(t, store, "ada", "grace")

	req, _ := store.SendFriendRequest(ctx, users[0].ID, users[1].ID, "")
	if err := store.CancelFriendRequest(ctx, users[1].ID, req.ID); !errors.Is(err, ErrRequestForbidden) {
		t.Fatalf("receiver must not cancel, got %v", err)
	}
	if err := store.CancelFriendRequest(ctx, users[0].ID, req.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if incoming, _ := store.IncomingRequests(ctx, users[1].ID); len(incoming) != 0 {
		t.Fatalf("cancelled request must not be pending, got %+v", incoming)
	}
	if err := store.CancelFriendRequest(ctx, users[0].ID, 99); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected request not found, got %v", err)
	}
}

func TestBlockEndsFriendshipAndPendingRequests(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	users := seedUsers(t, store, "ada", "grace", "linus")
	ada, grace, linus := users[0], users[1], users[2]

	req, _ := store.SendFriendRequest(ctx, ada.ID, grace.ID, "")
	_, _ = store.RespondFriendRequest(ctx, grace.ID, req.ID, true)
	_, _ = store.SendFriendRequest(ctx, linus.ID, ada.ID, "")

	if _, err := store.Block(ctx, ada.ID, grace.ID, "spam"); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, err := store.Block(ctx, ada.ID, linus.ID, ""); err != nil {
		t.Fatalf("block: %v", err)
	}
	if ok, _ := store.AreFriends(ctx, ada.ID, grace.ID); ok {
		t.Fatal("block must end the friendship")
	}
	if incoming, _ := store.IncomingRequests(ctx, ada.ID); len(incoming) != 0 {
		t.Fatal("block must cancel pending requests")
	}
	if _, err := store.SendFriendRequest(ctx, grace.ID, ada.ID, ""); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected blocked error, got %v", err)
	}
	if _, err := store.Block(ctx, ada.ID, grace.ID, ""); !errors.Is(err, ErrAlreadyBlocked) {
		t.Fatalf("expected already blocked, got %v", err)
	}

	blocked, _ := store.BlockedUsers(ctx, ada.ID)
	if len(blocked) != 2 || blocked[0].Reason != "spam" {
		t.Fatalf("unexpected blocked list %+v", blocked)
	}
	if err := store.Unblock(ctx, ada.ID, grace.ID); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if ok, _ := store.IsBlocked(ctx, ada.ID, grace.ID); ok {
		t.Fatal("expected unblocked")
	}
	if err := store.Unblock(ctx, ada.ID, grace.ID); !errors.Is(err, ErrNotBlocked) {
		t.Fatalf("expected not blocked, got %v", err)
	}
}

func TestConversationMessagesAndUnread(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.WithNowFunc(func() time.Time { base = base.Add(time.Second); return base })
	users := seedUsers(t, store, "ada", "grace", "linus")
	ada, grace, linus := users[0], users[1], users[2]

	if _, err := store.CreateConversation(ctx, ada.ID, "pair", models.ConversationDirect, []uint{grace.ID, linus.ID}); !errors.Is(err, ErrInvalidParticipants) {
		t.Fatalf("expected invalid participants, got %v", err)
	}

	direct, err := store.CreateConversation(ctx, ada.ID, "grace", models.ConversationDirect, []uint{grace.ID})
	if err != nil {
		t.Fatalf("create direct: %v", err)
	}
	group, err := store.CreateConversation(ctx, ada.ID, "club", models.ConversationGroup, []uint{grace.ID, linus.ID, grace.ID})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if len(group.Participants) != 3 || group.Participants[0].Role != RoleOwner {
		t.Fatalf("unexpected participants %+v", group.Participants)
	}

	if _, err := store.SendMessage(ctx, grace.ID, direct.ID, NewMessage{Content: "one"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := store.SendMessage(ctx, grace.ID, direct.ID, NewMessage{Content: "two", Type: models.MessageText}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := store.SendMessage(ctx, grace.ID, direct.ID, NewMessage{Content: "x", Type: "video"}); !errors.Is(err, ErrUnsupportedMessageType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}
	if _, err := store.SendMessage(ctx, linus.ID, direct.ID, NewMessage{Content: "intruder"}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("non participant must not send, got %v", err)
	}

	list, _ := store.Conversations(ctx, ada.ID)
	if len(list) != 2 || list[0].ID != direct.ID {
		t.Fatalf("expected most recently active first, got %+v", list)
	}
	if list[0].UnreadCount != 2 || list[0].LastMessage == nil || list[0].LastMessage.Content != "two" {
		t.Fatalf("unexpected summary %+v", list[0])
	}

	page, err := store.Messages(ctx, ada.ID, direct.ID, 1, 0)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if page.Total != 2 || len(page.Messages) != 1 || page.Messages[0].Content != "two" {
		t.Fatalf("expected newest page, got %+v", page)
	}
	page, _ = store.Messages(ctx, ada.ID, direct.ID, 1, 1)
	if len(page.Messages) != 1 || page.Messages[0].Content != "one" {
		t.Fatalf("expected offset page, got %+v", page)
	}

	conv, _ := store.Conversation(ctx, ada.ID, direct.ID)
	if conv.UnreadCount != 0 {
		t.Fatalf("reading must clear unread, got %d", conv.UnreadCount)
	}
	if _, err := store.Conversation(ctx, linus.ID, direct.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("non participant must not see conversation, got %v", err)
	}
}
