package profile

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/models"
)

type fakeUploader struct {
	name        string
	contentType string
	data        []byte
	err         error
}

func (f *fakeUploader) Save(_ context.Context, name, contentType string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.name, f.contentType, f.data = name, contentType, data
	return "https://cdn.example.com/" + name, nil
}

type fakeUpdater struct {
	requests []api.UpdateUserRequest
	err      error
}

func (f *fakeUpdater) UpdateMe(_ context.Context, req api.UpdateUserRequest) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	f.requests = append(f.requests, req)
	return models.User{}, nil
}

type fakeSession struct {
	user      *models.User
	refreshed int
}

func (f *fakeSession) User() *models.User { return f.user }

func (f *fakeSession) RefreshUser(context.Context) (*models.User, error) {
	f.refreshed++
	return f.user, nil
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSetAvatarUploadsSquareJPEG(t *testing.T) {
	uploader := &fakeUploader{}
	updater := &fakeUpdater{}
	session := &fakeSession{user: &models.User{ID: 7, Username: "ada"}}
	svc := NewService(uploader, updater, session, 32)

	if _, err := svc.SetAvatar(context.Background(), "me.png", bytes.NewReader(pngImage(t, 80, 40))); err != nil {
		t.Fatalf("set avatar: %v", err)
	}

	if !strings.HasPrefix(uploader.name, "avatars/7/") || !strings.HasSuffix(uploader.name, ".jpg") {
		t.Fatalf("unexpected object key %q", uploader.name)
	}
	if uploader.contentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", uploader.contentType)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(uploader.data))
	if err != nil {
		t.Fatalf("uploaded data is not a jpeg: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 32 {
		t.Fatalf("expected 32x32 avatar, got %dx%d", cfg.Width, cfg.Height)
	}

	if len(updater.requests) != 1 || updater.requests[0].Avatar == nil {
		t.Fatalf("expected one avatar update, got %+v", updater.requests)
	}
	if got := *updater.requests[0].Avatar; got != "https://cdn.example.com/"+uploader.name {
		t.Fatalf("unexpected avatar url %q", got)
	}
	if session.refreshed != 1 {
		t.Fatalf("expected session refresh, got %d", session.refreshed)
	}
}

func TestSetAvatarRejectsInput(t *testing.T) {
	session := &fakeSession{user: &models.User{ID: 7}}
	svc := NewService(&fakeUploader{}, &fakeUpdater{}, session, 0)

	if _, err := svc.SetAvatar(context.Background(), "notes.txt", strings.NewReader("plain text")); !errors.Is(err, ErrInvalidImageType) {
		t.Fatalf("expected invalid type, got %v", err)
	}

	huge := bytes.NewReader(make([]byte, MaxAvatarBytes+1))
	if _, err := svc.SetAvatar(context.Background(), "huge.png", huge); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}

	anonymous := NewService(&fakeUploader{}, &fakeUpdater{}, &fakeSession{}, 0)
	if _, err := anonymous.SetAvatar(context.Background(), "me.png", bytes.NewReader(pngImage(t, 4, 4))); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
}

func TestSetAvatarUploadFailureSkipsUpdate(t *testing.T) {
	updater := &fakeUpdater{}
	session := &fakeSession{user: &models.User{ID: 7}}
	svc := NewService(&fakeUploader{err: errors.New("bucket missing")}, updater, session, 16)

	if _, err := svc.SetAvatar(context.Background(), "me.png", bytes.NewReader(pngImage(t, 20, 20))); err == nil {
		t.Fatal("expected upload error")
	}
	if len(updater.requests) != 0 || session.refreshed != 0 {
		t.Fatal("profile must not change when the upload fails")
	}
}

func TestUpdateRefreshesSession(t *testing.T) {
	updater := &fakeUpdater{}
	session := &fakeSession{user: &models.User{ID: 7}}
	svc := NewService(&fakeUploader{}, updater, session, 0)

	bio := "compilers"
	if _, err := svc.Update(context.Background(), api.UpdateUserRequest{Bio: &bio}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updater.requests) != 1 || session.refreshed != 1 {
		t.Fatalf("expected update and refresh, got %d/%d", len(updater.requests), session.refreshed)
	}
}
