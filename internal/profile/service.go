package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/logging"
	"github.com/huddle/client/internal/models"
)

const (
	// MaxAvatarBytes bounds the size of a source image.
	MaxAvatarBytes = 5 << 20
	// DefaultAvatarSize is the edge length of the stored square avatar.
	DefaultAvatarSize = 256

	avatarQuality     = 85
	avatarContentType = "image/jpeg"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrFileTooLarge     = errors.New("avatar image is too large")
	ErrInvalidImageType = errors.New("avatar must be a jpeg, png or gif image")
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

// Uploader stores an object and returns its public location.
type Uploader interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// Updater applies profile changes for the signed-in user.
type Updater interface {
	UpdateMe(ctx context.Context, req api.UpdateUserRequest) (models.User, error)
}

// Session exposes the signed-in user and refreshes it after a change.
type Session interface {
	User() *models.User
	RefreshUser(ctx context.Context) (*models.User, error)
}

// Service updates the signed-in user's profile.
type Service struct {
	uploader Uploader
	users    Updater
	session  Session
	size     int
}

// NewService constructs a Service. A non-positive size selects DefaultAvatarSize.
func NewService(uploader Uploader, users Updater, session Session, size int) *Service {
	if size <= 0 {
		size = DefaultAvatarSize
	}
	return &Service{uploader: uploader, users: users, session: session, size: size}
}

// Update applies req and refreshes the session user.
func (s *Service) Update(ctx context.Context, req api.UpdateUserRequest) (*models.User, error) {
	if s.session.User() == nil {
		return nil, ErrNotAuthenticated
	}
	if _, err := s.users.UpdateMe(ctx, req); err != nil {
		return nil, err
	}
	return s.session.RefreshUser(ctx)
}

// SetAvatar crops the image read from r to a square, uploads it as JPEG and
// stores the resulting URL on the user's profile.
func (s *Service) SetAvatar(ctx context.Context, filename string, r io.Reader) (*models.User, error) {
	user := s.session.User()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	data, err := readImage(r)
	if err != nil {
		return nil, err
	}
	jpegBytes, err := squareJPEG(data, s.size)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%d/%s.jpg", user.ID, uuid.NewString())
	location, err := s.uploader.Save(ctx, key, avatarContentType, bytes.NewReader(jpegBytes))
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	logging.FromContext(ctx).Info("avatar uploaded", "source", filename, "key", key, "bytes", len(jpegBytes))

	if _, err := s.users.UpdateMe(ctx, api.UpdateUserRequest{Avatar: &location}); err != nil {
		return nil, err
	}
	return s.session.RefreshUser(ctx)
}

func readImage(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > MaxAvatarBytes {
		return nil, ErrFileTooLarge
	}
	if _, ok := allowedImageTypes[http.DetectContentType(data)]; !ok {
		return nil, ErrInvalidImageType
	}
	return data, nil
}

func squareJPEG(data []byte, size int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}

	square := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, square, imaging.JPEG, imaging.JPEGQuality(avatarQuality)); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
