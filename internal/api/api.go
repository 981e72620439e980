package api

import (
	"context"
	"errors"

	"github.com/huddle/client/internal/httpclient"
)

// ErrInvalidArgument is returned before any network call when a request
// cannot be valid.
var ErrInvalidArgument = errors.New("invalid argument")

// Doer sends one backend request and decodes the envelope data into out.
// *httpclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, req httpclient.Request, out any) error
}
