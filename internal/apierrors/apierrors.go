package apierrors

import (
	"context"
	"errors"
	"strings"

	"github.com/huddle/client/internal/httpclient"
	"github.com/huddle/client/internal/logging"
	"github.com/huddle/client/internal/validation"
)

// Backend error phrases recognised in envelope messages.
const (
	PhraseUsernameExists     = "username already exists"
	PhraseEmailExists        = "email already exists"
	PhraseInvalidCredentials = "invalid credentials"
	PhraseUserNotFound       = "user not found"
	PhraseTokenExpired       = "token expired"
	PhraseTokenInvalid       = "token invalid"
	PhrasePasswordTooWeak    = "password too weak"
	PhraseEmailInvalid       = "invalid email format"
	PhraseUsernameInvalid    = "invalid username format"
)

const (
	MessageFallback   = "An error occurred"
	MessageNetwork    = "Network error. Please check your connection and try again."
	MessageUnexpected = "An unexpected error occurred. Please try again."
)

var userMessages = map[string]string{
	PhraseUsernameExists:     "Username already exists",
	PhraseEmailExists:        "Email already exists",
	PhraseInvalidCredentials: "Invalid username or password",
	PhraseUserNotFound:       "User not found",
	PhraseTokenExpired:       "Session expired. Please login again",
	PhraseTokenInvalid:       "Invalid session. Please login again",
	PhrasePasswordTooWeak:    "Password is too weak",
	PhraseEmailInvalid:       "Please enter a valid email address",
	PhraseUsernameInvalid:    "Username contains invalid characters",
}

// UserMessage returns the display text for a catalogued backend phrase.
func UserMessage(phrase string) string {
	return userMessages[phrase]
}

// Flow selects which routing table applies to an error.
type Flow int

const (
	FlowGeneral Flow = iota
	FlowRegistration
	FlowLogin
)

// Result splits a failure into per-field messages and one general message.
type Result struct {
	FieldErrors  map[string]string
	GeneralError string
}

// HasGeneral reports whether a general message is set.
func (r Result) HasGeneral() bool {
	return r.GeneralError != ""
}

type route struct {
	phrase string
	field  string
}

var (
	registrationRoutes = []route{
		{PhraseUsernameExists, validation.FieldUsername},
		{PhraseEmailExists, validation.FieldEmail},
		{PhrasePasswordTooWeak, validation.FieldPassword},
		{PhraseEmailInvalid, validation.FieldEmail},
		{PhraseUsernameInvalid, validation.FieldUsername},
	}
	loginRoutes = []route{
		// An empty field routes the mapped message to the general error.
		{PhraseInvalidCredentials, ""},
		{PhraseUserNotFound, validation.FieldUsername},
	}
)

// ExtractMessage picks the most specific message carried by env.
func ExtractMessage(env httpclient.Envelope) string {
	if env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	if env.Message != "" {
		return env.Message
	}
	return MessageFallback
}

// Registration maps a failed registration envelope.
func Registration(env httpclient.Envelope) Result {
	return match(ExtractMessage(env), registrationRoutes)
}

// Login maps a failed login envelope.
func Login(env httpclient.Envelope) Result {
	return match(ExtractMessage(env), loginRoutes)
}

// General maps any other failed envelope to its raw message.
func General(env httpclient.Envelope) Result {
	return Result{FieldErrors: map[string]string{}, GeneralError: ExtractMessage(env)}
}

// Network maps a failure where no response was received.
func Network(ctx context.Context, err error) Result {
	logging.FromContext(ctx).Error("network error", "error", err)
	return Result{FieldErrors: map[string]string{}, GeneralError: MessageNetwork}
}

// FromError classifies err for display in the given flow.
func FromError(ctx context.Context, err error, flow Flow) Result {
	var (
		validationErr *validation.Error
		apiErr        *httpclient.APIError
		transportErr  *httpclient.TransportError
	)
	switch {
	case err == nil:
		return Result{FieldErrors: map[string]string{}}
	case errors.As(err, &validationErr):
		fields := make(map[string]string, len(validationErr.Result.Errors))
		for _, fe := range validationErr.Result.Errors {
			fields[fe.Field] = fe.Message
		}
		return Result{FieldErrors: fields}
	case errors.Is(err, httpclient.ErrSessionExpired):
		return Result{FieldErrors: map[string]string{}, GeneralError: userMessages[PhraseTokenExpired]}
	case errors.As(err, &apiErr):
		switch flow {
		case FlowRegistration:
			return Registration(apiErr.Envelope)
		case FlowLogin:
			return Login(apiErr.Envelope)
		default:
			return General(apiErr.Envelope)
		}
	case errors.As(err, &transportErr):
		return Network(ctx, err)
	default:
		return Result{FieldErrors: map[string]string{}, GeneralError: MessageUnexpected}
	}
}

func match(message string, routes []route) Result {
	result := Result{FieldErrors: map[string]string{}}
	for _, r := range routes {
		if !strings.Contains(message, r.phrase) {
			continue
		}
		if r.field == "" {
			result.GeneralError = userMessages[r.phrase]
		} else {
			result.FieldErrors[r.field] = userMessages[r.phrase]
		}
		return result
	}
	result.GeneralError = message
	return result
}
