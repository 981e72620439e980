package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field names reported in FieldError.Field.
const (
	FieldFullName        = "fullName"
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

const (
	fullNameMin = 2
	fullNameMax = 50
	usernameMin = 3
	usernameMax = 20
	passwordMin = 8
	passwordMax = 50

	loginPasswordMin = 6

	passwordSymbols = "@$!%*?&"
)

// space matches what browsers treat as whitespace in form patterns: the
// ASCII set plus vertical tab, the Unicode space separators, the line and
// paragraph separators and the byte order mark. RE2's \s is ASCII only.
const space = `\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	fullNamePattern = regexp.MustCompile(`^[a-zA-Z` + space + `]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^` + space + `@]+@[^` + space + `@]+\.[^` + space + `@]+$`)
)

// RegistrationForm mirrors the fields of the sign-up form.
type RegistrationForm struct {
	FullName        string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginForm mirrors the fields of the sign-in form.
type LoginForm struct {
	Username string
	Password string
}

// FieldError is a single failed field.
type FieldError struct {
	Field   string
	Message string
}

// Result collects every failure of a form validation pass.
type Result struct {
	Valid  bool
	Errors []FieldError
}

// Message returns the error recorded for field, or "".
func (r Result) Message(field string) string {
	for _, e := range r.Errors {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Err returns nil for a valid result and an *Error otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &Error{Result: r}
}

// Error rejects input before any request is sent.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	if len(e.Result.Errors) == 0 {
		return "validation failed"
	}
	first := e.Result.Errors[0]
	return fmt.Sprintf("validation failed: %s: %s", first.Field, first.Message)
}

// ValidateFullName returns "" when v is an acceptable display name.
func ValidateFullName(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Full name is required"
	}
	n := utf8.RuneCountInString(v)
	if n < fullNameMin {
		return fmt.Sprintf("Full name must be at least %d characters", fullNameMin)
	}
	if n > fullNameMax {
		return fmt.Sprintf("Full name must be less than %d characters", fullNameMax)
	}
	if !fullNamePattern.MatchString(v) {
		return "Full name can only contain letters and spaces"
	}
	return ""
}

// ValidateUsername returns "" when v is an acceptable handle.
func ValidateUsername(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Username is required"
	}
	n := utf8.RuneCountInString(v)
	if n < usernameMin {
		return fmt.Sprintf("Username must be at least %d characters", usernameMin)
	}
	if n > usernameMax {
		return fmt.Sprintf("Username must be less than %d characters", usernameMax)
	}
	if !usernamePattern.MatchString(v) {
		return "Username can only contain letters, numbers, and underscores"
	}
	return ""
}

// ValidateEmail performs a local@domain.tld shape check.
func ValidateEmail(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Email is required"
	}
	if !emailPattern.MatchString(v) {
		return "Please enter a valid email address"
	}
	return ""
}

// ValidatePassword requires 8 to 50 characters with lowercase, uppercase,
// digit and symbol classes present.
func ValidatePassword(v string) string {
	if v == "" {
		return "Password is required"
	}
	n := utf8.RuneCountInString(v)
	if n < passwordMin {
		return fmt.Sprintf("Password must be at least %d characters", passwordMin)
	}
	if n > passwordMax {
		return fmt.Sprintf("Password must be less than %d characters", passwordMax)
	}
	if !passwordComplex(v) {
		return "Password must contain at least one lowercase letter, one uppercase letter, one number, and one special character"
	}
	return ""
}

// ValidateConfirmPassword checks the confirmation matches.
func ValidateConfirmPassword(password, confirm string) string {
	if confirm == "" {
		return "Please confirm your password"
	}
	if password != confirm {
		return "Passwords do not match"
	}
	return ""
}

// ValidateForm runs every field validator and collects all failures.
func ValidateForm(form RegistrationForm) Result {
	checks := []struct {
		field string
		msg   string
	}{
		{FieldFullName, ValidateFullName(form.FullName)},
		{FieldUsername, ValidateUsername(form.Username)},
		{FieldEmail, ValidateEmail(form.Email)},
		{FieldPassword, ValidatePassword(form.Password)},
		{FieldConfirmPassword, ValidateConfirmPassword(form.Password, form.ConfirmPassword)},
	}

	var errs []FieldError
	for _, c := range checks {
		if c.msg != "" {
			errs = append(errs, FieldError{Field: c.field, Message: c.msg})
		}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// ValidateField validates a single field as the user types. An empty password
// skips the confirmation check.
func ValidateField(field, value, password string) string {
	switch field {
	case FieldFullName:
		return ValidateFullName(value)
	case FieldUsername:
		return ValidateUsername(value)
	case FieldEmail:
		return ValidateEmail(value)
	case FieldPassword:
		return ValidatePassword(value)
	case FieldConfirmPassword:
		if password == "" {
			return ""
		}
		return ValidateConfirmPassword(password, value)
	default:
		return ""
	}
}

// ValidateLogin applies the lighter sign-in rules.
func ValidateLogin(form LoginForm) Result {
	var errs []FieldError
	if strings.TrimSpace(form.Username) == "" {
		errs = append(errs, FieldError{Field: FieldUsername, Message: "Username is required"})
	}
	switch {
	case form.Password == "":
		errs = append(errs, FieldError{Field: FieldPassword, Message: "Password is required"})
	case utf8.RuneCountInString(form.Password) < loginPasswordMin:
		errs = append(errs, FieldError{Field: FieldPassword, Message: fmt.Sprintf("Password must be at least %d characters", loginPasswordMin)})
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// passwordComplex reports whether v has every required character class and
// starts with an allowed character.
func passwordComplex(v string) bool {
	first, _ := utf8.DecodeRuneInString(v)
	if !isASCIILetter(first) && !isDigit(first) && !strings.ContainsRune(passwordSymbols, first) {
		return false
	}

	var lower, upper, digit, symbol bool
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case isDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
