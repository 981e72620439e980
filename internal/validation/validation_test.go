package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFullName(t *testing.T) {
	assert.Equal(t, "Full name is required", ValidateFullName("   "))
	assert.Equal(t, "Full name must be at least 2 characters", ValidateFullName("A"))
	assert.Equal(t, "Full name must be less than 50 characters", ValidateFullName(strings.Repeat("a", 51)))
	assert.Equal(t, "Full name can only contain letters and spaces", ValidateFullName("Ada L0velace"))
	assert.Empty(t, ValidateFullName("Ada Lovelace"))
	assert.Empty(t, ValidateFullName("Ana\u00a0Li"))
	assert.Empty(t, ValidateFullName("Ana\u2009Li"))
}

func TestValidateUsername(t *testing.T) {
	assert.Equal(t, "Username is required", ValidateUsername(""))
	assert.Equal(t, "Username must be at least 3 characters", ValidateUsername("ab"))
	assert.Equal(t, "Username must be less than 20 characters", ValidateUsername(strings.Repeat("a", 21)))
	assert.Equal(t, "Username can only contain letters, numbers, and underscores", ValidateUsername("ada-l"))
	assert.Empty(t, ValidateUsername("ada_1815"))
}

func TestValidateEmail(t *testing.T) {
	assert.Equal(t, "Email is required", ValidateEmail(""))
	for _, bad := range []string{"ada", "ada@", "ada@example", "a da@example.com", "@example.com", "a\u00a0da@example.com", "ada@exa\u3000mple.com"} {
		assert.Equal(t, "Please enter a valid email address", ValidateEmail(bad), bad)
	}
	assert.Empty(t, ValidateEmail("ada@example.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.Equal(t, "Password is required", ValidatePassword(""))
	assert.Equal(t, "Password must be at least 8 characters", ValidatePassword("abc"))
	assert.Equal(t, "Password must be less than 50 characters", ValidatePassword("Aa1!"+strings.Repeat("a", 47)))

	complexity := "Password must contain at least one lowercase letter, one uppercase letter, one number, and one special character"
	for _, weak := range []string{"alllowercase1!", "ALLUPPER1!", "NoDigits!!", "NoSymbol123", "#Aa1aaaaa"} {
		assert.Equal(t, complexity, ValidatePassword(weak), weak)
	}

	assert.Empty(t, ValidatePassword("Secur3!pass"))
}

func TestValidateConfirmPassword(t *testing.T) {
	assert.Equal(t, "Please confirm your password", ValidateConfirmPassword("Secur3!pass", ""))
	assert.Equal(t, "Passwords do not match", ValidateConfirmPassword("Secur3!pass", "Secur3!pasS"))
	assert.Empty(t, ValidateConfirmPassword("Secur3!pass", "Secur3!pass"))
}

func TestValidateFormCollectsEveryFailure(t *testing.T) {
	result := ValidateForm(RegistrationForm{
		FullName:        "",
		Username:        "",
		Email:           "not-an-email",
		Password:        "Secur3!pass",
		ConfirmPassword: "Secur3!pass",
	})

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, FieldFullName, result.Errors[0].Field)
	assert.Equal(t, FieldUsername, result.Errors[1].Field)
	assert.Equal(t, FieldEmail, result.Errors[2].Field)
	assert.Equal(t, "Please enter a valid email address", result.Message(FieldEmail))
}

func TestValidateFormValid(t *testing.T) {
	result := ValidateForm(RegistrationForm{
		FullName:        "Ada Lovelace",
		Username:        "ada",
		Email:           "ada@example.com",
		Password:        "Secur3!pass",
		ConfirmPassword: "Secur3!pass",
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateField(t *testing.T) {
	assert.Equal(t, "Username is required", ValidateField(FieldUsername, "", ""))
	assert.Empty(t, ValidateField(FieldConfirmPassword, "anything", ""))
	assert.Equal(t, "Passwords do not match", ValidateField(FieldConfirmPassword, "other", "Secur3!pass"))
	assert.Empty(t, ValidateField("unknown", "", ""))
}

func TestValidateLogin(t *testing.T) {
	result := ValidateLogin(LoginForm{})
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Username is required", result.Message(FieldUsername))
	assert.Equal(t, "Password is required", result.Message(FieldPassword))

	result = ValidateLogin(LoginForm{Username: "ada", Password: "12345"})
	assert.Equal(t, "Password must be at least 6 characters", result.Message(FieldPassword))

	assert.True(t, ValidateLogin(LoginForm{Username: "ada", Password: "123456"}).Valid)
}

func TestPasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		score    int
		label    string
	}{
		{"", 0, StrengthWeak},
		{"abc", 1, StrengthWeak},
		{"abcdefgh", 2, StrengthWeak},
		{"abcdefgH", 3, StrengthFair},
		{"abcdefH1", 4, StrengthGood},
		{"abcdeH1!", 5, StrengthStrong},
		{"aB1!", 4, StrengthGood},
	}

	for _, tc := range cases {
		score := PasswordStrength(tc.password)
		assert.Equal(t, tc.score, score, tc.password)
		assert.Equal(t, tc.label, StrengthLabel(score), tc.password)
	}
}

func TestPasswordStrengthMonotonic(t *testing.T) {
	// Each step adds exactly one satisfied class.
	steps := []string{"a", "aB", "aB1", "aB1!", "aB1!xxxx"}
	prev := -1
	for _, p := range steps {
		score := PasswordStrength(p)
		require.GreaterOrEqual(t, score, 0)
		require.LessOrEqual(t, score, MaxStrength)
		require.Greater(t, score, prev, p)
		prev = score
	}
}

func TestStrengthLabelBands(t *testing.T) {
	assert.Equal(t, StrengthWeak, StrengthLabel(0))
	assert.Equal(t, StrengthWeak, StrengthLabel(2))
	assert.Equal(t, StrengthFair, StrengthLabel(3))
	assert.Equal(t, StrengthGood, StrengthLabel(4))
	assert.Equal(t, StrengthStrong, StrengthLabel(5))
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, ValidateLogin(LoginForm{Username: "ada", Password: "123456"}).Err())

	err := ValidateLogin(LoginForm{Username: "ada"}).Err()
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Password is required", verr.Result.Message(FieldPassword))
	assert.Contains(t, err.Error(), "password")
}
