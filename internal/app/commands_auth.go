package app

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/huddle/client/internal/apierrors"
	"github.com/huddle/client/internal/models"
	"github.com/huddle/client/internal/validation"
)

func newRegisterCommand(rt *runtime) *cobra.Command {
	var form validation.RegistrationForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if form.ConfirmPassword == "" {
				form.ConfirmPassword = form.Password
			}
			if form.Password != "" {
				rt.printf("Password strength: %s\n", validation.StrengthLabel(validation.PasswordStrength(form.Password)))
			}

			deps, err := rt.connect(ctx)
			if err != nil {
				return err
			}
			user, err := deps.session.Register(ctx, form)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowRegistration)
			}
			rt.printf("Registered and signed in as %s\n", describeUser(*user))
			return nil
		},
	}

	cmd.Flags().StringVar(&form.FullName, "full-name", "", "Display name")
	cmd.Flags().StringVar(&form.Username, "username", "", "Account handle")
	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "Password confirmation (defaults to --password)")
	return cmd
}

func newLoginCommand(rt *runtime) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.connect(ctx)
			if err != nil {
				return err
			}
			user, err := deps.session.Login(ctx, username, password)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowLogin)
			}
			rt.printf("Signed in as %s\n", describeUser(*user))
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username or email")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.connect(ctx)
			if err != nil {
				return err
			}
			if err := deps.session.Logout(ctx); err != nil {
				return err
			}
			rt.printf("Signed out\n")
			return nil
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			user := deps.session.User()
			if user == nil {
				return ErrNotSignedIn
			}
			rt.printf("%s\n", describeUser(*user))
			rt.printf("email: %s\n", user.Email)
			if user.Bio != "" {
				rt.printf("bio: %s\n", user.Bio)
			}
			if expiry, err := deps.session.AccessTokenExpiry(ctx); err == nil {
				rt.printf("access token expires: %s\n", expiry.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func newForgotPasswordCommand(rt *runtime) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if msg := validation.ValidateEmail(email); msg != "" {
				return rt.report(ctx, fieldError(validation.FieldEmail, msg), apierrors.FlowGeneral)
			}
			deps, err := rt.connect(ctx)
			if err != nil {
				return err
			}
			if err := deps.auth.ForgotPassword(ctx, email); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("If the email exists, a password reset link has been sent\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newResetPasswordCommand(rt *runtime) *cobra.Command {
	var token, password, confirm string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if token == "" {
				return errors.New("--token is required")
			}
			if confirm == "" {
				confirm = password
			}
			var result validation.Result
			if msg := validation.ValidatePassword(password); msg != "" {
				result.Errors = append(result.Errors, validation.FieldError{Field: validation.FieldPassword, Message: msg})
			}
			if msg := validation.ValidateConfirmPassword(password, confirm); msg != "" {
				result.Errors = append(result.Errors, validation.FieldError{Field: validation.FieldConfirmPassword, Message: msg})
			}
			result.Valid = len(result.Errors) == 0
			if err := result.Err(); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}

			deps, err := rt.connect(ctx)
			if err != nil {
				return err
			}
			if err := deps.auth.ResetPassword(ctx, token, password); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Password reset successfully, you can now sign in\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Reset token from the email")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password confirmation (defaults to --password)")
	return cmd
}

func fieldError(field, msg string) error {
	return validation.Result{Errors: []validation.FieldError{{Field: field, Message: msg}}}.Err()
}

func describeUser(u models.User) string {
	if u.DisplayName != "" && u.DisplayName != u.Username {
		return u.Username + " (" + u.DisplayName + ")"
	}
	return u.Username
}
