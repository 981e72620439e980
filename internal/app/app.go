package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/huddle/client/internal/apierrors"
	"github.com/huddle/client/internal/config"
	"github.com/huddle/client/internal/logging"
	"github.com/huddle/client/internal/telemetry"
)

// ErrNotSignedIn is returned by commands that need a session when none is stored.
var ErrNotSignedIn = errors.New("not signed in, run `huddle login` first")

// Run executes the huddle command line with args. Command output goes to
// stdout; logs and field errors go to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rt := &runtime{out: stdout, errOut: stderr}
	defer rt.close()

	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// runtime carries what every command shares. The client side is built on
// first use so server commands never touch the token store.
type runtime struct {
	out    io.Writer
	errOut io.Writer

	cfg      config.Config
	logger   *slog.Logger
	shutdown telemetry.Shutdown
	client   *clientDeps
}

func newRootCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "huddle",
		Short:         "Command line client for the Huddle chat service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := rt.setup(commandContext(cmd))
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.AddCommand(
		newRegisterCommand(rt),
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newForgotPasswordCommand(rt),
		newResetPasswordCommand(rt),
		newProfileCommand(rt),
		newUsersCommand(rt),
		newFriendsCommand(rt),
		newChatsCommand(rt),
		newDevServerCommand(rt),
		newMigrateCommand(rt),
	)
	return cmd
}

func (rt *runtime) setup(ctx context.Context) (context.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, err
	}
	rt.cfg = cfg
	rt.logger = logging.New(cfg.LogLevel, cfg.LogFormat, rt.errOut)

	shutdown, err := telemetry.Init(ctx, "huddle", cfg.OTLPEndpoint)
	if err != nil {
		return ctx, err
	}
	rt.shutdown = shutdown

	return logging.WithLogger(ctx, rt.logger), nil
}

func (rt *runtime) close() {
	if rt.client != nil {
		rt.client.close()
		rt.client = nil
	}
	if rt.shutdown != nil {
		if err := rt.shutdown(context.Background()); err != nil && rt.logger != nil {
			rt.logger.Warn("telemetry shutdown failed", "error", err)
		}
		rt.shutdown = nil
	}
}

// report prints the field errors of err and returns the general message as
// the command error.
func (rt *runtime) report(ctx context.Context, err error, flow apierrors.Flow) error {
	result := apierrors.FromError(ctx, err, flow)

	fields := make([]string, 0, len(result.FieldErrors))
	for field := range result.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(rt.errOut, "  %s: %s\n", field, result.FieldErrors[field])
	}

	switch {
	case result.GeneralError == apierrors.MessageUnexpected:
		return err
	case result.HasGeneral():
		return errors.New(result.GeneralError)
	case len(fields) > 0:
		return errors.New("please correct the fields above")
	default:
		return err
	}
}

func (rt *runtime) printf(format string, args ...any) {
	fmt.Fprintf(rt.out, format, args...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func groupCommand(use, short string, children ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(children...)
	return cmd
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
