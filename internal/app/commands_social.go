package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/apierrors"
	"github.com/huddle/client/internal/models"
)

func newProfileCommand(rt *runtime) *cobra.Command {
	return groupCommand("profile", "Edit your profile",
		newProfileUpdateCommand(rt),
		newProfileAvatarCommand(rt),
	)
}

func newProfileUpdateCommand(rt *runtime) *cobra.Command {
	var (
		displayName string
		bio         string
		public      bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change display name, bio or visibility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var req api.UpdateUserRequest
			if cmd.Flags().Changed("display-name") {
				req.DisplayName = &displayName
			}
			if cmd.Flags().Changed("bio") {
				req.Bio = &bio
			}
			if cmd.Flags().Changed("public") {
				req.IsPublic = &public
			}
			if req.Empty() {
				return errors.New("nothing to update, pass --display-name, --bio or --public")
			}

			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			if _, err := deps.users.UpdateMe(ctx, req); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			user, err := deps.session.RefreshUser(ctx)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Profile updated: %s\n", describeUser(*user))
			return nil
		},
	}

	cmd.Flags().StringVar(&displayName, "display-name", "", "New display name")
	cmd.Flags().StringVar(&bio, "bio", "", "New bio")
	cmd.Flags().BoolVar(&public, "public", true, "Whether the profile is public")
	return cmd
}

func newProfileAvatarCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "avatar FILE",
		Short: "Upload a new avatar image (jpeg, png or gif)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			service, err := deps.profileService(ctx, rt.cfg.Avatar)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open avatar: %w", err)
			}
			defer f.Close()

			user, err := service.SetAvatar(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Avatar updated: %s\n", user.Avatar)
			return nil
		},
	}
}

func newUsersCommand(rt *runtime) *cobra.Command {
	return groupCommand("users", "Find other users",
		newUsersSearchCommand(rt),
		newUsersGetCommand(rt),
	)
}

func newUsersSearchCommand(rt *runtime) *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search users by username or display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			result, err := deps.users.Search(ctx, joinArgs(args), page, pageSize)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			for _, u := range result.Users {
				rt.printf("%d\t%s\n", u.ID, describeUser(u))
			}
			rt.printf("page %d of %d, %d total\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Result page (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Results per page")
	return cmd
}

func newUsersGetCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get USERNAME|ID",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}

			var user models.User
			if id, parseErr := strconv.ParseUint(args[0], 10, 64); parseErr == nil {
				user, err = deps.users.ByID(ctx, uint(id))
			} else {
				user, err = deps.directory.ByUsername(ctx, args[0])
			}
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("%d\t%s\n", user.ID, describeUser(user))
			if user.Bio != "" {
				rt.printf("bio: %s\n", user.Bio)
			}
			return nil
		},
	}
}

func newFriendsCommand(rt *runtime) *cobra.Command {
	return groupCommand("friends", "Manage friends, requests and blocks",
		newFriendsListCommand(rt),
		newFriendsRequestsCommand(rt),
		newFriendsSentCommand(rt),
		newFriendsAddCommand(rt),
		newFriendsRespondCommand(rt),
		newFriendsCancelCommand(rt),
		newFriendsRemoveCommand(rt),
		newFriendsCheckCommand(rt),
		newFriendsBlockCommand(rt),
		newFriendsUnblockCommand(rt),
		newFriendsBlockedCommand(rt),
	)
}

func newFriendsListCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			list, err := deps.friends.List(ctx)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			for _, f := range list.Friends {
				rt.printf("%d\t%s\n", f.Friend.ID, describeUser(f.Friend))
			}
			rt.printf("%d friends\n", list.Total)
			return nil
		},
	}
}

func newFriendsRequestsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "List pending requests sent to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			list, err := deps.friends.Incoming(ctx)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			for _, req := range list.Requests {
				rt.printf("%d\tfrom %s\t%s\n", req.ID, describeUser(req.Sender), req.Message)
			}
			rt.printf("%d pending\n", list.Total)
			return nil
		},
	}
}

func newFriendsSentCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sent",
		Short: "List pending requests you sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			list, err := deps.friends.Sent(ctx)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			for _, req := range list.Requests {
				rt.printf("%d\tto %s\t%s\n", req.ID, describeUser(req.Receiver), req.Status)
			}
			rt.printf("%d pending\n", list.Total)
			return nil
		},
	}
}

func newFriendsAddCommand(rt *runtime) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "add USERNAME|ID",
		Short: "Send a friend request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			receiverID, err := deps.resolveUser(ctx, args[0])
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			req, err := deps.friends.SendRequest(ctx, receiverID, message)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Friend request %d sent to %s\n", req.ID, describeUser(req.Receiver))
			return nil
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "Optional note")
	return cmd
}

func newFriendsRespondCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "respond REQUEST_ID accept|reject",
		Short:     "Accept or reject a request sent to you",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{api.ActionAccept, api.ActionReject},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			requestID, err := parseID(args[0], "request id")
			if err != nil {
				return err
			}
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			if err := deps.friends.Respond(ctx, requestID, args[1]); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Friend request %d %sed\n", requestID, args[1])
			return nil
		},
	}
}

func newFriendsCancelCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel REQUEST_ID",
		Short: "Withdraw a pending request you sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			requestID, err := parseID(args[0], "request id")
			if err != nil {
				return err
			}
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}

			me := deps.session.User()
			if sent, err := deps.friends.Sent(ctx); err == nil && me != nil {
				for _, req := range sent.Requests {
					if req.ID == requestID && !req.CanCancel(me.ID) {
						return fmt.Errorf("friend request %d cannot be cancelled", requestID)
					}
				}
			}

			if err := deps.friends.Cancel(ctx, requestID); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Friend request %d cancelled\n", requestID)
			return nil
		},
	}
}

func newFriendsRemoveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "remove USERNAME|ID",
		Short: "End a friendship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			friendID, err := deps.resolveUser(ctx, args[0])
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			if err := deps.friends.Remove(ctx, friendID); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Removed %s from friends\n", args[0])
			return nil
		},
	}
}

func newFriendsCheckCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "check USERNAME|ID",
		Short: "Check whether a user is your friend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			userID, err := deps.resolveUser(ctx, args[0])
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			friends, err := deps.friends.Check(ctx, userID)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("friends: %t\n", friends)
			return nil
		},
	}
}

func newFriendsBlockCommand(rt *runtime) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "block USERNAME|ID",
		Short: "Block a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			userID, err := deps.resolveUser(ctx, args[0])
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			blocked, err := deps.friends.Block(ctx, userID, reason)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Blocked %s\n", describeUser(blocked.Blocked))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Optional reason")
	return cmd
}

func newFriendsUnblockCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "unblock USERNAME|ID",
		Short: "Remove a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			userID, err := deps.resolveUser(ctx, args[0])
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			if err := deps.friends.Unblock(ctx, userID); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("Unblocked %s\n", args[0])
			return nil
		},
	}
}

func newFriendsBlockedCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "blocked",
		Short: "List users you blocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			list, err := deps.friends.Blocked(ctx)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			for _, b := range list.BlockedUsers {
				rt.printf("%d\t%s\t%s\n", b.Blocked.ID, describeUser(b.Blocked), b.Reason)
			}
			rt.printf("%d blocked\n", list.Total)
			return nil
		},
	}
}
