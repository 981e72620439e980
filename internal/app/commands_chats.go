package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/huddle/client/internal/api"
	"github.com/huddle/client/internal/apierrors"
	"github.com/huddle/client/internal/models"
)

func newChatsCommand(rt *runtime) *cobra.Command {
	return groupCommand("chats", "Read and send messages",
		newChatsListCommand(rt),
		newChatsShowCommand(rt),
		newChatsSendCommand(rt),
		newChatsCreateCommand(rt),
	)
}

func newChatsListCommand(rt *runtime) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			board := deps.chatDashboard()
			if _, err := board.Load(ctx); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			for _, conv := range board.Conversations(filter) {
				rt.printf("%s\n", describeConversation(conv))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only show conversations whose name contains this text")
	return cmd
}

func newChatsShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show CONVERSATION_ID",
		Short: "Print the latest messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "conversation id")
			if err != nil {
				return err
			}
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			board := deps.chatDashboard()
			messages, err := board.Select(ctx, id)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			for _, msg := range messages {
				rt.printf("%s\n", describeMessage(msg))
			}
			return nil
		},
	}
}

func newChatsSendCommand(rt *runtime) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "send CONVERSATION_ID MESSAGE...",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "conversation id")
			if err != nil {
				return err
			}
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}
			board := deps.chatDashboard()
			if _, err := board.Select(ctx, id); err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			msg, err := board.Send(ctx, joinArgs(args[1:]), models.MessageType(kind))
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("%s\n", describeMessage(msg))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(models.MessageText), "Message type: text, file or image")
	return cmd
}

func newChatsCreateCommand(rt *runtime) *cobra.Command {
	var (
		name    string
		group   bool
		members []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a direct or group conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := rt.signedIn(ctx)
			if err != nil {
				return err
			}

			req := api.CreateConversationRequest{Name: name, Type: models.ConversationDirect}
			if group {
				req.Type = models.ConversationGroup
			}
			for _, ref := range members {
				id, err := deps.resolveUser(ctx, ref)
				if err != nil {
					return rt.report(ctx, err, apierrors.FlowGeneral)
				}
				req.ParticipantIDs = append(req.ParticipantIDs, id)
			}
			if strings.TrimSpace(req.Name) == "" {
				req.Name = strings.Join(members, ", ")
			}

			conv, err := deps.conversations.Create(ctx, req)
			if err != nil {
				return rt.report(ctx, err, apierrors.FlowGeneral)
			}
			rt.printf("%s\n", describeConversation(conv))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Conversation name (defaults to the member list)")
	cmd.Flags().BoolVar(&group, "group", false, "Create a group conversation")
	cmd.Flags().StringSliceVar(&members, "with", nil, "Usernames or ids to include")
	_ = cmd.MarkFlagRequired("with")
	return cmd
}

func describeConversation(conv models.Conversation) string {
	line := fmt.Sprintf("%d\t%s\t%s", conv.ID, conv.Name, conv.Type)
	if conv.UnreadCount > 0 {
		line += fmt.Sprintf("\t%d unread", conv.UnreadCount)
	}
	if conv.LastMessage != nil {
		line += "\t" + conv.LastMessage.Content
	}
	return line
}

func describeMessage(msg models.Message) string {
	sender := msg.Sender.Username
	if sender == "" {
		sender = fmt.Sprintf("user %d", msg.SenderID)
	}
	stamp := msg.CreatedAt.Local().Format("2006-01-02 15:04")
	if msg.Type != models.MessageText {
		return fmt.Sprintf("[%s] %s: (%s) %s", stamp, sender, msg.Type, msg.Content)
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, sender, msg.Content)
}
