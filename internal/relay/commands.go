package relay

import (
	"context"
	"errors"
	"time"

	"relaybot/internal/transport/telegram/router"
)

// broadcastTimeout bounds handlers that fan out to every destination.
const broadcastTimeout = 5 * time.Minute

const unauthorizedButton = "🚫 You are not authorized to moderate this message."

// Commands returns the operator directives for the router.
func (s *Service) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "set",
			Aliases:     []string{"set_staging", "set-staging"},
			Description: "set the staging chat",
			Usage:       "/set <chat_id>",
			Handle: func(ctx context.Context, req *router.Request) error {
				return replyResult(ctx, req)(s.SetStaging(req.FromID, req.Args))
			},
		},
		{
			Name:        "add",
			Aliases:     []string{"add_destination", "add-destination"},
			Description: "add a destination chat",
			Usage:       "/add <chat_id>",
			Handle: func(ctx context.Context, req *router.Request) error {
				return replyResult(ctx, req)(s.AddDestination(req.FromID, req.Args))
			},
		},
		{
			Name:        "allow",
			Aliases:     []string{"approve"},
			Description: "approve the replied-to message",
			Usage:       "/allow (reply to a staged message)",
			Timeout:     broadcastTimeout,
			Handle: func(ctx context.Context, req *router.Request) error {
				rep, err := s.ApproveReply(ctx, req.FromID, req.Chat.ChatID, req.ReplyToID)
				if err != nil {
					_ = req.Reply(ctx, Notice(err))
					return err
				}
				return req.Reply(ctx, ForwardNotice(rep))
			},
		},
		{
			Name:        "status",
			Description: "show staging chat, destinations and pending count",
			Usage:       "/status",
			Handle: func(ctx context.Context, req *router.Request) error {
				return replyResult(ctx, req)(s.Status(req.FromID))
			},
		},
	}
}

// Callbacks returns the inline-button routes for staged renderings.
func (s *Service) Callbacks() []router.CallbackRoute {
	approve := func(ctx context.Context, req *router.Request, payload string) error {
		key := Key{ChatID: req.Chat.ChatID, MessageID: req.MessageID}
		rep, err := s.Approve(ctx, req.FromID, key, payload)
		switch {
		case errors.Is(err, ErrUnauthorized):
			_ = req.Answer(ctx, unauthorizedButton)
			return err
		case err != nil:
			_ = req.Answer(ctx, "")
			_ = req.Reply(ctx, Notice(err))
			return err
		}
		_ = req.Answer(ctx, "Forwarded")
		return req.Reply(ctx, ForwardNotice(rep))
	}
	return []router.CallbackRoute{
		{Action: ActionApprove, Description: "approve a staged message", Timeout: broadcastTimeout, Handle: approve},
		{Action: ActionAllow, Description: "approve a staged message", Timeout: broadcastTimeout, Handle: approve},
		{
			Action:      ActionReject,
			Description: "reject a staged message",
			Handle: func(ctx context.Context, req *router.Request, _ string) error {
				key := Key{ChatID: req.Chat.ChatID, MessageID: req.MessageID}
				if err := s.Reject(ctx, req.FromID, key); err != nil {
					_ = req.Answer(ctx, unauthorizedButton)
					return err
				}
				_ = req.Answer(ctx, "Rejected")
				return req.Reply(ctx, "❌ Message rejected.")
			},
		},
	}
}

// TextHandler returns the router handler for plain (non-command) text.
func (s *Service) TextHandler() router.HandlerFunc {
	return func(ctx context.Context, req *router.Request) error {
		_, err := s.Intake(ctx, Inbound{
			ChatID:    req.Chat.ChatID,
			MessageID: req.MessageID,
			FromID:    req.FromID,
			Text:      req.Text,
		})
		if err != nil {
			_ = req.Reply(ctx, Notice(err))
		}
		return err
	}
}

func replyResult(ctx context.Context, req *router.Request) func(string, error) error {
	return func(text string, err error) error {
		if err != nil {
			_ = req.Reply(ctx, Notice(err))
			return err
		}
		return req.Reply(ctx, text)
	}
}
