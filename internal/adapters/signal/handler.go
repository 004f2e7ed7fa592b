package signal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimsug/mtg-signal-bot/internal/core"
	"github.com/jimsug/mtg-signal-bot/internal/formatter"
	"github.com/jimsug/mtg-signal-bot/internal/parser"
	"go.uber.org/zap"
)

// ImageFetcher downloads card images for attachments
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// deleteEmojis are the reactions that ask the bot to retract one of its
// own messages
var deleteEmojis = map[string]struct{}{
	"\U0001f5d1\ufe0f": {}, // wastebasket with variation selector
	"\U0001f5d1":       {}, // wastebasket
	"\u274c":           {}, // cross mark
}

// MessageHandler responds to [[Card Name]] lookups in messages. Cards
// within one message are processed in source order with a pacing delay
// between them; one failing card never aborts the rest.
type MessageHandler struct {
	service          *core.LookupService
	client           *Client
	images           ImageFetcher
	betweenCardDelay time.Duration
	logger           *zap.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(
	service *core.LookupService,
	client *Client,
	images ImageFetcher,
	betweenCardDelay time.Duration,
	logger *zap.Logger,
) *MessageHandler {
	return &MessageHandler{
		service:          service,
		client:           client,
		images:           images,
		betweenCardDelay: betweenCardDelay,
		logger:           logger,
	}
}

// Handle processes one inbound envelope
func (h *MessageHandler) Handle(ctx context.Context, env Envelope) {
	if env.Reaction != nil {
		h.handleReaction(ctx, env)
		return
	}

	queries := parser.ParseQueries(env.Message)
	if len(queries) == 0 {
		return
	}

	dest := env.ReplyTo()
	for i, q := range queries {
		if i > 0 {
			time.Sleep(h.betweenCardDelay)
		}

		err := h.handleQuery(ctx, env, dest, q)
		if err == nil {
			continue
		}
		if errors.Is(err, core.ErrUserBanned) {
			// Banned users get no response at all
			return
		}

		var resolveErr *core.ResolveError
		if errors.As(err, &resolveErr) {
			h.logger.Warn("Card API error for query",
				zap.String("query", q.Raw), zap.Error(resolveErr))
			h.reply(ctx, dest, fmt.Sprintf("Could not find card '%s': %s", q.Name, resolveErr.Details))
		} else {
			h.logger.Error("Unexpected error for query",
				zap.String("query", q.Raw), zap.Error(err))
			h.reply(ctx, dest, fmt.Sprintf("Something went wrong looking up '%s'.", q.Name))
		}
	}
}

// handleReaction deletes a bot-sent message when a user reacts to it
// with a delete emoji. Reactions to other users' messages, reaction
// removals and unrelated emoji are ignored.
func (h *MessageHandler) handleReaction(ctx context.Context, env Envelope) {
	r := env.Reaction
	if r.IsRemove || r.TargetAuthor != h.client.phoneNumber {
		return
	}
	if _, ok := deleteEmojis[r.Emoji]; !ok {
		return
	}

	h.logger.Info("Deleting message on reaction",
		zap.String("user_id", env.SourceUUID),
		zap.Int64("target_timestamp", r.TargetSentTimestamp))
	if err := h.client.DeleteMessage(ctx, env.ReplyTo(), r.TargetSentTimestamp); err != nil {
		h.logger.Error("Failed to delete message", zap.Error(err))
	}
}

func (h *MessageHandler) handleQuery(ctx context.Context, env Envelope, dest string, q core.CardQuery) error {
	payload, err := h.service.Lookup(ctx, env.SourceUUID, env.SourceNumber, q)
	if err != nil {
		return err
	}

	card, err := formatter.ParseCard(payload)
	if err != nil {
		return err
	}

	var text, imageURL string
	switch q.Flag {
	case core.FlagImage:
		text, imageURL = formatter.Image(card)
	case core.FlagRulings:
		rulingsPayload, err := h.service.Rulings(ctx, card.ID)
		if err != nil {
			return err
		}
		rulings, err := formatter.ParseRulings(rulingsPayload)
		if err != nil {
			return err
		}
		text = formatter.Rulings(card, rulings)
	case core.FlagLegality:
		text = formatter.Legality(card)
	case core.FlagPrice:
		text = formatter.Price(card)
	default:
		text, imageURL = formatter.Default(card)
	}

	if imageURL != "" {
		h.sendWithImage(ctx, dest, text, imageURL)
	} else {
		h.reply(ctx, dest, text)
	}
	return nil
}

// sendWithImage attaches the card image, falling back to text only when
// the image cannot be fetched or attached
func (h *MessageHandler) sendWithImage(ctx context.Context, dest, text, imageURL string) {
	image, err := h.images.FetchImage(ctx, imageURL)
	if err != nil {
		h.logger.Warn("Failed to fetch card image", zap.String("url", imageURL), zap.Error(err))
		h.reply(ctx, dest, text)
		return
	}
	if err := h.client.SendWithAttachment(ctx, dest, text, image); err != nil {
		h.logger.Warn("Failed to send image attachment", zap.Error(err))
		h.reply(ctx, dest, text)
	}
}

func (h *MessageHandler) reply(ctx context.Context, dest, text string) {
	if err := h.client.Send(ctx, dest, text); err != nil {
		h.logger.Error("Failed to send reply", zap.Error(err))
	}
}
