package notice

import (
	"context"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"example.com/matchwatch/internal/consumer"
)

// AppearanceSource resolves a player's emblem image.
type AppearanceSource interface {
	FetchAppearance(ctx context.Context, gamertag string) (string, error)
}

// Sender delivers a rendered embed.
type Sender interface {
	Send(ctx context.Context, embed Embed) error
}

// Handler renders consumed match events and sends them on.
type Handler struct {
	appearance AppearanceSource
	sender     Sender
	logger     *zap.Logger
}

// NewHandler constructs a Handler. appearance may be nil, in which case embeds carry no emblem.
func NewHandler(appearance AppearanceSource, sender Sender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{appearance: appearance, sender: sender, logger: logger}
}

// Handle implements consumer.Handler.
func (h *Handler) Handle(ctx context.Context, msg consumer.Message) error {
	match := msg.Event.Match
	if match.Gamertag == "" {
		match.Gamertag = msg.Event.Gamertag
	}
	if match.MatchID == "" {
		match.MatchID = msg.Event.MatchID
	}

	var emblem string
	if h.appearance != nil {
		url, err := h.appearance.FetchAppearance(ctx, match.Gamertag)
		if err != nil {
			// A missing emblem only drops the thumbnail.
			h.logger.Warn("appearance lookup failed", zap.String("gamertag", match.Gamertag), zap.Error(err))
		} else {
			emblem = url
		}
	}

	if err := h.sender.Send(ctx, Render(match, emblem)); err != nil {
		return errors.Annotatef(err, "notifying match %s", match.MatchID)
	}
	h.logger.Info("match notice sent", zap.String("gamertag", match.Gamertag), zap.String("match_id", match.MatchID))
	return nil
}
