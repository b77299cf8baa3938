package connect

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type DisconnectPlatformMessage struct {
	UserID   string   `json:"user_id"`
	Platform Platform `json:"platform"`
}

func (m DisconnectPlatformMessage) Type() string { return "platform.disconnect" }

// DisconnectPlatformHandler removes a user's stored grant for one platform.
type DisconnectPlatformHandler struct {
	tokens TokenStore
}

func NewDisconnectPlatformHandler(tokens TokenStore) *DisconnectPlatformHandler {
	return &DisconnectPlatformHandler{tokens: tokens}
}

func (h *DisconnectPlatformHandler) Execute(ctx context.Context, event DisconnectPlatformMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during platform disconnect",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DisconnectPlatformHandler) execute(ctx context.Context, event DisconnectPlatformMessage) error {
	if event.UserID == "" {
		return goerrors.New("missing user id", goerrors.CategoryValidation)
	}
	if !event.Platform.Valid() {
		return goerrors.New("unknown platform", goerrors.CategoryBadInput).
			WithTextCode(TextCodeUnknownPlatform)
	}

	if err := h.tokens.DeleteByUserAndPlatform(ctx, event.UserID, event.Platform); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "could not delete platform grant")
	}

	return nil
}
