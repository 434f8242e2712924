package transport

import (
	"context"
	"errors"
	"net"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vezgo/core"
)

func transportError(message string, textCode string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// transportWrapError classifies failures where no response was received.
// A deadline on the request context, or a net.Error timeout, is a Timeout;
// anything else is a Transport failure.
func transportWrapError(ctx context.Context, source error, message string, metadata map[string]any) error {
	textCode := core.ErrorTransport
	if timedOut(ctx, source) {
		textCode = core.ErrorTimeout
		message = "transport: request timed out"
	}
	if source == nil {
		return transportError(message, textCode, metadata)
	}
	err := goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func timedOut(ctx context.Context, err error) bool {
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
