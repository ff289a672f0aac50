package server

import (
	"errors"
	"io/fs"

	"github.com/containerd/errdefs"

	"github.com/cruciblehq/imgspec/internal/protocol"
)

var (
	ErrServer         = errors.New("server error")
	ErrUnknownCommand = errors.New("unknown command")
)

// Maps an error onto the kind reported to clients.
func classify(err error) protocol.ErrorKind {
	switch {
	case errors.Is(err, fs.ErrNotExist), errdefs.IsNotFound(err):
		return protocol.ErrorNotFound
	case errdefs.IsInvalidArgument(err),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, protocol.ErrMalformedMessage),
		errors.Is(err, protocol.ErrMissingPayload):
		return protocol.ErrorInvalid
	default:
		return protocol.ErrorInternal
	}
}
