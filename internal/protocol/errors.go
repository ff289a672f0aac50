package protocol

import "errors"

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrMissingPayload   = errors.New("missing payload")
)
