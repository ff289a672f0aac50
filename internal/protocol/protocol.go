package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Names a request or response.
type Command string

const (
	CmdRender   Command = "render"   // Generate a Dockerfile from a spec.
	CmdValidate Command = "validate" // Check a spec without rendering.
	CmdStatus   Command = "status"   // Report daemon status.
	CmdShutdown Command = "shutdown" // Stop the daemon.

	CmdOK    Command = "ok"    // Successful response.
	CmdError Command = "error" // Failed response; payload is an [ErrorResult].
)

// Wraps every message on the wire.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encodes a message. A nil payload is omitted.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedMessage, "%v", err)
		}
		env.Payload = data
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedMessage, "%v", err)
	}
	return data, nil
}

// Decodes one message line into its envelope and raw payload.
func Decode(line []byte) (*Envelope, json.RawMessage, error) {
	line = bytes.TrimSpace(line)

	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, nil, errors.Wrapf(ErrMalformedMessage, "%v", err)
	}
	if env.Command == "" {
		return nil, nil, errors.Wrap(ErrMalformedMessage, "missing command")
	}

	return &env, env.Payload, nil
}

// Decodes a payload into the type expected for its command.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, ErrMissingPayload
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	v := new(T)
	if err := dec.Decode(v); err != nil {
		return nil, errors.Wrapf(ErrMalformedMessage, "%v", err)
	}
	return v, nil
}
