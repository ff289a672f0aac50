package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	req := &RenderRequest{
		Spec:    "/work/pipeline.yaml",
		Output:  "/work/build",
		Check:   true,
		Options: RenderOptions{MergeRuns: true},
	}

	data, err := Encode(CmdRender, req)
	require.NoError(t, err)

	env, payload, err := Decode(append(data, '\n'))
	require.NoError(t, err)
	if env.Command != CmdRender {
		t.Fatalf("command = %q, want %q", env.Command, CmdRender)
	}

	got, err := DecodePayload[RenderRequest](payload)
	require.NoError(t, err)
	if diff := cmp.Diff(req, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	data, err := Encode(CmdOK, nil)
	require.NoError(t, err)
	if string(data) != `{"command":"ok"}` {
		t.Fatalf("Encode() = %s", data)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", "render please"},
		{"missing command", `{"payload":{}}`},
		{"wrong type", `{"command":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.line))
			if !errors.Is(err, ErrMalformedMessage) {
				t.Fatalf("error = %v, want ErrMalformedMessage", err)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	if _, err := DecodePayload[ValidateRequest](nil); !errors.Is(err, ErrMissingPayload) {
		t.Fatalf("nil payload error = %v, want ErrMissingPayload", err)
	}
	if _, err := DecodePayload[ValidateRequest]([]byte("null")); !errors.Is(err, ErrMissingPayload) {
		t.Fatalf("null payload error = %v, want ErrMissingPayload", err)
	}
	if _, err := DecodePayload[ValidateRequest]([]byte(`{"spec":"a","extra":1}`)); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("unknown field error = %v, want ErrMalformedMessage", err)
	}
}
