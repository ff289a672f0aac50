package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/cruciblehq/imgspec/internal/paths"
	"github.com/cruciblehq/imgspec/internal/protocol"
)

// Upper bound for one exchange with the daemon.
const callTimeout = 30 * time.Second

// Sends one command to the daemon and returns the payload of its response.
//
// An error response is returned as [ErrDaemon] carrying the daemon's
// message.
func call(ctx context.Context, cmd protocol.Command, payload any) (json.RawMessage, error) {
	socket := RootCmd.Socket
	if socket == "" {
		socket = paths.Socket()
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, errors.Wrapf(ErrDaemonUnavailable, "%v", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, errors.Wrapf(ErrDaemonUnavailable, "%v", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, errors.Wrapf(ErrDaemonUnavailable, "%v", err)
	}

	env, body, err := protocol.Decode(line)
	if err != nil {
		return nil, err
	}

	if env.Command == protocol.CmdError {
		result, err := protocol.DecodePayload[protocol.ErrorResult](body)
		if err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(ErrDaemon, "%s (%s)", result.Message, result.Kind)
	}

	return body, nil
}
