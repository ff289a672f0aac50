package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cruciblehq/imgspec/internal/protocol"
)

// Represents the 'imgspec status' command.
type StatusCmd struct{}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	body, err := call(ctx, protocol.CmdStatus, nil)
	if err != nil {
		return err
	}

	status, err := protocol.DecodePayload[protocol.StatusResult](body)
	if err != nil {
		return err
	}

	modes := "none"
	if len(status.Modes) > 0 {
		modes = strings.Join(status.Modes, ", ")
	}

	fmt.Printf("version: %s\npid:     %d\nuptime:  %s\nrenders: %d\nmodes:   %s\n", status.Version, status.Pid, status.Uptime, status.Renders, modes)
	return nil
}

// Represents the 'imgspec stop' command.
type StopCmd struct{}

// Executes the stop command.
func (c *StopCmd) Run(ctx context.Context) error {
	if _, err := call(ctx, protocol.CmdShutdown, nil); err != nil {
		return err
	}
	slog.Info("daemon is shutting down")
	return nil
}
