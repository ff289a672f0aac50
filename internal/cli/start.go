package cli

import (
	"context"
	"log/slog"

	"github.com/cruciblehq/imgspec/internal/server"
)

// Represents the 'imgspec start' command.
type StartCmd struct {
	RenderFlags `embed:""`
}

// Executes the start command.
//
// Starts the daemon on a Unix domain socket and blocks until the context is
// cancelled (e.g. via SIGINT or SIGTERM) or a client requests shutdown.
// The render flags become the daemon's defaults for every request.
func (c *StartCmd) Run(ctx context.Context) error {
	srv := server.New(server.Config{
		SocketPath: RootCmd.Socket,
		Options:    c.options(),
	})

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("imgspec daemon is running")

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-srv.Done():
	}

	return srv.Stop()
}
