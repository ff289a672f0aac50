package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/cruciblehq/imgspec/internal"
	"github.com/cruciblehq/imgspec/internal/build"
	"github.com/cruciblehq/imgspec/internal/paths"
)

// Represents the root command for imgspec.
var RootCmd struct {
	Quiet    bool        `short:"q" help:"Suppress informational output."`
	Verbose  bool        `short:"v" help:"Enable verbose output."`
	Debug    bool        `short:"d" help:"Enable debug output."`
	Socket   string      `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Render   RenderCmd   `cmd:"" help:"Render spec files into Dockerfiles."`
	Validate ValidateCmd `cmd:"" help:"Check spec files without rendering."`
	Start    StartCmd    `cmd:"" help:"Start the render daemon."`
	Status   StatusCmd   `cmd:"" help:"Show the status of a running daemon."`
	Stop     StopCmd     `cmd:"" help:"Ask a running daemon to shut down."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
//
// Flag defaults are read from the YAML configuration file when it exists;
// flags given on the command line take precedence.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Generates Dockerfiles for pipeline images from declarative spec files."),
		kong.UsageOnError(),
		kong.Configuration(yamlConfig, paths.ConfigFile()),
		kong.Vars{
			"version":      internal.VersionString(),
			"conda_dir":    build.DefaultCondaDir,
			"conda_arch":   build.DefaultArch,
			"commands_dir": build.DefaultCommandsDir,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Render knobs shared by the commands that render.
type RenderFlags struct {
	MergeRuns    bool   `help:"Join adjacent run instructions into one RUN."`
	AnnotateBase bool   `help:"Label images with their base image reference."`
	CondaDir     string `help:"Miniconda install prefix inside the image." default:"${conda_dir}" placeholder:"DIR"`
	CondaArch    string `help:"Miniconda installer architecture." default:"${conda_arch}" placeholder:"ARCH"`
	CommandsDir  string `help:"Directory for command descriptor files, relative to the build directory." default:"${commands_dir}" placeholder:"DIR"`
}

// Returns the engine options selected by the flags.
func (f RenderFlags) options() build.Options {
	return build.Options{
		CondaDir:     f.CondaDir,
		Arch:         f.CondaArch,
		MergeRuns:    f.MergeRuns,
		AnnotateBase: f.AnnotateBase,
		CommandsDir:  f.CommandsDir,
	}
}
