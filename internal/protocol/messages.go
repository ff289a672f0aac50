package protocol

// Render knobs carried by requests; zero values take the engine defaults.
type RenderOptions struct {
	CondaDir     string `json:"conda_dir,omitempty"`
	Arch         string `json:"arch,omitempty"`
	MergeRuns    bool   `json:"merge_runs,omitempty"`
	AnnotateBase bool   `json:"annotate_base,omitempty"`
	CommandsDir  string `json:"commands_dir,omitempty"`
}

// Payload of [CmdRender].
type RenderRequest struct {
	Spec    string        `json:"spec"`              // Path to the spec file on the daemon host.
	Context string        `json:"context,omitempty"` // Build context; defaults to the spec's directory.
	Output  string        `json:"output,omitempty"`  // Build directory; empty renders without writing.
	Check   bool          `json:"check,omitempty"`   // Compare with the build directory instead of writing.
	Options RenderOptions `json:"options"`
}

// Response payload of [CmdRender].
type RenderResult struct {
	Dockerfile string   `json:"dockerfile"`      // Rendered script text.
	Digest     string   `json:"digest"`          // Digest of the script text.
	Files      []string `json:"files"`           // Files written next to the Dockerfile, relative to the build directory.
	Written    bool     `json:"written"`         // Whether the build directory was updated.
	Stale      []string `json:"stale,omitempty"` // Out-of-date paths when checking.
}

// Payload of [CmdValidate].
type ValidateRequest struct {
	Spec    string `json:"spec"`
	Context string `json:"context,omitempty"`
}

// Response payload of [CmdValidate].
type ValidateResult struct {
	Instructions int `json:"instructions"` // Number of instructions in the spec.
	Steps        int `json:"steps"`        // Number of steps after macro expansion.
}

// Response payload of [CmdStatus].
type StatusResult struct {
	Running bool     `json:"running"`
	Version string   `json:"version"`
	Pid     int      `json:"pid"`
	Uptime  string   `json:"uptime"`
	Renders int      `json:"renders"`         // Successful render commands served.
	Modes   []string `json:"modes,omitempty"` // Enabled output modes, e.g. "debug".
}

// Classifies an [ErrorResult].
type ErrorKind string

const (
	ErrorInvalid  ErrorKind = "invalid"   // The request or its spec is at fault.
	ErrorNotFound ErrorKind = "not-found" // A referenced file does not exist.
	ErrorInternal ErrorKind = "internal"  // Anything else.
)

// Response payload of [CmdError].
type ErrorResult struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind,omitempty"`
}
