package descriptor

// Image label key under which the encoded descriptors are stored.
const LabelKey = "org.nrg.commands"

// XNAT command descriptor.
//
// Field order is part of the encoding and must not change. Slices and maps
// are encoded as-is, so nil encodes as null and empty as an empty
// collection; [Normalize] fills nil collections for descriptors loaded from
// user files.
type Command struct {
	Name               string            `json:"name"`                  // Command name, unique within the image.
	Description        string            `json:"description,omitempty"` // Free-text description.
	Label              string            `json:"label,omitempty"`       // Display label.
	Version            string            `json:"version,omitempty"`     // Version of the wrapped pipeline.
	SchemaVersion      string            `json:"schema-version"`        // Descriptor schema version, 1.x.
	Image              string            `json:"image,omitempty"`       // Image reference the command runs in.
	Index              string            `json:"index,omitempty"`       // Registry hosting the image.
	Type               string            `json:"type,omitempty"`        // Runtime type, normally "docker".
	CommandLine        string            `json:"command-line"`          // Template with [TOKEN] placeholders.
	OverrideEntrypoint bool              `json:"override-entrypoint"`   // Whether the image entrypoint is replaced.
	InfoURL            string            `json:"info-url,omitempty"`    // Documentation URL.
	Mounts             []Mount           `json:"mounts"`                // Directories bound into the container.
	Ports              map[string]string `json:"ports"`                 // Exposed ports.
	Inputs             []Input           `json:"inputs"`                // Values substituted into the command line.
	Outputs            []Output          `json:"outputs"`               // Files collected after the run.
	Xnat               []Wrapper         `json:"xnat"`                  // Bindings to XNAT objects.
}

// Directory bound into the container at run time.
type Mount struct {
	Name     string `json:"name"`
	Writable bool   `json:"writable"`
	Path     string `json:"path"` // Absolute in-image path.
}

// Command input bound to a replacement token.
type Input struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Type           string `json:"type"`
	DefaultValue   any    `json:"default-value,omitempty"` // string, bool, float64 or nil.
	Required       bool   `json:"required"`
	UserSettable   bool   `json:"user-settable"`
	ReplacementKey string `json:"replacement-key,omitempty"` // Token such as "[PROJECT_ID]".
}

// File or directory collected from a mount after the run.
type Output struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Mount       string `json:"mount"`          // Name of a declared mount.
	Path        string `json:"path,omitempty"` // Path relative to the mount.
	Glob        string `json:"glob,omitempty"` // Pattern relative to the mount.
}

// Binds a command to the XNAT objects it runs against.
type Wrapper struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Contexts       []string        `json:"contexts"`
	ExternalInputs []ExternalInput `json:"external-inputs"`
	DerivedInputs  []DerivedInput  `json:"derived-inputs"`
	OutputHandlers []OutputHandler `json:"output-handlers"`
}

type ExternalInput struct {
	Name                         string `json:"name"`
	Description                  string `json:"description,omitempty"`
	Type                         string `json:"type"`
	Source                       string `json:"source,omitempty"`
	DefaultValue                 any    `json:"default-value,omitempty"`
	Required                     bool   `json:"required"`
	ReplacementKey               string `json:"replacement-key,omitempty"`
	Sensitive                    bool   `json:"sensitive,omitempty"`
	ProvidesValueForCommandInput string `json:"provides-value-for-command-input,omitempty"`
	ProvidesFilesForCommandMount string `json:"provides-files-for-command-mount,omitempty"`
	ViaSetupCommand              string `json:"via-setup-command,omitempty"`
	UserSettable                 bool   `json:"user-settable"`
	LoadChildren                 bool   `json:"load-children"`
}

type DerivedInput struct {
	Name                          string `json:"name"`
	Type                          string `json:"type"`
	Required                      bool   `json:"required,omitempty"`
	LoadChildren                  bool   `json:"load-children,omitempty"`
	DerivedFromWrapperInput       string `json:"derived-from-wrapper-input"`
	DerivedFromXnatObjectProperty string `json:"derived-from-xnat-object-property,omitempty"`
	ProvidesValueForCommandInput  string `json:"provides-value-for-command-input,omitempty"`
	UserSettable                  bool   `json:"user-settable"`
}

type OutputHandler struct {
	Name                 string `json:"name"`
	AcceptsCommandOutput string `json:"accepts-command-output"`
	ViaWrapupCommand     string `json:"via-wrapup-command,omitempty"`
	AsAChildOf           string `json:"as-a-child-of"`
	Type                 string `json:"type"`
	Label                string `json:"label,omitempty"`
	Format               string `json:"format,omitempty"`
}

// Replaces nil collections with empty ones so that they encode as [] and {}
// rather than null. The receiver is modified in place.
func (c *Command) Normalize() {
	if c.Mounts == nil {
		c.Mounts = []Mount{}
	}
	if c.Ports == nil {
		c.Ports = map[string]string{}
	}
	if c.Inputs == nil {
		c.Inputs = []Input{}
	}
	if c.Outputs == nil {
		c.Outputs = []Output{}
	}
	if c.Xnat == nil {
		c.Xnat = []Wrapper{}
	}
	for i := range c.Xnat {
		w := &c.Xnat[i]
		if w.Contexts == nil {
			w.Contexts = []string{}
		}
		if w.ExternalInputs == nil {
			w.ExternalInputs = []ExternalInput{}
		}
		if w.DerivedInputs == nil {
			w.DerivedInputs = []DerivedInput{}
		}
		if w.OutputHandlers == nil {
			w.OutputHandlers = []OutputHandler{}
		}
	}
}
