package build

// Environment that exists in every conda installation.
const baseEnv = "base"

// Tracks what earlier macros have set up in the image.
//
// State flows linearly through the instruction list. Each miniconda macro
// reads it to decide whether conda must be bootstrapped and which
// environments it may install into, then records its own effects.
type expandState struct {
	condaReady bool            // Conda is bootstrapped or present in the base image.
	envs       map[string]bool // Environments created so far.
}

// Creates a new [expandState] for the start of a spec.
func newExpandState() *expandState {
	return &expandState{envs: make(map[string]bool)}
}

// Reports whether the named environment can be installed into.
func (s *expandState) hasEnv(name string) bool {
	return name == baseEnv || s.envs[name]
}

// Records a created environment.
func (s *expandState) addEnv(name string) {
	s.envs[name] = true
}
