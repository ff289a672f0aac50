// Package manifest defines the image specification: a package manager and
// an ordered list of typed build instructions.
//
// Instructions form a closed set of kinds. Each kind is a struct
// implementing [Instruction]; consumers dispatch with a type switch. Spec
// files (YAML or JSON) name each instruction and give it keyword
// arguments whose shape varies by kind (a bare list of packages for
// install, a mapping for miniconda, a plain string for from_). [Parse]
// normalizes every accepted shape into the kind's fixed record and rejects
// the rest, so nothing downstream deals with loosely typed input.
//
// [Validate] checks the structural invariants that must hold before
// rendering: the first instruction selects a base image, copy sources
// exist in the build context, label descriptors are well formed, and so on.
// It fails on the first violation with a [ValidationError] carrying the
// instruction index and field.
//
// Example usage:
//
//	spec, err := manifest.Load("image.yaml")
//	if err != nil {
//	    return err
//	}
//
//	lookup := manifest.FSLookup{FS: os.DirFS(".")}
//	if err := manifest.Validate(spec, lookup); err != nil {
//	    return err
//	}
package manifest
