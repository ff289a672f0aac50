// Package build turns a validated image specification into Dockerfile text.
//
// Generation runs in three pure stages. The validator (manifest.Validate)
// checks the spec against the build context. The expander rewrites macro
// instructions such as miniconda into primitive ones, tracking which conda
// environments exist as it walks the list. The renderer maps each primitive
// instruction to one Dockerfile stanza, delegating system package installs
// to the spec's package-manager adapter and label values carrying command
// descriptors to the descriptor encoder.
//
// The rendered text is re-parsed with the buildkit Dockerfile parser before
// it is returned, so a script that reaches the caller always parses back
// into the same number of stanzas.
//
// Generate bundles the stages with the descriptor side files written next
// to the Dockerfile, and Write stores the result in a build directory
// without leaving partial output behind.
//
// Example usage:
//
//	spec, err := manifest.Load("pipeline.yaml")
//	if err != nil {
//	    return err
//	}
//	out, err := build.Generate(spec, manifest.FSLookup{FS: os.DirFS(dir)}, build.Options{})
//	if err != nil {
//	    return err
//	}
//	return build.Write(out, dir)
package build
