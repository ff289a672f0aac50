// Package descriptor models XNAT container-service command descriptors and
// encodes them as the value of the "org.nrg.commands" image label.
//
// A [Command] describes one runnable pipeline: the image it lives in, the
// command-line template with bracketed replacement tokens ("[PROJECT_ID]"),
// the mounts it expects, its inputs and outputs, and the XNAT wrappers that
// bind those to XNAT objects. Descriptors are validated as first-class
// values and only turned into a string at the encoding boundary.
//
// Encoding is canonical: field order follows the struct declarations, so the
// same descriptors always produce byte-identical label values. Tokens in the
// command line are left intact; substituting them is the execution
// platform's job.
//
// Example usage:
//
//	value, err := descriptor.Encode(cmds)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("LABEL %s=\"%s\"\n", descriptor.LabelKey, value)
//
//	decoded, err := descriptor.Decode(value) // equal to cmds
package descriptor
