// Package protocol defines the wire format between the imgspec CLI and the
// imgspec daemon.
//
// Every message is a single JSON envelope terminated by a newline. The
// envelope names a command and carries a command-specific payload, which
// is decoded lazily with [DecodePayload] once the command is known.
//
// Example usage:
//
//	data, err := protocol.Encode(protocol.CmdRender, &protocol.RenderRequest{
//	    Spec:   "pipeline.yaml",
//	    Output: "build",
//	})
//	if err != nil {
//	    return err
//	}
//	conn.Write(append(data, '\n'))
package protocol
