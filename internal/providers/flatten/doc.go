// Package flatten drives the native compositor that renders a session's
// images with their transforms applied.
//
// The compositor is an external command:
//
//	<cmd> flatten --zoom Z   stdin: reduced text-form JSON, stdout: JSON array of base64 PNGs
//	<cmd> compile --zoom Z   stdin: reduced text-form JSON, stdout: zip archive bytes
//
// A non-zero exit status is reported as ErrCommand with the command's stderr.
package flatten
