// Package pandoc drives the LaTeX to EPUB conversion.
//
// The client turns the converter section of the configuration into a pandoc
// argument list, writes the book metadata as a YAML metadata file and checks
// that pandoc actually produced the requested EPUB. Invocation, output
// forwarding and stderr capture go through toolexec so failures carry the
// tool's exit code and last stderr lines.
package pandoc
