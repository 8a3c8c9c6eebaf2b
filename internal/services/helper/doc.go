// Package helper runs the optional external EPUB post-processing command.
// Arguments may reference {input} and {output}, which are substituted with
// the EPUB being processed and the path the helper must write.
package helper
