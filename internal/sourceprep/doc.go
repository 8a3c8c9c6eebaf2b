// Package sourceprep turns the LaTeX source tree into the single document
// pandoc reads.
//
// The stage flattens includes, applies the optional source passes (chapter
// subtitles per file, then heading labels and quote footnotes on the merged
// text) and rewrites verse macros. The source tree is only read; the result
// lands in the build directory.
package sourceprep
