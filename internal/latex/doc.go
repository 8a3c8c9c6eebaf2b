// Package latex implements the text transforms quire applies to a LaTeX
// source tree before conversion: include flattening, verse macro rewriting,
// heading label injection, footnote merging, and chapter subtitle rewriting.
//
// Every transform works on strings and never touches the source files; the
// callers decide whether results go to the build directory or back in place.
package latex
