// Package epub reads and repacks EPUB archives produced by the converter.
//
// It locates the package document and navigation document through
// META-INF/container.xml, removes the landmarks navigation block, and writes
// a new archive with the mimetype entry first and stored. Every other entry
// is copied raw, so compressed bytes and headers survive unchanged. Inspect
// reports the Dublin Core metadata and navigation types of a finished book.
package epub
