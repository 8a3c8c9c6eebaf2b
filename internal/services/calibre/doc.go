// Package calibre wraps the Calibre command-line tools used for the Google
// Play compatibility round trip: ebook-convert for format conversion and
// ebook-polish for the final EPUB upgrade.
package calibre
