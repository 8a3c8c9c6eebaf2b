// Package compat makes the Google Play variant by round-tripping the EPUB
// through an intermediate Kindle format with ebook-convert and upgrading the
// result with ebook-polish. Image recompression and other losses from the
// round trip are accepted.
package compat
