// Package language canonicalizes the book language written to dc:language.
//
// Configuration may carry a BCP 47 tag ("en-GB"), an ISO 639-2 code ("eng"),
// or an English language name ("Sanskrit"); all of them resolve to the
// canonical BCP 47 form pandoc and EPUB readers expect.
package language
