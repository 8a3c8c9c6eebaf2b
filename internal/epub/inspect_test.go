package epub_test

import (
	"path/filepath"
	"strings"
	"testing"

	"quire/internal/epub"
	"quire/internal/testsupport"
)

func TestInspectReadsMetadataAndNav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	testsupport.WriteEPUB(t, path, testsupport.EPUB{
		Title:      "The Gita & Me",
		Creator:    "Vyasa",
		Rights:     "CC BY-SA",
		Identifier: "urn:isbn:123",
		Language:   "sa",
		Subjects:   []string{"Poetry", "Philosophy"},
		Landmarks:  true,
	})

	info, err := epub.Inspect(path)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if info.PackagePath != "EPUB/content.opf" || info.Version != "3.0" {
		t.Fatalf("unexpected package: %q %q", info.PackagePath, info.Version)
	}
	md := info.Metadata
	if md.Title() != "The Gita & Me" || md.Author() != "Vyasa" || md.Rights != "CC BY-SA" {
		t.Fatalf("unexpected metadata: %+v", md)
	}
	if md.Language != "sa" || strings.Join(md.Subjects, ",") != "Poetry,Philosophy" {
		t.Fatalf("unexpected metadata: %+v", md)
	}
	if len(md.Identifiers) != 1 || md.Identifiers[0] != "urn:isbn:123" {
		t.Fatalf("unexpected identifiers: %v", md.Identifiers)
	}
	if info.NavPath != "EPUB/nav.xhtml" {
		t.Fatalf("unexpected nav path: %q", info.NavPath)
	}
	if !info.HasNavType("toc") || !info.HasNavType("landmarks") {
		t.Fatalf("unexpected nav types: %v", info.NavTypes)
	}
	if info.FirstEntry != "mimetype" || !info.FirstEntryStored {
		t.Fatalf("unexpected first entry: %q stored=%v", info.FirstEntry, info.FirstEntryStored)
	}
}

func TestInspectAfterPatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.epub")
	dst := filepath.Join(dir, "out.epub")
	testsupport.WriteEPUB(t, src, testsupport.EPUB{Title: "Book", Identifier: "id", Landmarks: true, DeflateMimetype: true})

	before, err := epub.Inspect(src)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if before.FirstEntry == "mimetype" {
		t.Fatal("fixture should not start with mimetype")
	}
	if _, err := epub.Patch(src, dst, landmarks); err != nil {
		t.Fatalf("Patch returned error: %v", err)
	}
	after, err := epub.Inspect(dst)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if after.HasNavType("landmarks") || !after.HasNavType("toc") {
		t.Fatalf("unexpected nav types after patch: %v", after.NavTypes)
	}
	if after.FirstEntry != "mimetype" || !after.FirstEntryStored {
		t.Fatalf("unexpected first entry after patch: %q", after.FirstEntry)
	}
	if after.Metadata.Title() != before.Metadata.Title() {
		t.Fatalf("metadata changed: %q -> %q", before.Metadata.Title(), after.Metadata.Title())
	}
}
