package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// LandmarksBlock is the navigation block BuildEPUB emits when Landmarks is set.
const LandmarksBlock = `<nav epub:type="landmarks" id="landmarks" hidden="hidden">
<ol>
<li><a href="text/title_page.xhtml" epub:type="titlepage">Title Page</a></li>
<li><a href="text/ch001.xhtml" epub:type="bodymatter">Start</a></li>
</ol>
</nav>`

// EPUB describes a minimal EPUB 3 book shaped like pandoc output.
type EPUB struct {
	Title      string
	Creator    string
	Rights     string
	Identifier string
	Language   string
	Subjects   []string
	Landmarks  bool
	// DeflateMimetype writes the mimetype entry compressed and not first, as
	// some converters do.
	DeflateMimetype bool
}

// NavDocument renders the navigation document for e.
func (e EPUB) NavDocument() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>` + html.EscapeString(e.Title) + `</title></head>
<body>
<nav epub:type="toc" id="toc">
<h1 id="toc-title">Contents</h1>
<ol>
<li><a href="text/ch001.xhtml">Chapter One</a></li>
</ol>
</nav>
`)
	if e.Landmarks {
		b.WriteString(LandmarksBlock)
		b.WriteString("\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func (e EPUB) packageDocument() string {
	esc := html.EscapeString
	var meta strings.Builder
	meta.WriteString(`<dc:identifier id="epub-id-1">` + esc(e.Identifier) + "</dc:identifier>\n")
	meta.WriteString(`<dc:title id="epub-title-1">` + esc(e.Title) + "</dc:title>\n")
	if e.Creator != "" {
		meta.WriteString(`<dc:creator id="epub-creator-1">` + esc(e.Creator) + "</dc:creator>\n")
	}
	if e.Rights != "" {
		meta.WriteString("<dc:rights>" + esc(e.Rights) + "</dc:rights>\n")
	}
	for _, s := range e.Subjects {
		meta.WriteString("<dc:subject>" + esc(s) + "</dc:subject>\n")
	}
	lang := e.Language
	if lang == "" {
		lang = "en"
	}
	meta.WriteString("<dc:language>" + esc(lang) + "</dc:language>\n")

	return `<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="epub-id-1">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
` + meta.String() + `</metadata>
<manifest>
<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml" />
<item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav" />
<item id="ch001_xhtml" href="text/ch001.xhtml" media-type="application/xhtml+xml" />
</manifest>
<spine toc="ncx">
<itemref idref="ch001_xhtml" />
</spine>
</package>
`
}

// Bytes renders the archive.
func (e EPUB) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name string, method uint16, body string) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(body))
		return err
	}
	const container = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
<rootfiles>
<rootfile full-path="EPUB/content.opf" media-type="application/oebps-package+xml" />
</rootfiles>
</container>
`
	chapter := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Chapter One</title></head>
<body><section><h1>Chapter One</h1><p>` + strings.Repeat("Text. ", 200) + `</p></section></body></html>
`
	entries := []struct {
		name   string
		method uint16
		body   string
	}{
		{"mimetype", zip.Store, "application/epub+zip"},
		{"META-INF/container.xml", zip.Deflate, container},
		{"EPUB/content.opf", zip.Deflate, e.packageDocument()},
		{"EPUB/nav.xhtml", zip.Deflate, e.NavDocument()},
		{"EPUB/text/ch001.xhtml", zip.Deflate, chapter},
		{"EPUB/toc.ncx", zip.Deflate, "<ncx/>"},
	}
	if e.DeflateMimetype {
		entries[0].method = zip.Deflate
		entries[0], entries[1] = entries[1], entries[0]
	}
	for _, entry := range entries {
		if err := add(entry.name, entry.method, entry.body); err != nil {
			return nil, fmt.Errorf("write %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteEPUB renders e to path, creating parent directories.
func WriteEPUB(t testing.TB, path string, e EPUB) {
	t.Helper()
	data, err := e.Bytes()
	if err != nil {
		t.Fatalf("build epub: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
