package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	containerPath = "META-INF/container.xml"
	mimetypeName  = "mimetype"
	// MediaType is the required content of the mimetype entry.
	MediaType = "application/epub+zip"

	maxEntrySize int64 = 256 * 1024 * 1024
)

// ErrInvalidEPUB marks archives that lack the structure quire relies on.
var ErrInvalidEPUB = errors.New("invalid epub")

type containerXML struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type dcElement struct {
	Value string `xml:",chardata"`
}

type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Titles       []dcElement `xml:"http://purl.org/dc/elements/1.1/ title"`
		Creators     []dcElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
		Identifiers  []dcElement `xml:"http://purl.org/dc/elements/1.1/ identifier"`
		Subjects     []dcElement `xml:"http://purl.org/dc/elements/1.1/ subject"`
		Rights       []dcElement `xml:"http://purl.org/dc/elements/1.1/ rights"`
		Languages    []dcElement `xml:"http://purl.org/dc/elements/1.1/ language"`
		Dates        []dcElement `xml:"http://purl.org/dc/elements/1.1/ date"`
		Publishers   []dcElement `xml:"http://purl.org/dc/elements/1.1/ publisher"`
		Descriptions []dcElement `xml:"http://purl.org/dc/elements/1.1/ description"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
}

// packageDocument is the parsed OPF plus its location inside the archive.
type packageDocument struct {
	path string
	opf  opfPackage
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	lower := strings.ToLower(name)
	for _, f := range zr.File {
		if strings.ToLower(f.Name) == lower {
			return f
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > uint64(maxEntrySize) {
		return nil, fmt.Errorf("zip entry %s too large: %d bytes", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxEntrySize {
		return nil, fmt.Errorf("zip entry %s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return data, nil
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readPackage follows container.xml to the OPF. Archives without a
// container fall back to the first .opf entry.
func readPackage(zr *zip.Reader) (*packageDocument, error) {
	opfPath := ""
	if f := findEntry(zr, containerPath); f != nil {
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		var c containerXML
		if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
			return nil, fmt.Errorf("parse container.xml: %w", err)
		}
		fallback := ""
		for _, rf := range c.RootFiles {
			full := strings.TrimSpace(rf.FullPath)
			if full == "" {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(rf.MediaType), "application/oebps-package+xml") {
				opfPath = full
				break
			}
			if fallback == "" {
				fallback = full
			}
		}
		if opfPath == "" {
			opfPath = fallback
		}
	}
	if opfPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
				opfPath = f.Name
				break
			}
		}
	}
	if opfPath == "" {
		return nil, fmt.Errorf("%w: no package document", ErrInvalidEPUB)
	}
	f := findEntry(zr, opfPath)
	if f == nil {
		return nil, fmt.Errorf("%w: package document %s missing", ErrInvalidEPUB, opfPath)
	}
	data, err := readEntry(f)
	if err != nil {
		return nil, err
	}
	doc := &packageDocument{path: f.Name}
	if err := xml.Unmarshal(stripBOM(data), &doc.opf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Name, err)
	}
	return doc, nil
}

// navPath returns the archive path of the EPUB 3 navigation document.
func (p *packageDocument) navPath() string {
	for _, item := range p.opf.Manifest.Items {
		for _, prop := range strings.Fields(item.Properties) {
			if prop == "nav" {
				return resolveHref(p.path, item.Href)
			}
		}
	}
	return ""
}

// locateNav finds the navigation document, preferring the manifest and
// falling back to an entry named nav.xhtml.
func locateNav(zr *zip.Reader) (*zip.File, error) {
	if pkg, err := readPackage(zr); err == nil {
		if name := pkg.navPath(); name != "" {
			if f := findEntry(zr, name); f != nil {
				return f, nil
			}
		}
	}
	for _, f := range zr.File {
		if strings.EqualFold(path.Base(f.Name), "nav.xhtml") {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: navigation document not found", ErrInvalidEPUB)
}

func resolveHref(base, href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	if href == "" || strings.HasPrefix(href, "/") {
		return ""
	}
	cleaned := path.Clean(path.Join(path.Dir(base), href))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return ""
	}
	return cleaned
}

func firstValue(values []dcElement) string {
	for _, v := range values {
		if s := strings.TrimSpace(v.Value); s != "" {
			return s
		}
	}
	return ""
}

func allValues(values []dcElement) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v.Value); s != "" {
			out = append(out, s)
		}
	}
	return out
}
