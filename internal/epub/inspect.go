package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// Metadata is the Dublin Core subset quire writes and verifies.
type Metadata struct {
	Titles      []string
	Creators    []string
	Identifiers []string
	Subjects    []string
	Rights      string
	Language    string
	Date        string
	Publisher   string
	Description string
}

// Title returns the first title, or "".
func (m Metadata) Title() string {
	if len(m.Titles) == 0 {
		return ""
	}
	return m.Titles[0]
}

// Author returns the creators joined with ", ".
func (m Metadata) Author() string {
	return strings.Join(m.Creators, ", ")
}

// Info summarizes an EPUB archive.
type Info struct {
	Path             string
	PackagePath      string
	Version          string
	Metadata         Metadata
	NavPath          string
	NavTypes         []string
	FirstEntry       string
	FirstEntryStored bool
	Entries          int
}

// HasNavType reports whether a <nav> with the given epub:type exists.
func (i Info) HasNavType(kind string) bool {
	for _, t := range i.NavTypes {
		if t == kind {
			return true
		}
	}
	return false
}

// Inspect reads the package metadata and navigation structure of the EPUB
// at path.
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read epub: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEPUB, err)
	}
	info := &Info{Path: path, Entries: len(zr.File)}
	if len(zr.File) > 0 {
		info.FirstEntry = zr.File[0].Name
		info.FirstEntryStored = zr.File[0].Method == zip.Store
	}

	pkg, err := readPackage(zr)
	if err != nil {
		return nil, err
	}
	info.PackagePath = pkg.path
	info.Version = pkg.opf.Version
	md := pkg.opf.Metadata
	info.Metadata = Metadata{
		Titles:      allValues(md.Titles),
		Creators:    allValues(md.Creators),
		Identifiers: allValues(md.Identifiers),
		Subjects:    allValues(md.Subjects),
		Rights:      firstValue(md.Rights),
		Language:    firstValue(md.Languages),
		Date:        firstValue(md.Dates),
		Publisher:   firstValue(md.Publishers),
		Description: firstValue(md.Descriptions),
	}

	nav, err := locateNav(zr)
	if err != nil {
		// EPUB 2 books carry an NCX only.
		return info, nil
	}
	info.NavPath = nav.Name
	navData, err := readEntry(nav)
	if err != nil {
		return nil, err
	}
	types, err := navTypes(navData)
	if err != nil {
		return nil, err
	}
	info.NavTypes = types
	return info, nil
}

func navTypes(data []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse navigation document: %w", err)
	}
	var types []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "nav" {
			kind := "untyped"
			for _, a := range n.Attr {
				if a.Key == "epub:type" || (a.Namespace == "epub" && a.Key == "type") {
					if fields := strings.Fields(a.Val); len(fields) > 0 {
						kind = fields[0]
					}
				}
			}
			types = append(types, kind)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return types, nil
}
