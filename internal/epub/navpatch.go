package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNoMatch is returned when RequireMatch is set and the navigation
// document has no block to remove.
var ErrNoMatch = errors.New("navigation block not found")

// PatchOptions selects the navigation block to remove.
type PatchOptions struct {
	// Element is the tag name, normally "nav".
	Element string
	// Attribute is matched literally inside the start tag, for example
	// epub:type="landmarks".
	Attribute string
	// RequireMatch turns a missing block into ErrNoMatch.
	RequireMatch bool
}

// PatchResult describes a completed patch.
type PatchResult struct {
	NavPath string
	Removed bool
	Entries int
}

// RemoveBlock deletes the first element whose start tag contains attribute,
// together with its content and end tag. Bytes outside the element are
// returned unchanged.
func RemoveBlock(doc []byte, element, attribute string) ([]byte, bool, error) {
	re, err := blockPattern(element, attribute)
	if err != nil {
		return nil, false, err
	}
	loc := re.FindIndex(doc)
	if loc == nil {
		return doc, false, nil
	}
	out := make([]byte, 0, len(doc)-(loc[1]-loc[0]))
	out = append(out, doc[:loc[0]]...)
	out = append(out, doc[loc[1]:]...)
	return out, true, nil
}

func blockPattern(element, attribute string) (*regexp.Regexp, error) {
	element = strings.TrimSpace(element)
	if element == "" {
		element = "nav"
	}
	if strings.TrimSpace(attribute) == "" {
		return nil, errors.New("attribute match required")
	}
	el := regexp.QuoteMeta(element)
	pattern := `(?is)<` + el + `\b[^>]*?` + regexp.QuoteMeta(attribute) + `[^>]*>.*?</` + el + `\s*>`
	return regexp.Compile(pattern)
}

// Patch removes the configured navigation block from the EPUB at src and
// writes the repacked archive to dst. dst is written through a temporary file
// and renamed into place, so a failed patch leaves no partial output.
func Patch(src, dst string, opts PatchOptions) (PatchResult, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return PatchResult{}, fmt.Errorf("read epub: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PatchResult{}, fmt.Errorf("%w: %v", ErrInvalidEPUB, err)
	}
	nav, err := locateNav(zr)
	if err != nil {
		return PatchResult{}, err
	}
	navData, err := readEntry(nav)
	if err != nil {
		return PatchResult{}, err
	}
	patched, removed, err := RemoveBlock(navData, opts.Element, opts.Attribute)
	if err != nil {
		return PatchResult{}, err
	}
	if !removed && opts.RequireMatch {
		return PatchResult{NavPath: nav.Name}, fmt.Errorf("%w: %s in %s", ErrNoMatch, opts.Attribute, nav.Name)
	}

	var buf bytes.Buffer
	entries, err := Repack(&buf, zr, map[string][]byte{nav.Name: patched})
	if err != nil {
		return PatchResult{}, err
	}
	if err := writeAtomic(dst, buf.Bytes()); err != nil {
		return PatchResult{}, err
	}
	return PatchResult{NavPath: nav.Name, Removed: removed, Entries: entries}, nil
}

// Repack writes zr to w with the mimetype entry first and stored. Entries
// named in replace get the new content, deflated; every other entry is
// copied raw. It returns the number of entries written.
//
// The mimetype entry is the one entry normalised: OCF requires it to hold
// the media type with no surrounding whitespace, so a trailing newline is
// dropped and an empty entry becomes MediaType.
func Repack(w io.Writer, zr *zip.Reader, replace map[string][]byte) (int, error) {
	zw := zip.NewWriter(w)
	mimetype := []byte(MediaType)
	var mimeHeader *zip.FileHeader
	if f := findEntry(zr, mimetypeName); f != nil {
		data, err := readEntry(f)
		if err != nil {
			return 0, err
		}
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 {
			mimetype = trimmed
		}
		mimeHeader = &f.FileHeader
	}
	if err := writeMimetype(zw, mimetype, mimeHeader); err != nil {
		return 0, err
	}

	count := 1
	for _, f := range zr.File {
		if f.Name == mimetypeName || (mimeHeader != nil && f.Name == mimeHeader.Name) {
			continue
		}
		if content, ok := replace[f.Name]; ok {
			hdr := f.FileHeader
			hdr.Method = zip.Deflate
			hdr.Extra = nil
			hdr.CRC32 = 0
			hdr.CompressedSize64 = 0
			hdr.UncompressedSize64 = 0
			fw, err := zw.CreateHeader(&hdr)
			if err != nil {
				return 0, fmt.Errorf("create %s: %w", f.Name, err)
			}
			if _, err := fw.Write(content); err != nil {
				return 0, fmt.Errorf("write %s: %w", f.Name, err)
			}
		} else if err := zw.Copy(f); err != nil {
			return 0, fmt.Errorf("copy %s: %w", f.Name, err)
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalize archive: %w", err)
	}
	return count, nil
}

// writeMimetype emits the mimetype entry uncompressed with no extra field
// and no data descriptor.
func writeMimetype(zw *zip.Writer, content []byte, source *zip.FileHeader) error {
	hdr := &zip.FileHeader{
		Name:               mimetypeName,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(content),
		CompressedSize64:   uint64(len(content)),
		UncompressedSize64: uint64(len(content)),
	}
	if source != nil {
		hdr.ModifiedDate = source.ModifiedDate
		hdr.ModifiedTime = source.ModifiedTime
	}
	fw, err := zw.CreateRaw(hdr)
	if err != nil {
		return fmt.Errorf("create mimetype: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return fmt.Errorf("write mimetype: %w", err)
	}
	return nil
}

func writeAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
