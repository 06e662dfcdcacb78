package convert

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// htmlType is registered with the filetype library so that content sniffing
// recognizes markup and not just the binary formats the library knows about.
var htmlType = filetype.NewType("html", "text/html")

func init() {
	filetype.AddMatcher(htmlType, htmlMatcher)
}

func htmlMatcher(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte{0xEF, 0xBB, 0xBF})
	buf = bytes.TrimLeft(buf, " \t\r\n")
	lower := bytes.ToLower(buf)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.HasPrefix(lower, []byte("<!--")) ||
		bytes.HasPrefix(buf, []byte("<"))
}

// isArchiveFile reports whether path looks like a zip archive. Extension is
// checked first so random files are skipped cheaply, content is sniffed to
// weed out mislabeled files.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	t, err := filetype.Match(head[:n])
	if err != nil {
		return false, fmt.Errorf("unable to detect file type for %q: %w", path, err)
	}
	return t == matchers.TypeZip, nil
}

var documentExts = map[string]bool{
	".html":  true,
	".htm":   true,
	".xhtml": true,
}

// isDocumentFile reports whether path looks like an HTML document we should
// convert. Since loose markup fragments are valid input, content sniffing
// only has to exclude binary files wearing an html extension.
func isDocumentFile(path string) (bool, error) {
	if !documentExts[strings.ToLower(filepath.Ext(path))] {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return false, err
	}
	return isDocumentContent(head[:n])
}

// isDocumentInArchive is isDocumentFile for zip entries.
func isDocumentInArchive(f *zip.File) (bool, error) {
	if !documentExts[strings.ToLower(filepath.Ext(f.FileHeader.Name))] {
		return false, nil
	}

	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	head := make([]byte, 512)
	n, err := r.Read(head)
	if err != nil && err != io.EOF {
		return false, err
	}
	return isDocumentContent(head[:n])
}

func isDocumentContent(head []byte) (bool, error) {
	if len(head) == 0 {
		return false, nil
	}
	t, err := filetype.Match(head)
	if err != nil {
		return false, fmt.Errorf("unable to detect file type: %w", err)
	}
	if t == htmlType {
		return true, nil
	}
	if t != filetype.Unknown {
		// some recognized binary format
		return false, nil
	}
	// unknown to the matchers - accept anything textual
	return !bytes.ContainsRune(head, 0), nil
}
