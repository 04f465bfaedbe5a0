// internal/fileio/open.go
package fileio

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open returns a reader for path with transparent gzip and "-" (stdin) support.
// Gzip is detected by magic number (1F 8B) or by a .gz suffix.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return wrap(os.Stdin, io.NopCloser(os.Stdin))
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := wrap(fh, fh)
	if err != nil {
		_ = fh.Close()
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		if _, ok := rc.(*multiReadCloser); !ok {
			_ = rc.Close()
			return nil, gzip.ErrHeader
		}
	}
	return rc, nil
}

// NewReader sniffs r for a gzip header and decompresses when present.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	return wrap(r, io.NopCloser(r))
}

func wrap(r io.Reader, c io.Closer) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	sig, _ := br.Peek(2)
	if len(sig) == 2 && sig[0] == 0x1f && sig[1] == 0x8b {
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, c}}, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{Reader: br, Closer: c}, nil
}
