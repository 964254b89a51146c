package cty

import (
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Source opens a cty.dat byte stream. Open fails with ErrSourceUnavailable
// when the stream cannot be started.
type Source interface {
	Open(ctx context.Context) (ChunkSource, error)
}

const chunkSize = 32 * 1024

// readerChunks adapts an io.Reader to ChunkSource.
type readerChunks struct {
	r     io.Reader
	buf   []byte
	close func() error
}

func newReaderChunks(r io.Reader, closeFn func() error) *readerChunks {
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &readerChunks{r: r, buf: make([]byte, chunkSize), close: closeFn}
}

func (rc *readerChunks) Next() ([]byte, error) {
	n, err := rc.r.Read(rc.buf)
	if err != nil && err != io.EOF {
		return rc.buf[:n], fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return rc.buf[:n], err
}

func (rc *readerChunks) Close() error { return rc.close() }

// HTTPSource fetches cty.dat with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client // nil uses a client with a 30s timeout
}

func (s HTTPSource) Open(ctx context.Context) (ChunkSource, error) {
	client := s.Client
	if client == nil {
		client = httpClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: HTTP GET %s: %v", ErrSourceUnavailable, s.URL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: HTTP GET %s: %v", ErrSourceUnavailable, s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP GET %s: status %d", ErrSourceUnavailable, s.URL, resp.StatusCode)
	}
	return newReaderChunks(resp.Body, resp.Body.Close), nil
}

// FileSource reads cty.dat from disk. Files ending in .bz2 or .gz are
// decompressed; for .zip the entry named cty.dat is used, or the first
// entry when there is none.
type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context) (ChunkSource, error) {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".zip":
		return openZipEntry(s.Path)
	case ".bz2":
		fh, err := os.Open(s.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return newReaderChunks(bzip2.NewReader(fh), fh.Close), nil
	case ".gz":
		fh, err := os.Open(s.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		fz, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, fmt.Errorf("%w: creating gzip reader: %v", ErrSourceUnavailable, err)
		}
		return newReaderChunks(fz, func() error {
			fz.Close()
			return fh.Close()
		}), nil
	default:
		fh, err := os.Open(s.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return newReaderChunks(fh, fh.Close), nil
	}
}

func openZipEntry(path string) (ChunkSource, error) {
	rz, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening zip file: %v", ErrSourceUnavailable, err)
	}
	if len(rz.File) == 0 {
		rz.Close()
		return nil, fmt.Errorf("%w: %s: empty zip archive", ErrSourceUnavailable, path)
	}

	entry := rz.File[0]
	for _, f := range rz.File {
		if strings.EqualFold(filepath.Base(f.Name), "cty.dat") {
			entry = f
			break
		}
	}

	fi, err := entry.Open()
	if err != nil {
		rz.Close()
		return nil, fmt.Errorf("%w: opening %s in zip: %v", ErrSourceUnavailable, entry.Name, err)
	}
	return newReaderChunks(fi, func() error {
		fi.Close()
		return rz.Close()
	}), nil
}

// ReaderSource streams cty.dat from an already open reader. It can be opened once.
type ReaderSource struct {
	R io.Reader
}

func (s ReaderSource) Open(ctx context.Context) (ChunkSource, error) {
	if s.R == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrSourceUnavailable)
	}
	var closeFn func() error
	if c, ok := s.R.(io.Closer); ok {
		closeFn = c.Close
	}
	return newReaderChunks(s.R, closeFn), nil
}

// ChunksSource replays a fixed list of chunks, one per Next call.
type ChunksSource [][]byte

func (s ChunksSource) Open(ctx context.Context) (ChunkSource, error) {
	return &sliceChunks{chunks: s}, nil
}

type sliceChunks struct {
	chunks [][]byte
}

func (sc *sliceChunks) Next() ([]byte, error) {
	if len(sc.chunks) == 0 {
		return nil, io.EOF
	}
	c := sc.chunks[0]
	sc.chunks = sc.chunks[1:]
	return c, nil
}

func (sc *sliceChunks) Close() error { return nil }

// Download saves the file at url to path. A partially written file is removed
// on failure.
func Download(ctx context.Context, client *http.Client, url, path string) (err error) {
	chunks, err := HTTPSource{URL: url, Client: client}.Open(ctx)
	if err != nil {
		return err
	}
	defer chunks.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing file %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	for {
		b, rerr := chunks.Next()
		if len(b) > 0 {
			if _, err := out.Write(b); err != nil {
				return fmt.Errorf("writing file %s: %w", path, err)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
