package cty

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const smallFile = "Lithuania:  15:  29:  EU:  55.45:  -23.63:  -2.0:  LY:\n    LY;\n"

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cty.dat" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(smallFile))
	}))
	defer srv.Close()

	db, err := Load(context.Background(), HTTPSource{URL: srv.URL + "/cty.dat"}, WithLogger(quietLogger))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok, _ := db.Lookup("LY1H"); !ok {
		t.Error("Lookup(LY1H) = no match")
	}

	_, err = Load(context.Background(), HTTPSource{URL: srv.URL + "/missing.dat"}, WithLogger(quietLogger))
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Load(missing) error = %v, want ErrSourceUnavailable", err)
	}
}

func TestReloadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(smallFile))
	}))
	defer srv.Close()

	db := New(WithLogger(quietLogger), WithHTTPClient(srv.Client()))
	if err := db.ReloadURL(context.Background(), srv.URL); err != nil {
		t.Fatalf("ReloadURL() error = %v", err)
	}
	if !db.Ready() {
		t.Error("Ready() = false after ReloadURL")
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := HTTPSource{URL: url}.Open(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Open() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestFileSource_Missing(t *testing.T) {
	for _, name := range []string{"cty.dat", "cty.dat.gz", "cty.dat.bz2", "cty.zip"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			_, err := FileSource{Path: path}.Open(context.Background())
			if !errors.Is(err, ErrSourceUnavailable) {
				t.Errorf("Open(%s) error = %v, want ErrSourceUnavailable", path, err)
			}
		})
	}
}

func TestFileSource_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cty.dat.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(smallFile)); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	f.Close()

	db, err := Load(context.Background(), FileSource{Path: path}, WithLogger(quietLogger))
	if err != nil {
		t.Fatalf("Load(%s) error = %v", path, err)
	}
	if db.EntityCount() != 1 {
		t.Errorf("EntityCount() = %d, want 1", db.EntityCount())
	}
}

func TestFileSource_Zip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cty.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	readme, _ := zw.Create("README.txt")
	readme.Write([]byte("not a country file\n"))
	entry, _ := zw.Create("cty/CTY.DAT")
	entry.Write([]byte(smallFile))
	zw.Close()
	f.Close()

	db, err := Load(context.Background(), FileSource{Path: path}, WithLogger(quietLogger))
	if err != nil {
		t.Fatalf("Load(%s) error = %v", path, err)
	}
	if _, ok, _ := db.Lookup("LY1H"); !ok {
		t.Error("Lookup(LY1H) = no match, want entry cty.dat picked from zip")
	}
}

func TestReaderSource_Nil(t *testing.T) {
	_, err := ReaderSource{}.Open(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Open() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(smallFile))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "data", "cty.dat")
	if err := Download(context.Background(), nil, srv.URL+"/cty.dat", path); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != smallFile {
		t.Errorf("downloaded %q, want %q", got, smallFile)
	}

	brokenPath := filepath.Join(dir, "broken.dat")
	err = Download(context.Background(), nil, srv.URL+"/broken", brokenPath)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Download(broken) error = %v, want ErrSourceUnavailable", err)
	}
	if _, err := os.Stat(brokenPath); !os.IsNotExist(err) {
		t.Errorf("broken download left %s behind", brokenPath)
	}
}

func TestDownload_TruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte(smallFile))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "cty.dat")
	err := Download(context.Background(), srv.Client(), srv.URL, path)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Download() error = %v, want ErrSourceUnavailable", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("truncated download left %s behind", path)
	}
}
