package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_RejectsIncompleteFile(t *testing.T) {
	small, err := os.ReadFile(filepath.Join("..", "..", "testdata", "cty.dat"))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(small)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "cty.dat")
	if err := os.WriteFile(out, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	err = run(context.Background(), srv.Client(), srv.URL, out)
	if err == nil || !strings.Contains(err.Error(), "failed validation") {
		t.Fatalf("run() error = %v, want validation failure", err)
	}

	got, _ := os.ReadFile(out)
	if string(got) != "previous" {
		t.Errorf("%s = %q, want previous copy kept", out, got)
	}
	if _, err := os.Stat(out + ".new"); !os.IsNotExist(err) {
		t.Errorf("temporary download left behind")
	}
}

func TestRun_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "cty.dat")
	if err := run(context.Background(), srv.Client(), srv.URL, out); err == nil {
		t.Fatal("run() error = nil, want download failure")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("%s created by failed download", out)
	}
}
