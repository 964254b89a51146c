// Command update-cty downloads a fresh cty.dat and installs it only if it
// passes validation.
//
// Usage:
//
//	go run ./cmd/update-cty [-config config.toml] [-url URL] [-out data/cty.dat]
//
// The file is downloaded next to the destination, loaded, and checked against
// entity/prefix thresholds and a set of known callsigns before it replaces
// the existing copy.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/andreiashu/cty"
	"github.com/andreiashu/cty/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to TOML config")
	url := flag.String("url", "", "cty.dat URL (default from config)")
	out := flag.String("out", "", "destination file (default from config, then data/cty.dat)")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *url == "" {
		*url = conf.Source.URL
	}
	if *out == "" {
		*out = conf.Source.Path
	}
	if *out == "" {
		*out = "data/cty.dat"
	}

	if err := run(context.Background(), &http.Client{Timeout: conf.Source.Timeout.Duration}, *url, *out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *http.Client, url, out string) error {
	fmt.Printf("Downloading %s...\n", url)

	tmp := out + ".new"
	if err := cty.Download(ctx, client, url, tmp); err != nil {
		return err
	}
	defer os.Remove(tmp)

	db, err := cty.Load(ctx, cty.FileSource{Path: tmp}, cty.WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		return err
	}
	if err := db.Validate(); err != nil {
		return fmt.Errorf("downloaded file failed validation, keeping %s: %w", out, err)
	}

	if err := os.Rename(tmp, out); err != nil {
		return fmt.Errorf("installing %s: %w", out, err)
	}

	fmt.Printf("Installed %s: %d entities, %d prefixes.\n", out, db.EntityCount(), db.PrefixCount())
	return nil
}
