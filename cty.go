// Package cty resolves amateur-radio callsigns to the DXCC entity that issued
// them, using the AD1C cty.dat country file.
//
// A Database is built from a byte Source (HTTP, file, or in-memory chunks) and
// then answers Lookup calls from memory:
//
//	db, err := cty.Load(ctx, cty.HTTPSource{URL: cty.DefaultURL})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, ok, err := db.Lookup("LY1H")
//	fmt.Println(r.EntityName, r.Continent)
package cty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultURL is where AD1C publishes the current cty.dat.
const DefaultURL = "https://www.country-files.com/cty/cty.dat"

var (
	// ErrSourceUnavailable is returned when the byte source cannot be opened or read.
	ErrSourceUnavailable = errors.New("cty: source unavailable")
	// ErrInvalidNumericField is returned when a header line has an unparseable zone, coordinate or offset.
	ErrInvalidNumericField = errors.New("cty: invalid numeric field")
	// ErrInvalidContinentCode is returned for a continent outside AF, AN, AS, EU, NA, OC, SA.
	ErrInvalidContinentCode = errors.New("cty: invalid continent code")
	// ErrInvalidOverride is returned when a prefix carries an override that does not parse.
	ErrInvalidOverride = errors.New("cty: invalid override")
	// ErrTruncatedBlock is returned when the stream ends inside a prefix block.
	ErrTruncatedBlock = errors.New("cty: stream ended inside prefix block")
	// ErrLineTooLong is returned when a line exceeds the configured maximum length.
	ErrLineTooLong = errors.New("cty: line too long")
)

// ParseError reports the cty.dat line on which a load failed.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cty.dat line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Continent is one of the seven continent codes used by cty.dat.
type Continent string

const (
	Africa       Continent = "AF"
	Antarctica   Continent = "AN"
	Asia         Continent = "AS"
	Europe       Continent = "EU"
	NorthAmerica Continent = "NA"
	Oceania      Continent = "OC"
	SouthAmerica Continent = "SA"
)

// ParseContinent validates a two-letter continent code.
func ParseContinent(s string) (Continent, error) {
	switch c := Continent(s); c {
	case Africa, Antarctica, Asia, Europe, NorthAmerica, Oceania, SouthAmerica:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidContinentCode, s)
}

// Entity is one DXCC (or WAE-only) entity from a cty.dat header line.
// Coordinates and offset are kept as published: cty.dat gives longitude
// positive west and the UTC offset in hours, stored here in seconds.
type Entity struct {
	ID            int // 1-based, in file order
	Name          string
	WAEOnly       bool
	CQZone        int
	ITUZone       int
	Continent     Continent
	Latitude      float64
	Longitude     float64
	UTCOffset     int // seconds
	PrimaryPrefix string
}

// PrefixRule is one prefix (or exact callsign, when Exact is set) from an entity block.
// Prefix is the literal token, override brackets included.
type PrefixRule struct {
	Prefix   string
	Exact    bool
	EntityID int
}

// Result is an entity merged with the overrides of the prefix rule that matched.
//
// Latitude is positive north. Longitude follows cty.dat and is positive WEST
// (Lithuania is -23.63); negate it for the usual east-positive form, as
// Geohash and Distance do. UTCOffset is in seconds with cty.dat's sign, which
// is the inverse of ISO 8601: Lithuania (UTC+2) is -7200. Negate it to get
// local time minus UTC.
type Result struct {
	EntityID      int       `json:"entity_id"`
	EntityName    string    `json:"entity_name"`
	WAEOnly       bool      `json:"wae_only"`
	CQZone        int       `json:"cq_zone"`
	ITUZone       int       `json:"itu_zone"`
	Continent     Continent `json:"continent"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	UTCOffset     int       `json:"utc_offset"`
	PrimaryPrefix string    `json:"primary_prefix"`
}

// Config contains options for a Database.
type Config struct {
	HTTPClient    *http.Client // Client for URL loads (default: 30s timeout)
	Logger        *log.Logger  // Load summaries and warnings (default: log.Default())
	MaxLineLength int          // Longest accepted line in bytes (default: 1 MiB, 0 disables)
}

// Option is a functional option for configuring a Database.
type Option func(*Config)

// WithHTTPClient sets the client used by ReloadURL.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *Config) {
		cfg.HTTPClient = c
	}
}

// WithLogger sets the logger. Pass log.New(io.Discard, "", 0) to silence it.
func WithLogger(l *log.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMaxLineLength caps the length of a single cty.dat line.
func WithMaxLineLength(n int) Option {
	return func(cfg *Config) {
		cfg.MaxLineLength = n
	}
}

const defaultMaxLineLength = 1 << 20

// httpClient is the shared default client.
var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

func defaultConfig() *Config {
	return &Config{
		HTTPClient:    httpClient,
		Logger:        log.Default(),
		MaxLineLength: defaultMaxLineLength,
	}
}

// Database holds the entity and prefix tables of one cty.dat load.
// Lookups are safe for concurrent use, including while a Reload is running:
// they see the previous tables until the new ones are complete.
type Database struct {
	mu       sync.RWMutex
	entities map[int]*Entity
	prefixes map[string]*PrefixRule
	ready    bool

	loadMu sync.Mutex // serializes Reload
	config *Config
}

// New returns an empty Database. Lookups match nothing until Reload succeeds.
func New(opts ...Option) *Database {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpClient
	}
	return &Database{
		entities: make(map[int]*Entity),
		prefixes: make(map[string]*PrefixRule),
		config:   cfg,
	}
}

// Load builds a Database from src.
func Load(ctx context.Context, src Source, opts ...Option) (*Database, error) {
	db := New(opts...)
	if err := db.Reload(ctx, src); err != nil {
		return nil, err
	}
	return db, nil
}

// Reload replaces the contents of db with a fresh parse of src.
// The previous tables are discarded wholesale; nothing carries over between loads.
// On error db keeps whatever it held before the call.
func (db *Database) Reload(ctx context.Context, src Source) error {
	db.loadMu.Lock()
	defer db.loadMu.Unlock()

	start := time.Now()
	t, err := parse(ctx, src, db.config.MaxLineLength)
	if err != nil {
		return fmt.Errorf("loading cty.dat: %w", err)
	}

	db.mu.Lock()
	db.entities = t.entities
	db.prefixes = t.prefixes
	db.ready = true
	db.mu.Unlock()

	db.config.Logger.Printf("cty: loaded %d entities, %d prefixes in %v",
		len(t.entities), len(t.prefixes), time.Since(start).Round(time.Millisecond))
	return nil
}

// ReloadURL reloads db from a cty.dat served over HTTP.
func (db *Database) ReloadURL(ctx context.Context, url string) error {
	return db.Reload(ctx, HTTPSource{URL: url, Client: db.config.HTTPClient})
}

// Ready reports whether a load has completed successfully.
func (db *Database) Ready() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.ready
}

// EntityCount returns the number of loaded entities.
func (db *Database) EntityCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.entities)
}

// PrefixCount returns the number of loaded prefix rules.
func (db *Database) PrefixCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.prefixes)
}

// Entity returns the entity with the given id.
func (db *Database) Entity(id int) (Entity, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	e, ok := db.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Entities returns all entities ordered by id.
func (db *Database) Entities() []Entity {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]Entity, 0, len(db.entities))
	for _, e := range db.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Prefix returns the rule registered under the literal prefix p.
func (db *Database) Prefix(p string) (PrefixRule, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	r, ok := db.prefixes[p]
	if !ok {
		return PrefixRule{}, false
	}
	return *r, true
}

// Validation thresholds for a full AD1C cty.dat (~340 entities, tens of thousands of rules).
const (
	minEntityCount = 300
	minPrefixCount = 1000
)

// KnownCall pairs a callsign with the entity it must resolve to.
type KnownCall struct {
	Call       string
	EntityName string
}

// KnownCalls are unambiguous callsigns used to check a freshly loaded file.
var KnownCalls = []KnownCall{
	{"LY1H", "Lithuania"},
	{"K1ABC", "United States"},
	{"VE3ABC", "Canada"},
	{"JA1ABC", "Japan"},
	{"G4ABC", "England"},
	{"VK2ABC", "Australia"},
	{"SP5ABC", "Poland"},
}

// Validate checks that db looks like a complete cty.dat load.
func (db *Database) Validate() error {
	if n := db.EntityCount(); n < minEntityCount {
		return fmt.Errorf("entity count too low: got %d, want >= %d", n, minEntityCount)
	}
	if n := db.PrefixCount(); n < minPrefixCount {
		return fmt.Errorf("prefix count too low: got %d, want >= %d", n, minPrefixCount)
	}
	return db.CheckKnownCalls(KnownCalls)
}

// CheckKnownCalls verifies that every call resolves to its expected entity.
// Entity names are compared case-insensitively.
func (db *Database) CheckKnownCalls(calls []KnownCall) error {
	for _, kc := range calls {
		r, ok, err := db.Lookup(kc.Call)
		if err != nil {
			return fmt.Errorf("lookup(%q): %w", kc.Call, err)
		}
		if !ok {
			return fmt.Errorf("lookup(%q): no match, want %q", kc.Call, kc.EntityName)
		}
		if !strings.EqualFold(r.EntityName, kc.EntityName) {
			return fmt.Errorf("lookup(%q) = %q, want %q", kc.Call, r.EntityName, kc.EntityName)
		}
	}
	return nil
}
