package cty

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// minHeaderFields is the number of colon-separated fields in an entity header.
// Lines with fewer are skipped.
const minHeaderFields = 8

// tables is the result of one parse, swapped into a Database on success.
type tables struct {
	entities map[int]*Entity
	prefixes map[string]*PrefixRule
}

// parse reads cty.dat from src into fresh tables.
//
// The file is a sequence of blocks:
//
//	Lithuania:  15:  29:  EU:   55.45:   -23.63:    -2.0:  LY:
//	    LY;
//
// one header line followed by continuation lines of comma-separated prefix
// tokens, the last of which ends with ';'.
func parse(ctx context.Context, src Source, maxLineLen int) (*tables, error) {
	chunks, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer chunks.Close()

	t := &tables{
		entities: make(map[int]*Entity),
		prefixes: make(map[string]*PrefixRule),
	}

	sc := NewLineScanner(chunks, maxLineLen)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields := strings.Split(sc.Text(), ":")
		if len(fields) < minHeaderFields {
			continue
		}

		e, err := parseHeader(fields, len(t.entities)+1)
		if err != nil {
			return nil, &ParseError{Line: sc.LineNumber(), Err: err}
		}
		t.entities[e.ID] = e

		detail, err := readPrefixBlock(sc)
		if err != nil {
			return nil, &ParseError{Line: sc.LineNumber(), Err: err}
		}
		t.addPrefixes(detail, e.ID)
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Line: sc.LineNumber() + 1, Err: err}
	}
	return t, nil
}

// parseHeader builds an entity from the fields of a header line.
// Every numeric field is attempted before failing so the error lists all bad columns.
func parseHeader(fields []string, id int) (*Entity, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	primary := fields[7]
	waeOnly := false
	if strings.HasPrefix(primary, "*") {
		primary = primary[1:]
		waeOnly = true
	}

	continent, err := ParseContinent(fields[3])
	if err != nil {
		return nil, err
	}

	cq, errCQ := strconv.Atoi(fields[1])
	itu, errITU := strconv.Atoi(fields[2])
	lat, errLat := parseFinite(fields[4])
	lng, errLng := parseFinite(fields[5])
	utc, errUTC := parseHours(fields[6])

	var bad []string
	for _, f := range []struct {
		name string
		err  error
	}{
		{"CQ zone", errCQ},
		{"ITU zone", errITU},
		{"latitude", errLat},
		{"longitude", errLng},
		{"UTC offset", errUTC},
	} {
		if f.err != nil {
			bad = append(bad, f.name)
		}
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNumericField, strings.Join(bad, ", "))
	}

	return &Entity{
		ID:            id,
		Name:          fields[0],
		WAEOnly:       waeOnly,
		CQZone:        cq,
		ITUZone:       itu,
		Continent:     continent,
		Latitude:      lat,
		Longitude:     lng,
		UTCOffset:     utc,
		PrimaryPrefix: primary,
	}, nil
}

// readPrefixBlock concatenates continuation lines up to and including the
// one ending in ';', and returns the text without the terminator.
func readPrefixBlock(sc *LineScanner) (string, error) {
	var b strings.Builder
	for {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", ErrTruncatedBlock
		}
		line := sc.Text()
		b.WriteString(line)
		if strings.HasSuffix(strings.TrimRightFunc(line, unicode.IsSpace), ";") {
			break
		}
	}
	detail := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	return strings.TrimSuffix(detail, ";"), nil
}

// addPrefixes registers each comma-separated token of a block. A leading
// '=' marks an exact rule. Later tokens replace earlier ones with the same key.
func (t *tables) addPrefixes(detail string, entityID int) {
	for _, raw := range strings.Split(detail, ",") {
		prefix := strings.TrimSpace(raw)
		exact := false
		if strings.HasPrefix(prefix, "=") {
			prefix = prefix[1:]
			exact = true
		}
		if prefix == "" {
			continue
		}
		t.prefixes[prefix] = &PrefixRule{Prefix: prefix, Exact: exact, EntityID: entityID}
	}
}

// maxOffsetHours bounds UTC offsets; real zones stay within ±14.
const maxOffsetHours = 24

var (
	errNotFinite   = errors.New("not a finite number")
	errOffsetRange = errors.New("UTC offset out of range")
)

// parseFinite parses a decimal number, rejecting NaN and infinities,
// which strconv.ParseFloat accepts.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q: %w", s, errNotFinite)
	}
	return v, nil
}

// parseHours parses an offset in hours and returns it in seconds.
func parseHours(s string) (int, error) {
	h, err := parseFinite(s)
	if err != nil {
		return 0, err
	}
	if math.Abs(h) > maxOffsetHours {
		return 0, fmt.Errorf("%q: %w", s, errOffsetRange)
	}
	return hoursToSeconds(h), nil
}

func hoursToSeconds(h float64) int {
	return int(math.Round(h * 3600))
}

// FormatHeader renders e as a cty.dat header line.
func FormatHeader(e Entity) string {
	primary := e.PrimaryPrefix
	if e.WAEOnly {
		primary = "*" + primary
	}
	return fmt.Sprintf("%s:%d:%d:%s:%s:%s:%s:%s:",
		e.Name,
		e.CQZone,
		e.ITUZone,
		e.Continent,
		strconv.FormatFloat(e.Latitude, 'f', -1, 64),
		strconv.FormatFloat(e.Longitude, 'f', -1, 64),
		strconv.FormatFloat(float64(e.UTCOffset)/3600, 'f', -1, 64),
		primary,
	)
}
