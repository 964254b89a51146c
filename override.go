package cty

import (
	"fmt"
	"strconv"
	"strings"
)

// OverrideError names the prefix whose override failed to parse.
type OverrideError struct {
	Prefix string
	Err    error
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("invalid override in cty.dat prefix %q: %v", e.Prefix, e.Err)
}

// Unwrap matches both ErrInvalidOverride and the underlying cause.
func (e *OverrideError) Unwrap() []error {
	return []error{ErrInvalidOverride, e.Err}
}

// extractOverride returns the text between the first left delimiter in s and
// the first right delimiter after it.
func extractOverride(s string, left, right byte) (string, bool) {
	i := strings.IndexByte(s, left)
	if i < 0 {
		return "", false
	}
	j := strings.IndexByte(s[i+1:], right)
	if j < 0 {
		return "", false
	}
	return s[i+1 : i+1+j], true
}

// Fixup merges e with the overrides embedded in rule.Prefix:
//
//	(n)        CQ zone
//	[n]        ITU zone
//	<lat/long> coordinates
//	{cc}       continent
//	~h~        UTC offset in hours
//
// Absent overrides leave the entity value in place.
func Fixup(rule PrefixRule, e Entity) (Result, error) {
	r := Result{
		EntityID:      e.ID,
		EntityName:    e.Name,
		WAEOnly:       e.WAEOnly,
		CQZone:        e.CQZone,
		ITUZone:       e.ITUZone,
		Continent:     e.Continent,
		Latitude:      e.Latitude,
		Longitude:     e.Longitude,
		UTCOffset:     e.UTCOffset,
		PrimaryPrefix: e.PrimaryPrefix,
	}

	p := rule.Prefix
	var bad []string

	if v, ok := extractOverride(p, '(', ')'); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			bad = append(bad, "CQ zone")
		} else {
			r.CQZone = n
		}
	}

	if v, ok := extractOverride(p, '[', ']'); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			bad = append(bad, "ITU zone")
		} else {
			r.ITUZone = n
		}
	}

	if v, ok := extractOverride(p, '<', '>'); ok {
		lat, lng, found := strings.Cut(v, "/")
		if !found {
			bad = append(bad, "coordinates")
		} else {
			la, errLat := parseFinite(strings.TrimSpace(lat))
			lo, errLng := parseFinite(strings.TrimSpace(lng))
			if errLat != nil {
				bad = append(bad, "latitude")
			}
			if errLng != nil {
				bad = append(bad, "longitude")
			}
			if errLat == nil && errLng == nil {
				r.Latitude, r.Longitude = la, lo
			}
		}
	}

	if v, ok := extractOverride(p, '{', '}'); ok {
		c, err := ParseContinent(strings.TrimSpace(v))
		if err != nil {
			bad = append(bad, "continent")
		} else {
			r.Continent = c
		}
	}

	if v, ok := extractOverride(p, '~', '~'); ok {
		secs, err := parseHours(strings.TrimSpace(v))
		if err != nil {
			bad = append(bad, "UTC offset")
		} else {
			r.UTCOffset = secs
		}
	}

	if len(bad) > 0 {
		return Result{}, &OverrideError{
			Prefix: rule.Prefix,
			Err:    fmt.Errorf("bad %s", strings.Join(bad, ", ")),
		}
	}
	return r, nil
}
