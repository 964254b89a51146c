package cty

import (
	"fmt"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0088

// latLng converts a result to an s2 point. cty.dat publishes longitude
// positive west, so it is negated into the usual east-positive form.
func (r Result) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(r.Latitude, -r.Longitude)
}

// Geohash encodes the result's location.
func (r Result) Geohash() string {
	ll := r.latLng()
	return geohash.Encode(ll.Lat.Degrees(), ll.Lng.Degrees())
}

// Distance returns the great-circle distance in kilometres between two results.
func Distance(a, b Result) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * earthRadiusKm
}

// DistanceBetween looks up both callsigns and returns the distance between
// their entities. ok is false when either call has no match.
func (db *Database) DistanceBetween(from, to string) (float64, bool, error) {
	a, ok, err := db.Lookup(from)
	if err != nil || !ok {
		return 0, ok, wrapLookupErr(from, err)
	}
	b, ok, err := db.Lookup(to)
	if err != nil || !ok {
		return 0, ok, wrapLookupErr(to, err)
	}
	return Distance(a, b), true, nil
}

func wrapLookupErr(call string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("lookup(%q): %w", call, err)
}
