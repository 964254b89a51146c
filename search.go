package cty

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxFuzzyDistance caps the edit distance accepted by FindEntities.
const maxFuzzyDistance = 3

// FindEntities returns entities whose name matches name case-insensitively.
// When there is no exact match and maxDist > 0, names within maxDist edits
// are returned instead, closest first. This searches entity names only;
// callsigns are always resolved by Lookup.
func (db *Database) FindEntities(name string, maxDist int) []Entity {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if maxDist > maxFuzzyDistance {
		maxDist = maxFuzzyDistance
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var exact []Entity
	for _, e := range db.entities {
		if strings.EqualFold(e.Name, name) {
			exact = append(exact, *e)
		}
	}
	if len(exact) > 0 || maxDist <= 0 {
		sort.Slice(exact, func(i, j int) bool { return exact[i].ID < exact[j].ID })
		return exact
	}

	type candidate struct {
		e    Entity
		dist int
	}
	var candidates []candidate
	query := strings.ToLower(name)
	for _, e := range db.entities {
		d := levenshtein.ComputeDistance(query, strings.ToLower(e.Name))
		if d <= maxDist {
			candidates = append(candidates, candidate{e: *e, dist: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].e.ID < candidates[j].e.ID
	})

	out := make([]Entity, len(candidates))
	for i, c := range candidates {
		out[i] = c.e
	}
	return out
}
