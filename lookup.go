package cty

import (
	"regexp"
	"strings"
	"sync"
)

// nonPrefixSuffix matches portable suffixes that describe operating
// conditions (/P, /QRP, /LH, ...) rather than a location.
var nonPrefixSuffix = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^([0-9AMPQR]|QRP[P]*|F[DF]|[AM]M|L[HT]|LGT)$`)
})

// normalizeCall upper-cases and trims a callsign.
func normalizeCall(call string) string {
	return strings.ToUpper(strings.TrimSpace(call))
}

// isMobile reports maritime or aeronautical mobile operation, which has no entity.
func isMobile(call string) bool {
	return strings.HasSuffix(call, "/MM") || strings.HasSuffix(call, "/AM")
}

// EffectivePrefix returns the part of call used for prefix matching.
// For "SP/LY1H" and "LY1H/SP" it is "SP"; for "LY1H/P" it is "LY1H".
func EffectivePrefix(call string) string {
	call = normalizeCall(call)
	slash := strings.IndexByte(call, '/')
	if slash < 0 {
		return call
	}

	left, right := call[:slash], call[slash+1:]
	if len(right) >= len(left) {
		return left
	}
	if nonPrefixSuffix().MatchString(right) {
		return left
	}
	return right
}

// Lookup resolves call to its entity. ok is false when nothing matches,
// including maritime and aeronautical mobile calls. err is set only when the
// matched rule carries an override that does not parse.
func (db *Database) Lookup(call string) (Result, bool, error) {
	call = normalizeCall(call)

	db.mu.RLock()
	defer db.mu.RUnlock()

	rule, ok := db.match(call)
	if !ok {
		return Result{}, false, nil
	}
	e, ok := db.resolveEntity(call, rule)
	if !ok {
		return Result{}, false, nil
	}
	r, err := Fixup(*rule, *e)
	if err != nil {
		return Result{}, false, err
	}
	return r, true, nil
}

// match finds the rule for an already normalized call. Caller holds db.mu.
func (db *Database) match(call string) (*PrefixRule, bool) {
	if call == "" || isMobile(call) {
		return nil, false
	}

	search := EffectivePrefix(call)
	if search != call {
		if p, ok := db.prefixes[call]; ok && p.Exact {
			return p, true
		}
	}

	for ; search != ""; search = search[:len(search)-1] {
		p, ok := db.prefixes[search]
		if !ok {
			continue
		}
		if !p.Exact || len(search) == len(call) {
			return p, true
		}
	}
	return nil, false
}

// resolveEntity returns the entity for rule. KG4 calls other than the 3- and
// 5-character Guantanamo Bay forms belong to the entity holding "K".
func (db *Database) resolveEntity(call string, rule *PrefixRule) (*Entity, bool) {
	if strings.HasPrefix(call, "KG4") && len(call) != 3 && len(call) != 5 {
		if k, ok := db.prefixes["K"]; ok {
			e, ok := db.entities[k.EntityID]
			return e, ok
		}
	}
	e, ok := db.entities[rule.EntityID]
	return e, ok
}
