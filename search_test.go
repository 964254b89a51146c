package cty

import "testing"

func names(es []Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Name
	}
	return out
}

func TestFindEntities(t *testing.T) {
	db := loadTestdata(t)

	tests := []struct {
		name    string
		query   string
		maxDist int
		want    []string
	}{
		{"exact", "Poland", 2, []string{"Poland"}},
		{"case-insensitive", "united states", 0, []string{"United States"}},
		{"surrounding space", "  Japan ", 0, []string{"Japan"}},
		{"typo", "Lithuana", 2, []string{"Lithuania"}},
		{"typo without fuzzy", "Lithuana", 0, nil},
		{"distance capped", "Polandxxxxxx", 50, nil},
		{"empty", "", 3, nil},
		{"no match", "Atlantis", 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(db.FindEntities(tt.query, tt.maxDist))
			if len(got) != len(tt.want) {
				t.Fatalf("FindEntities(%q, %d) = %q, want %q", tt.query, tt.maxDist, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FindEntities(%q, %d)[%d] = %q, want %q", tt.query, tt.maxDist, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFindEntities_ClosestFirst(t *testing.T) {
	db := loadString(t, `Abcd:   1:  1:  EU:  1.0:  1.0:  0.0:  AA:
    AA;
Abc:    2:  2:  EU:  2.0:  2.0:  0.0:  AB:
    AB;
Abcde:  3:  3:  EU:  3.0:  3.0:  0.0:  AC:
    AC;
Zzzzzz: 4:  4:  EU:  4.0:  4.0:  0.0:  AD:
    AD;
`)

	got := names(db.FindEntities("abcx", 2))
	want := []string{"Abcd", "Abc", "Abcde"}
	if len(got) != len(want) {
		t.Fatalf("FindEntities(abcx) = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindEntities(abcx)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
