package assets

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningMarks is the Combining Diacritical Marks block (U+0300..U+036F).
var combiningMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

// Normalize decomposes accents, drops the combining marks, upper-cases and
// trims. "joão silva" and "Joao Silva" both become "JOAO SILVA".
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	// transform.Chain keeps state, so one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(combiningMarks)))
	out, _, err := transform.String(t, name)
	if err != nil {
		out = name
	}
	return strings.TrimSpace(strings.ToUpper(out))
}

// Resolver looks up the alert clip for a vendor. Safe for concurrent use
// once built; the table is never mutated.
type Resolver struct {
	byName   map[string]string
	fallback string
}

func NewResolver(c Catalog) *Resolver {
	r := &Resolver{byName: make(map[string]string, len(c.Vendors)), fallback: c.Default}
	if r.fallback == "" {
		r.fallback = DefaultAsset
	}
	for name, ref := range c.Vendors {
		if k := Normalize(name); k != "" && ref != "" {
			r.byName[k] = ref
		}
	}
	return r
}

// Resolve never fails: unknown or blank names get the default clip.
func (r *Resolver) Resolve(rawName string) string {
	key := Normalize(rawName)
	if key == "" {
		return r.fallback
	}
	if ref, ok := r.byName[key]; ok {
		return ref
	}
	return r.fallback
}

func (r *Resolver) Default() string { return r.fallback }

func (r *Resolver) Len() int { return len(r.byName) }
