package paramspace

import (
	"fmt"
	"strconv"
	"strings"
)

const paramCount = 512

// Location identifies a single byte in the 512-byte parameter space, either
// by raw index or by name: a closed choice of Index(0..=511) | NameLike(string).
type Location struct {
	name    string
	index   int
	isIndex bool
}

// ByIndex builds a Location from a raw offset.
func ByIndex(i int) Location {
	return Location{index: i, isIndex: true}
}

// ByName builds a Location from a name or synonym; resolution happens at
// Resolve time, not construction time.
func ByName(name string) Location {
	return Location{name: name}
}

// wellKnown maps the canonical parameter name to its byte offset.
var wellKnown = map[string]int{
	"nand_mode": 2,
	"sdk_major": 3,
	"sdk_minor": 4,
	"sdk_misc":  5,
}

// synonyms maps alternate spellings (hyphen/underscore/space variants, and
// the informal "major"/"minor" shorthands used by legacy CLIs) to the
// canonical name.
var synonyms = map[string]string{
	"nand-mode": "nand_mode",
	"nand mode": "nand_mode",
	"nandmode":  "nand_mode",

	"sdk-major": "sdk_major",
	"sdk major": "sdk_major",
	"major":     "sdk_major",

	"sdk-minor": "sdk_minor",
	"sdk minor": "sdk_minor",
	"minor":     "sdk_minor",

	"sdk-misc": "sdk_misc",
	"sdk misc": "sdk_misc",
	"misc":     "sdk_misc",
}

// canonicalize trims surrounding space and lowercases; hyphen and space
// variants are their own keys in synonyms, so a single map lookup handles
// every named synonym.
func canonicalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve turns a Location into a concrete offset in [0,511]: a partial
// function from string ∪ {0..=511} to {0..=511}.
func (l Location) Resolve() (int, error) {
	if l.isIndex {
		if l.index < 0 || l.index > paramCount-1 {
			return 0, fmt.Errorf("paramspace: index %d out of range [0,%d]", l.index, paramCount-1)
		}
		return l.index, nil
	}

	key := canonicalize(l.name)
	if canon, ok := synonyms[key]; ok {
		key = canon
	}
	if off, ok := wellKnown[key]; ok {
		return off, nil
	}

	if n, err := strconv.Atoi(strings.TrimSpace(l.name)); err == nil {
		if n < 0 || n > paramCount-1 {
			return 0, fmt.Errorf("paramspace: index %d out of range [0,%d]", n, paramCount-1)
		}
		return n, nil
	}

	return 0, fmt.Errorf("paramspace: unknown parameter name %q", l.name)
}
