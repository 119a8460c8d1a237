// Package lottery holds the static game catalog and the number-space
// arithmetic built on it: validating stored non-viable sets and deriving
// the viable complement shown to entitled users.
package lottery

import (
	"errors"
	"sort"
	"strings"
)

// Kind is the shape of a game's number space.
type Kind string

const (
	KindSingle Kind = "single" // one draw range
	KindDouble Kind = "double" // primary (white) + secondary (bonus) ranges
)

var ErrUnknownLottery = errors.New("unknown lottery code")

// Range is an inclusive integer interval with the count of numbers drawn from it.
type Range struct {
	Low   int `json:"low"`
	High  int `json:"high"`
	Picks int `json:"picks"`
}

// Contains reports whether n lies inside the range.
func (r Range) Contains(n int) bool {
	return n >= r.Low && n <= r.High
}

// Size is the number of integers in the range.
func (r Range) Size() int {
	return r.High - r.Low + 1
}

// Definition describes one supported game. Ranges never change at runtime.
type Definition struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Kind         Kind   `json:"kind"`
	Primary      Range  `json:"primary"`
	Secondary    *Range `json:"secondary,omitempty"`
	PriceCents   int64  `json:"price_cents"`
	DigitGame    bool   `json:"digit_game"`
	DrawSchedule string `json:"draw_schedule"`
}

var catalog = map[string]Definition{
	"powerball": {
		Code: "powerball", Name: "Powerball", Kind: KindDouble,
		Primary:      Range{Low: 1, High: 69, Picks: 5},
		Secondary:    &Range{Low: 1, High: 26, Picks: 1},
		PriceCents:   200,
		DrawSchedule: "Mon/Wed/Sat 22:59",
	},
	"megamillions": {
		Code: "megamillions", Name: "Mega Millions", Kind: KindDouble,
		Primary:      Range{Low: 1, High: 70, Picks: 5},
		Secondary:    &Range{Low: 1, High: 25, Picks: 1},
		PriceCents:   200,
		DrawSchedule: "Tue/Fri 23:00",
	},
	"cash4life": {
		Code: "cash4life", Name: "Cash4Life", Kind: KindDouble,
		Primary:      Range{Low: 1, High: 60, Picks: 5},
		Secondary:    &Range{Low: 1, High: 4, Picks: 1},
		PriceCents:   200,
		DrawSchedule: "Daily 21:00",
	},
	"lottoamerica": {
		Code: "lottoamerica", Name: "Lotto America", Kind: KindDouble,
		Primary:      Range{Low: 1, High: 52, Picks: 5},
		Secondary:    &Range{Low: 1, High: 10, Picks: 1},
		PriceCents:   100,
		DrawSchedule: "Mon/Wed/Sat 22:59",
	},
	"fantasy5": {
		Code: "fantasy5", Name: "Fantasy 5", Kind: KindSingle,
		Primary:      Range{Low: 1, High: 39, Picks: 5},
		PriceCents:   100,
		DrawSchedule: "Daily 21:30",
	},
	"pick3": {
		Code: "pick3", Name: "Pick 3", Kind: KindSingle, DigitGame: true,
		Primary:      Range{Low: 0, High: 9, Picks: 3},
		PriceCents:   100,
		DrawSchedule: "Daily 12:59/22:59",
	},
	"pick4": {
		Code: "pick4", Name: "Pick 4", Kind: KindSingle, DigitGame: true,
		Primary:      Range{Low: 0, High: 9, Picks: 4},
		PriceCents:   100,
		DrawSchedule: "Daily 12:59/22:59",
	},
}

// NormalizeCode lower-cases and trims a lottery code; codes compare case-insensitively.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Lookup returns the definition for code.
func Lookup(code string) (Definition, error) {
	def, ok := catalog[NormalizeCode(code)]
	if !ok {
		return Definition{}, ErrUnknownLottery
	}
	return def, nil
}

// IsValidCode reports whether code names a catalog entry.
func IsValidCode(code string) bool {
	_, ok := catalog[NormalizeCode(code)]
	return ok
}

// All returns every definition ordered by code.
func All() []Definition {
	defs := make([]Definition, 0, len(catalog))
	for _, d := range catalog {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs
}
