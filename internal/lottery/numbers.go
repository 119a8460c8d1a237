package lottery

import (
	"fmt"
	"sort"
)

// NumberSet is the per-kind payload of non-viable (or viable) numbers.
// Secondary is only meaningful for KindDouble games.
type NumberSet struct {
	Primary   []int `json:"primary"`
	Secondary []int `json:"secondary,omitempty"`
}

// Empty reports whether neither side holds any number.
func (s NumberSet) Empty() bool {
	return len(s.Primary) == 0 && len(s.Secondary) == 0
}

// OutOfRangeError lists values rejected by Validate.
type OutOfRangeError struct {
	Field  string
	Values []int
	Range  Range
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: values %v outside [%d, %d]", e.Field, e.Values, e.Range.Low, e.Range.High)
}

// Filter keeps the in-range values of nums, de-duplicated and sorted ascending.
func Filter(r Range, nums []int) []int {
	seen := make(map[int]struct{}, len(nums))
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if !r.Contains(n) {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func outOfRange(r Range, nums []int) []int {
	var bad []int
	for _, n := range nums {
		if !r.Contains(n) {
			bad = append(bad, n)
		}
	}
	return bad
}

// Validate is the write-time check for admin input: every value must be in
// range. The returned set is de-duplicated and sorted. Secondary values on a
// single-range game are rejected.
func (d Definition) Validate(set NumberSet) (NumberSet, error) {
	if bad := outOfRange(d.Primary, set.Primary); len(bad) > 0 {
		return NumberSet{}, &OutOfRangeError{Field: "primary", Values: bad, Range: d.Primary}
	}
	out := NumberSet{Primary: Filter(d.Primary, set.Primary)}

	if d.Kind != KindDouble {
		if len(set.Secondary) > 0 {
			return NumberSet{}, &OutOfRangeError{Field: "secondary", Values: set.Secondary, Range: Range{}}
		}
		return out, nil
	}
	if bad := outOfRange(*d.Secondary, set.Secondary); len(bad) > 0 {
		return NumberSet{}, &OutOfRangeError{Field: "secondary", Values: bad, Range: *d.Secondary}
	}
	out.Secondary = Filter(*d.Secondary, set.Secondary)
	return out, nil
}

// Complement returns every integer of r not present in exclude, ascending.
// Values of exclude outside r are ignored.
func Complement(r Range, exclude []int) []int {
	skip := make(map[int]struct{}, len(exclude))
	for _, n := range exclude {
		skip[n] = struct{}{}
	}
	out := make([]int, 0, r.Size())
	for n := r.Low; n <= r.High; n++ {
		if _, ok := skip[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
