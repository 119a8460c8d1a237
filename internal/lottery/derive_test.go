package lottery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

func TestDeriveViable_Powerball(t *testing.T) {
	v, err := DeriveViable("powerball", NumberSet{Primary: []int{1, 2, 3}, Secondary: []int{10}}, NumberSet{})
	require.NoError(t, err)

	assert.Equal(t, SourceNonViable, v.Source)
	assert.True(t, v.Available)
	assert.Len(t, v.Numbers.Primary, 66)
	assert.Equal(t, seq(4, 69), v.Numbers.Primary)
	assert.Len(t, v.Numbers.Secondary, 25)
	assert.Equal(t, append(seq(1, 9), seq(11, 26)...), v.Numbers.Secondary)
}

func TestDeriveViable_DigitGameStartsAtZero(t *testing.T) {
	v, err := DeriveViable("PICK3", NumberSet{Primary: []int{0, 5, 9}}, NumberSet{})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 6, 7, 8}, v.Numbers.Primary)
	assert.Nil(t, v.Numbers.Secondary)
}

func TestDeriveViable_OutOfRangeInputIgnored(t *testing.T) {
	v, err := DeriveViable("pick3", NumberSet{Primary: []int{-1, 3, 10, 42}}, NumberSet{})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 7, 8, 9}, v.Numbers.Primary)
}

func TestDeriveViable_ComplementProperty(t *testing.T) {
	for _, def := range All() {
		nv := NumberSet{Primary: []int{def.Primary.Low, def.Primary.High, def.Primary.High + 5}}
		if def.Kind == KindDouble {
			nv.Secondary = []int{def.Secondary.Low}
		}
		v := def.DeriveViable(nv, NumberSet{})

		inNV := map[int]bool{}
		for _, n := range Filter(def.Primary, nv.Primary) {
			inNV[n] = true
		}
		covered := map[int]bool{}
		for _, n := range v.Numbers.Primary {
			assert.False(t, inNV[n], "%s: %d in both sets", def.Code, n)
			covered[n] = true
		}
		for n := range inNV {
			covered[n] = true
		}
		for n := def.Primary.Low; n <= def.Primary.High; n++ {
			assert.True(t, covered[n], "%s: %d missing from union", def.Code, n)
		}
	}
}

func TestDeriveViable_Idempotent(t *testing.T) {
	nv := NumberSet{Primary: []int{30, 4, 17, 4}, Secondary: []int{2, 1}}
	a, err := DeriveViable("megamillions", nv, NumberSet{})
	require.NoError(t, err)
	b, err := DeriveViable("megamillions", nv, NumberSet{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeriveViable_NonViableTakesPrecedence(t *testing.T) {
	nv := NumberSet{Primary: []int{1, 2}, Secondary: []int{1}}
	withLegacy, err := DeriveViable("powerball", nv, NumberSet{Primary: []int{5, 6, 7}, Secondary: []int{3}})
	require.NoError(t, err)
	withoutLegacy, err := DeriveViable("powerball", nv, NumberSet{})
	require.NoError(t, err)

	assert.Equal(t, withoutLegacy, withLegacy)
}

func TestDeriveViable_LegacyFallbackAndEmpty(t *testing.T) {
	v, err := DeriveViable("fantasy5", NumberSet{}, NumberSet{Primary: []int{9, 3, 3, 77}})
	require.NoError(t, err)
	assert.Equal(t, SourceLegacyViable, v.Source)
	assert.Equal(t, []int{3, 9}, v.Numbers.Primary)

	v, err = DeriveViable("fantasy5", NumberSet{}, NumberSet{})
	require.NoError(t, err)
	assert.Equal(t, SourceNone, v.Source)
	assert.False(t, v.Available)
	assert.Empty(t, v.Numbers.Primary)
}

func TestDeriveViable_AvailabilityFollowsSource(t *testing.T) {
	v, err := DeriveViable("pick3", NumberSet{Primary: seq(0, 9)}, NumberSet{})
	require.NoError(t, err)
	assert.Equal(t, SourceNonViable, v.Source)
	assert.True(t, v.Available, "every number non-viable is a recommendation to avoid all")
	assert.Empty(t, v.Numbers.Primary)

	v, err = DeriveViable("pick3", NumberSet{}, NumberSet{Primary: seq(0, 9)})
	require.NoError(t, err)
	assert.Equal(t, SourceLegacyViable, v.Source)
	assert.True(t, v.Available)
	assert.Equal(t, seq(0, 9), v.Numbers.Primary)
}

func TestDeriveViable_UnknownLottery(t *testing.T) {
	_, err := DeriveViable("keno", NumberSet{Primary: []int{1}}, NumberSet{})
	assert.True(t, errors.Is(err, ErrUnknownLottery))
}

func TestDefinition_Validate(t *testing.T) {
	pb, err := Lookup("powerball")
	require.NoError(t, err)

	got, err := pb.Validate(NumberSet{Primary: []int{9, 3, 9, 1}, Secondary: []int{26, 26}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 9}, got.Primary)
	assert.Equal(t, []int{26}, got.Secondary)

	_, err = pb.Validate(NumberSet{Primary: []int{0, 70}})
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, "primary", oor.Field)
	assert.Equal(t, []int{0, 70}, oor.Values)

	_, err = pb.Validate(NumberSet{Secondary: []int{27}})
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, "secondary", oor.Field)

	p3, _ := Lookup("pick3")
	_, err = p3.Validate(NumberSet{Primary: []int{1}, Secondary: []int{1}})
	require.ErrorAs(t, err, &oor)
}

func TestNonViableFromLegacy(t *testing.T) {
	p3, _ := Lookup("pick3")
	nv := p3.NonViableFromLegacy(NumberSet{Primary: []int{1, 2, 3}})
	assert.Equal(t, []int{0, 4, 5, 6, 7, 8, 9}, nv.Primary)

	back := p3.DeriveViable(nv, NumberSet{})
	assert.Equal(t, []int{1, 2, 3}, back.Numbers.Primary)

	full := p3.NonViableFromLegacy(NumberSet{Primary: seq(0, 9)})
	assert.True(t, full.Empty())
}
