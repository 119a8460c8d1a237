package lottery

// Source tells which stored field a Viable result was computed from.
type Source string

const (
	SourceNonViable    Source = "non_viable"
	SourceLegacyViable Source = "legacy_viable"
	SourceNone         Source = "none"
)

// Viable is the recommended number set for one prediction.
// Available follows the source: false means no recommendation exists.
// An available result with no numbers means "avoid everything".
type Viable struct {
	LotteryCode string    `json:"lottery_code"`
	Kind        Kind      `json:"kind"`
	Numbers     NumberSet `json:"numbers"`
	Source      Source    `json:"source"`
	Available   bool      `json:"available"`
}

// DeriveViable computes the viable numbers for a prediction of the given
// lottery. Stored non-viable numbers win whenever they are non-empty; the
// legacy viable field is only read for records that never had non-viable
// data. Output order is ascending and depends only on the inputs.
func DeriveViable(code string, nonViable, legacyViable NumberSet) (Viable, error) {
	def, err := Lookup(code)
	if err != nil {
		return Viable{}, err
	}
	return def.DeriveViable(nonViable, legacyViable), nil
}

// DeriveViable is the Definition-bound form of the package function.
func (d Definition) DeriveViable(nonViable, legacyViable NumberSet) Viable {
	out := Viable{LotteryCode: d.Code, Kind: d.Kind, Source: SourceNone}

	switch {
	case !nonViable.Empty():
		out.Source = SourceNonViable
		out.Numbers.Primary = Complement(d.Primary, nonViable.Primary)
		if d.Kind == KindDouble {
			out.Numbers.Secondary = Complement(*d.Secondary, nonViable.Secondary)
		}
	case !legacyViable.Empty():
		out.Source = SourceLegacyViable
		out.Numbers.Primary = Filter(d.Primary, legacyViable.Primary)
		if d.Kind == KindDouble {
			out.Numbers.Secondary = Filter(*d.Secondary, legacyViable.Secondary)
		}
	default:
		out.Numbers.Primary = []int{}
		return out
	}

	out.Available = true
	return out
}

// NonViableFromLegacy converts a legacy viable set into the canonical
// non-viable form. Used by the one-time data migration. A legacy set covering
// every number converts to an empty set, which has no non-viable form.
func (d Definition) NonViableFromLegacy(legacyViable NumberSet) NumberSet {
	out := NumberSet{Primary: Complement(d.Primary, Filter(d.Primary, legacyViable.Primary))}
	if d.Kind == KindDouble {
		out.Secondary = Complement(*d.Secondary, Filter(*d.Secondary, legacyViable.Secondary))
	}
	return out
}
