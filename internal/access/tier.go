package access

import (
	dErrors "campaign/pkg/domain-errors"
)

// Tier is the access level of a document. Tiers are totally ordered:
// public < restricted < private.
type Tier string

const (
	TierPublic     Tier = "public"
	TierRestricted Tier = "restricted"
	TierPrivate    Tier = "private"
)

var tierRank = map[Tier]int{
	TierPublic:     0,
	TierRestricted: 1,
	TierPrivate:    2,
}

// ParseTier validates a tier from external input.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierRank[t]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown tier: "+s)
	}
	return t, nil
}

func (t Tier) IsValid() bool {
	_, ok := tierRank[t]
	return ok
}

func (t Tier) String() string { return string(t) }

// Rank returns the position of t in the tier order. Unknown tiers rank above
// private so that a corrupt value is never readable.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return len(tierRank)
}

// Tightens reports whether moving from prev to t narrows who may read.
func (t Tier) Tightens(prev Tier) bool {
	return t.Rank() > prev.Rank()
}

// Tiers lists all tiers in ascending order.
func Tiers() []Tier {
	return []Tier{TierPublic, TierRestricted, TierPrivate}
}
