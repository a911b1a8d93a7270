// Package access decides whether a caller may read a document of a given tier.
//
// Capabilities form a closed set, each mapped to the highest tier it unlocks.
// Only the administrator capability reaches the private tier; that rule is
// fixed here and cannot be relaxed per document.
package access

import "sort"

// Capability is a named grant carried by a caller.
type Capability string

const (
	CapabilitySubscriber    Capability = "subscriber"
	CapabilityEditor        Capability = "editor"
	CapabilityAdministrator Capability = "administrator"
)

var capabilityTier = map[Capability]Tier{
	CapabilitySubscriber:    TierRestricted,
	CapabilityEditor:        TierRestricted,
	CapabilityAdministrator: TierPrivate,
}

// Capabilities is a set of known capabilities.
type Capabilities map[Capability]struct{}

// ParseCapabilities builds a set from raw names. Unknown names are dropped.
func ParseCapabilities(names []string) Capabilities {
	caps := make(Capabilities, len(names))
	for _, n := range names {
		c := Capability(n)
		if _, ok := capabilityTier[c]; ok {
			caps[c] = struct{}{}
		}
	}
	return caps
}

// NewCapabilities is a convenience for typed construction.
func NewCapabilities(cs ...Capability) Capabilities {
	caps := make(Capabilities, len(cs))
	for _, c := range cs {
		if _, ok := capabilityTier[c]; ok {
			caps[c] = struct{}{}
		}
	}
	return caps
}

func (c Capabilities) Has(capability Capability) bool {
	_, ok := c[capability]
	return ok
}

// Names returns the capability names in sorted order.
func (c Capabilities) Names() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// MaxReadable returns the highest tier the capability set may read.
func MaxReadable(caps Capabilities) Tier {
	best := TierPublic
	for c := range caps {
		if t := capabilityTier[c]; t.Rank() > best.Rank() {
			best = t
		}
	}
	return best
}

// CanRead reports whether caps may read a document of tier.
func CanRead(caps Capabilities, tier Tier) bool {
	if tier == TierPublic {
		return true
	}
	if tier == TierPrivate {
		return caps.Has(CapabilityAdministrator)
	}
	if !tier.IsValid() {
		return false
	}
	return MaxReadable(caps).Rank() >= tier.Rank()
}
