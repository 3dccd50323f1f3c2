package cluster

import (
	"encoding/json"
	"sort"
	"strings"
)

// CapabilitySet is a set of capability tags, the unit of matching between a
// placement request and a node's declared abilities. Tags are opaque strings
// ("gpu", "wasm", "batch"); the coordination core never interprets them.
//
// The zero value is a usable empty set for reads, but callers building sets
// should use NewCapabilitySet so membership writes have a non-nil map.
type CapabilitySet map[string]struct{}

// NewCapabilitySet builds a set from the given tags. Empty tags are dropped.
func NewCapabilitySet(tags ...string) CapabilitySet {
	set := make(CapabilitySet, len(tags))
	for _, tag := range tags {
		if tag != "" {
			set[tag] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the given tag.
func (c CapabilitySet) Has(tag string) bool {
	_, ok := c[tag]
	return ok
}

// Superset reports whether every tag in required is present in c. An empty
// required set matches any node; this is how capability filtering in the
// load balancer degenerates to pure least-loaded selection.
func (c CapabilitySet) Superset(required CapabilitySet) bool {
	for tag := range required {
		if _, ok := c[tag]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (c CapabilitySet) Clone() CapabilitySet {
	out := make(CapabilitySet, len(c))
	for tag := range c {
		out[tag] = struct{}{}
	}
	return out
}

// List returns the tags in sorted order for deterministic output.
func (c CapabilitySet) List() []string {
	tags := make([]string, 0, len(c))
	for tag := range c {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// String renders the set as a comma-joined sorted list, for logs.
func (c CapabilitySet) String() string {
	return strings.Join(c.List(), ",")
}

// MarshalJSON encodes the set as a sorted JSON array of tags.
func (c CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.List())
}

// UnmarshalJSON decodes a JSON array of tags into the set.
func (c *CapabilitySet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*c = NewCapabilitySet(tags...)
	return nil
}
