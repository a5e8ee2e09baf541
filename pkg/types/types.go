package types

import "time"

// MemberKind identifies the kind of entity a relation member refers to.
type MemberKind uint8

const (
	MemberNode MemberKind = iota
	MemberWay
	MemberRelation
)

func (k MemberKind) String() string {
	switch k {
	case MemberNode:
		return "node"
	case MemberWay:
		return "way"
	case MemberRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Tag is an ordered OSM key/value pair. Order is preserved end to end
// because the codec round-trip (spec §8) must be exact.
type Tag struct {
	Key   string
	Value string
}

// Meta holds the fields common to every OSM entity kind.
type Meta struct {
	Version   int32
	Timestamp time.Time
	Changeset int64
	UID       int32
	User      string
}

// Location is a node's fixed-point coordinate pair plus the version it was
// last written at (store table `locations`, spec §3).
type Location struct {
	LatE7   int32
	LonE7   int32
	Version int32
}

// Lat returns the location's latitude in degrees.
func (l Location) Lat() float64 { return float64(l.LatE7) / 1e7 }

// Lon returns the location's longitude in degrees.
func (l Location) Lon() float64 { return float64(l.LonE7) / 1e7 }

// Node is an OSM node: a geolocated point with optional tags.
type Node struct {
	ID      int64
	Visible bool
	Meta    Meta
	Tags    []Tag

	// HasLocation is true when LatE7/LonE7 carry a meaningful coordinate. A
	// visible node from the change stream always has one; a minimal old
	// image synthesized from the store for a deleted node does too, but a
	// bare reference with no resolvable location (spec §7, "missing
	// referenced entity") does not.
	HasLocation bool
	LatE7       int32
	LonE7       int32
}

// NodeRef is a way's reference to a node. The change stream decorates a
// node ref with its coordinate when that node was itself touched by the
// same change file; otherwise the coordinate must be backfilled from the
// store (spec §4.F). This mirrors osmium::NodeRef's defined/undefined
// location duality.
type NodeRef struct {
	Ref         int64
	HasLocation bool
	LatE7       int32
	LonE7       int32
}

// Bounds is a way's geographic bounding box (spec §4.F: "new includes an
// envelope").
type Bounds struct {
	MinLatE7, MinLonE7 int32
	MaxLatE7, MaxLonE7 int32
}

// Way is an OSM way: an ordered polyline of nodes with optional tags.
type Way struct {
	ID      int64
	Visible bool
	Meta    Meta
	Tags    []Tag
	Nodes   []NodeRef
}

// Member is one entry in a relation's ordered member list.
type Member struct {
	Kind MemberKind
	Ref  int64
	Role string
}

// Relation is an OSM relation: a typed grouping of members with roles.
type Relation struct {
	ID      int64
	Visible bool
	Meta    Meta
	Tags    []Tag
	Members []Member
}
