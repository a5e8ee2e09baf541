/*
Package types defines osmaug's OSM entity model: nodes, ways, relations,
and the small value types (Tag, Meta, Location, Member) they are built
from.

These are the types every other package in this module passes around —
pkg/codec encodes and decodes them, pkg/store persists Location and the
serialized form of the other three, pkg/diff reconstructs before/after
pairs of them, and pkg/apply writes them into the store. None of them know
how to serialize themselves; that separation keeps the wire format
(pkg/codec) independent from the in-memory shape used for diffing.
*/
package types
