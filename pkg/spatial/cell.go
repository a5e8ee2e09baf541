// Package spatial computes the fixed-level S2 cell id used to index
// nodes for proximity queries (spec §4.A's `cell_node` table), grounded
// in original_source's own use of S2 for the same purpose.
package spatial

import "github.com/golang/geo/s2"

// CellLevel is the S2 cell level used for the `cell_node` index. Level 16
// gives cells on the order of a few hundred meters across, fine enough to
// keep per-cell node counts low in dense urban areas without bloating the
// index with near-point-sized cells in sparse ones.
const CellLevel = 16

// CellID returns the CellLevel s2 cell id covering (latE7, lonE7), encoded
// as the fixed-point coordinates used throughout this module.
func CellID(latE7, lonE7 int32) int64 {
	ll := s2.LatLngFromDegrees(float64(latE7)/1e7, float64(lonE7)/1e7)
	cell := s2.CellIDFromLatLng(ll).Parent(CellLevel)
	return int64(cell)
}
