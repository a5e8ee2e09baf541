package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellIDIsStableForSameCoordinate(t *testing.T) {
	a := CellID(407589000, -739851000)
	b := CellID(407589000, -739851000)
	assert.Equal(t, a, b)
}

func TestCellIDDiffersForDistantCoordinates(t *testing.T) {
	newYork := CellID(407128000, -740060000)
	tokyo := CellID(356895000, 1396450000)
	assert.NotEqual(t, newYork, tokyo)
}

func TestCellIDNearbyCoordinatesShareOrDifferByOneCell(t *testing.T) {
	a := CellID(407128000, -740060000)
	b := CellID(407128001, -740060001)
	// Both must at least resolve without panicking, and a cell id of 0 would
	// indicate the level 16 parent computation failed.
	assert.NotZero(t, a)
	assert.NotZero(t, b)
}
