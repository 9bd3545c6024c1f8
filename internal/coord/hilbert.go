package coord

import "sort"

// hilbertIndex returns the Hilbert curve position of (x, y) on an n by n
// grid, n a power of two. At each scale the quadrant bit pair picks the
// curve segment and the coordinates are rotated into that quadrant's frame.
func hilbertIndex(x, y, n uint64) uint64 {
	var d uint64
	for side := n / 2; side > 0; side /= 2 {
		var rx, ry uint64
		if x&side > 0 {
			rx = 1
		}
		if y&side > 0 {
			ry = 1
		}
		d += side * side * ((3 * rx) ^ ry)
		if ry == 0 {
			if rx == 1 {
				x = side*2 - 1 - x
				y = side*2 - 1 - y
			}
			x, y = y, x
		}
	}
	return d
}

// SortTilesByHilbert orders [z, x, y] tiles along the Hilbert curve of
// their zoom level. Neighbours on the curve are neighbours in the grid, so
// workers pulling from the sorted queue revisit the same source rows while
// they are still warm. All tiles must share one zoom level.
func SortTilesByHilbert(tiles [][3]int) {
	if len(tiles) <= 1 {
		return
	}
	n := uint64(1) << uint(tiles[0][0])

	keyed := make([]struct {
		key  uint64
		tile [3]int
	}, len(tiles))
	for i, t := range tiles {
		keyed[i].key = hilbertIndex(uint64(t[1]), uint64(t[2]), n)
		keyed[i].tile = t
	}
	sort.Slice(keyed, func(i, j int) bool { return keyed[i].key < keyed[j].key })
	for i := range keyed {
		tiles[i] = keyed[i].tile
	}
}
