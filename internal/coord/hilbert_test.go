package coord

import "testing"

func TestSortTilesByHilbert(t *testing.T) {
	// The full grid at z=2, in row-major order.
	var tiles [][3]int
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			tiles = append(tiles, [3]int{2, x, y})
		}
	}

	SortTilesByHilbert(tiles)

	if len(tiles) != 16 {
		t.Fatalf("len = %d, want 16", len(tiles))
	}

	// Still a permutation of the grid.
	seen := make(map[[3]int]bool, len(tiles))
	for _, tile := range tiles {
		if seen[tile] {
			t.Fatalf("tile %v duplicated by sort", tile)
		}
		seen[tile] = true
	}

	// On a complete grid, consecutive tiles on the Hilbert curve are grid
	// neighbours.
	for i := 1; i < len(tiles); i++ {
		dx := tiles[i][1] - tiles[i-1][1]
		dy := tiles[i][2] - tiles[i-1][2]
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		if dx+dy != 1 {
			t.Errorf("tiles %v and %v are not adjacent on the curve", tiles[i-1], tiles[i])
		}
	}
}

func TestSortTilesByHilbertSmall(t *testing.T) {
	SortTilesByHilbert(nil)

	one := [][3]int{{3, 5, 2}}
	SortTilesByHilbert(one)
	if one[0] != [3]int{3, 5, 2} {
		t.Errorf("single tile changed: %v", one[0])
	}
}
