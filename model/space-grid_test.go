package model

import "testing"

func TestNeighborhoodClipping(t *testing.T) {
	g := NewMultiGrid(5, 4)

	tests := []struct {
		name string
		pos  Position
		want int
	}{
		{"corner", Position{0, 0}, 3},
		{"opposite corner", Position{4, 3}, 3},
		{"edge", Position{2, 0}, 5},
		{"interior", Position{2, 2}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := g.Neighborhood(tt.pos)
			if len(cells) != tt.want {
				t.Errorf("Neighborhood(%v) has %d cells, want %d", tt.pos, len(cells), tt.want)
			}
			for _, c := range cells {
				if g.OutOfBounds(c) {
					t.Errorf("cell %v is out of bounds", c)
				}
				if c == tt.pos {
					t.Errorf("center %v included", c)
				}
				if abs(c.X-tt.pos.X) > 1 || abs(c.Y-tt.pos.Y) > 1 {
					t.Errorf("cell %v is not adjacent to %v", c, tt.pos)
				}
			}
		})
	}

	if cells := NewMultiGrid(1, 1).Neighborhood(Position{0, 0}); len(cells) != 0 {
		t.Errorf("1x1 grid should have no neighbors, got %v", cells)
	}
}

func TestPlaceAndMoveAgent(t *testing.T) {
	g := NewMultiGrid(3, 3)
	a := &VirusAgent{ID: 0}
	b := &VirusAgent{ID: 1}

	if g.EmptyCount() != 9 {
		t.Fatalf("expected 9 empty cells, got %d", g.EmptyCount())
	}

	g.PlaceAgent(a, Position{1, 1})
	g.PlaceAgent(b, Position{0, 0})
	if a.Pos != (Position{1, 1}) {
		t.Errorf("PlaceAgent did not update position: %v", a.Pos)
	}
	if g.IsCellEmpty(Position{1, 1}) || g.IsCellEmpty(Position{0, 0}) {
		t.Error("occupied cells reported empty")
	}
	if g.EmptyCount() != 7 {
		t.Errorf("expected 7 empty cells, got %d", g.EmptyCount())
	}

	neighbors := g.GetNeighbors(Position{1, 1})
	if len(neighbors) != 1 || neighbors[0] != b {
		t.Errorf("expected b as only neighbor of a, got %v", neighbors)
	}

	g.MoveAgent(a, Position{2, 2})
	if !g.IsCellEmpty(Position{1, 1}) {
		t.Error("old cell still occupied after move")
	}
	if g.IsCellEmpty(Position{2, 2}) || a.Pos != (Position{2, 2}) {
		t.Error("agent not found on its new cell")
	}
	if g.EmptyCount() != 7 {
		t.Errorf("move changed the empty count to %d", g.EmptyCount())
	}
	if neighbors := g.GetNeighbors(Position{0, 0}); len(neighbors) != 0 {
		t.Errorf("expected no neighbors of b after the move, got %d", len(neighbors))
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
