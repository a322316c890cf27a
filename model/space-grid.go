package model

// Position is a cell coordinate on the grid
type Position struct {
	X int
	Y int
}

// MultiGrid is a finite, non-wrapping W*H cell space.
// A cell may hold any number of agents; keeping occupancy at one per cell
// is the job of the placement and movement callers.
type MultiGrid struct {
	Width  int
	Height int
	cells  [][]*VirusAgent
	filled int
}

// NewMultiGrid creates an empty grid
func NewMultiGrid(width int, height int) *MultiGrid {
	return &MultiGrid{
		Width:  width,
		Height: height,
		cells:  make([][]*VirusAgent, width*height),
	}
}

func (g *MultiGrid) index(pos Position) int {
	return pos.X*g.Height + pos.Y
}

// OutOfBounds reports whether pos lies outside the grid
func (g *MultiGrid) OutOfBounds(pos Position) bool {
	return pos.X < 0 || pos.X >= g.Width || pos.Y < 0 || pos.Y >= g.Height
}

// Neighborhood returns the Moore-adjacent cells of pos, clipped at the edges.
// The center is excluded; the order is by dx, then dy.
func (g *MultiGrid) Neighborhood(pos Position) []Position {
	result := make([]Position, 0, 8)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			cell := Position{pos.X + dx, pos.Y + dy}
			if !g.OutOfBounds(cell) {
				result = append(result, cell)
			}
		}
	}
	return result
}

// GetCellListContents returns the agents occupying the given cells
func (g *MultiGrid) GetCellListContents(cells []Position) []*VirusAgent {
	var result []*VirusAgent
	for _, cell := range cells {
		result = append(result, g.cells[g.index(cell)]...)
	}
	return result
}

// GetNeighbors returns the agents in the Moore neighborhood of pos
func (g *MultiGrid) GetNeighbors(pos Position) []*VirusAgent {
	return g.GetCellListContents(g.Neighborhood(pos))
}

// IsCellEmpty reports whether no agent occupies pos
func (g *MultiGrid) IsCellEmpty(pos Position) bool {
	return len(g.cells[g.index(pos)]) == 0
}

// EmptyCount returns the number of unoccupied cells
func (g *MultiGrid) EmptyCount() int {
	return len(g.cells) - g.filled
}

// PlaceAgent puts the agent on pos and updates its position
func (g *MultiGrid) PlaceAgent(agent *VirusAgent, pos Position) {
	i := g.index(pos)
	if len(g.cells[i]) == 0 {
		g.filled++
	}
	g.cells[i] = append(g.cells[i], agent)
	agent.Pos = pos
}

// RemoveAgent takes the agent off its current cell
func (g *MultiGrid) RemoveAgent(agent *VirusAgent) {
	i := g.index(agent.Pos)
	cell := g.cells[i]
	for j, a := range cell {
		if a == agent {
			g.cells[i] = append(cell[:j:j], cell[j+1:]...)
			break
		}
	}
	if len(cell) > 0 && len(g.cells[i]) == 0 {
		g.filled--
	}
}

// MoveAgent relocates the agent from its current cell to pos
func (g *MultiGrid) MoveAgent(agent *VirusAgent, pos Position) {
	g.RemoveAgent(agent)
	g.PlaceAgent(agent, pos)
}
