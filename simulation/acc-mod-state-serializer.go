package simulation

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// SaveAccumulativeModelState writes the trajectory as lz4-compressed little-endian binary:
// steps, agents, statuses [steps][agents]uint8, positions [steps][agents][2]int16
func SaveAccumulativeModelState(path string, state *AccumulativeModelState) error {
	var buf bytes.Buffer

	steps := int32(len(state.Statuses))
	agents := int32(0)
	if steps > 0 {
		agents = int32(len(state.Statuses[0]))
	}
	if len(state.Positions) != int(steps) {
		return fmt.Errorf("trajectory holds %d status rows but %d position rows", steps, len(state.Positions))
	}

	binary.Write(&buf, binary.LittleEndian, steps)
	binary.Write(&buf, binary.LittleEndian, agents)

	for i, row := range state.Statuses {
		if len(row) != int(agents) {
			return fmt.Errorf("status row %d has %d agents, expected %d", i, len(row), agents)
		}
		buf.Write(row)
	}

	for i, row := range state.Positions {
		if len(row) != int(agents) {
			return fmt.Errorf("position row %d has %d agents, expected %d", i, len(row), agents)
		}
		if err := binary.Write(&buf, binary.LittleEndian, row); err != nil {
			return err
		}
	}

	var out bytes.Buffer
	w := lz4.NewWriter(&out)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return writeFileAtomic(path, out.Bytes())
}

// LoadAccumulativeModelState reads a file written by SaveAccumulativeModelState
func LoadAccumulativeModelState(path string) (*AccumulativeModelState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lz4.NewReader(bytes.NewReader(raw))); err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	reader := bytes.NewReader(buf.Bytes())

	var steps, agents int32
	if err := binary.Read(reader, binary.LittleEndian, &steps); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.LittleEndian, &agents); err != nil {
		return nil, err
	}

	state := NewAccumulativeModelState()
	for range steps {
		row := make([]uint8, agents)
		if _, err := io.ReadFull(reader, row); err != nil {
			return nil, fmt.Errorf("reading statuses: %w", err)
		}
		state.Statuses = append(state.Statuses, row)
	}
	for range steps {
		row := make([][2]int16, agents)
		if err := binary.Read(reader, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("reading positions: %w", err)
		}
		state.Positions = append(state.Positions, row)
	}

	return state, nil
}
