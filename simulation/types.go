package simulation

import (
	"virus-model/model"
)

// vaccinatedBit marks a vaccinated agent in an encoded status byte
const vaccinatedBit = 0x80

// EncodeAgentState packs status and vaccination into one byte
func EncodeAgentState(agent *model.VirusAgent) uint8 {
	code := uint8(agent.Status)
	if agent.IsVaccinated {
		code |= vaccinatedBit
	}
	return code
}

// DecodeAgentState unpacks a byte written by EncodeAgentState
func DecodeAgentState(code uint8) (model.HealthStatus, bool) {
	return model.HealthStatus(code &^ vaccinatedBit), code&vaccinatedBit != 0
}

type AccumulativeModelState struct {
	// (step, agent)
	Statuses [][]uint8
	// (step, agent, xy)
	Positions [][][2]int16

	UnsafeInfectionEvent int
}

func NewAccumulativeModelState() *AccumulativeModelState {
	return &AccumulativeModelState{
		Statuses:  make([][]uint8, 0),
		Positions: make([][][2]int16, 0),
	}
}

func (s *AccumulativeModelState) accumulate(m *model.VirusModel) {
	agents := m.Schedule.Agents
	statuses := make([]uint8, len(agents))
	positions := make([][2]int16, len(agents))
	for i, agent := range agents {
		statuses[i] = EncodeAgentState(agent)
		positions[i] = [2]int16{int16(agent.Pos.X), int16(agent.Pos.Y)}
	}
	s.Statuses = append(s.Statuses, statuses)
	s.Positions = append(s.Positions, positions)
}

func (s *AccumulativeModelState) validate(m *model.VirusModel) bool {
	st := m.CurStep
	return len(s.Statuses) == st &&
		len(s.Positions) == st
}
