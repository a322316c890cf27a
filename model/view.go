package model

// AgentView is a read-only copy of the agent state a renderer needs
type AgentView struct {
	ID           int64
	X            int
	Y            int
	Status       HealthStatus
	IsVaccinated bool
	Symptomatic  *bool
}

// Portrayal keys, one legend entry each
const (
	PortrayalVaccinated   = "vaccinated"
	PortrayalSusceptible  = "susceptible"
	PortrayalSymptomatic  = "infected-symptomatic"
	PortrayalAsymptomatic = "infected-asymptomatic"
	PortrayalRecovered    = "recovered"
	PortrayalDead         = "dead"
)

// Portrayal maps the agent to its legend key; vaccination takes precedence over status
func (v AgentView) Portrayal() string {
	if v.IsVaccinated {
		return PortrayalVaccinated
	}
	switch v.Status {
	case Susceptible:
		return PortrayalSusceptible
	case Infected:
		if v.Symptomatic != nil && !*v.Symptomatic {
			return PortrayalAsymptomatic
		}
		return PortrayalSymptomatic
	case Recovered:
		return PortrayalRecovered
	}
	return PortrayalDead
}

// Snapshot copies the renderable state of every agent, ordered by id
func (m *VirusModel) Snapshot() []AgentView {
	ret := make([]AgentView, len(m.Schedule.Agents))
	for i, agent := range m.Schedule.Agents {
		var symptomatic *bool
		if agent.Symptomatic != nil {
			s := *agent.Symptomatic
			symptomatic = &s
		}
		ret[i] = AgentView{
			ID:           agent.ID,
			X:            agent.Pos.X,
			Y:            agent.Pos.Y,
			Status:       agent.Status,
			IsVaccinated: agent.IsVaccinated,
			Symptomatic:  symptomatic,
		}
	}
	return ret
}
