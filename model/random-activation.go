package model

// RandomActivation manages agent activation and scheduling
type RandomActivation struct {
	Model  *VirusModel
	Agents []*VirusAgent
}

// NewRandomActivation creates a new random activation scheduler
func NewRandomActivation(model *VirusModel) *RandomActivation {
	return &RandomActivation{
		Model:  model,
		Agents: make([]*VirusAgent, 0),
	}
}

// AddAgent adds an agent to the scheduler
func (ra *RandomActivation) AddAgent(agent *VirusAgent) {
	ra.Agents = append(ra.Agents, agent)
}

// Step activates all agents once, in an order reshuffled every call
func (ra *RandomActivation) Step() {
	agents := make([]*VirusAgent, len(ra.Agents))
	copy(agents, ra.Agents)

	// Fisher-Yates shuffle
	rnd := ra.Model.Random
	for i := len(agents) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		agents[i], agents[j] = agents[j], agents[i]
	}

	for _, agent := range agents {
		agent.Step()
	}
}
