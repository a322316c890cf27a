package model

// HealthStatus is the disease state of an agent
type HealthStatus uint8

const (
	Susceptible HealthStatus = iota
	Infected
	Recovered
	Dead
)

// HealthStatuses lists every status in declaration order
var HealthStatuses = []HealthStatus{Susceptible, Infected, Recovered, Dead}

var healthStatusNames = [...]string{
	Susceptible: "Susceptible",
	Infected:    "Infected",
	Recovered:   "Recovered",
	Dead:        "Dead",
}

func (s HealthStatus) String() string {
	if int(s) < len(healthStatusNames) {
		return healthStatusNames[s]
	}
	return "Unknown"
}

// IsValid reports whether s is one of the declared statuses
func (s HealthStatus) IsValid() bool {
	return s <= Dead
}

// IsTerminal reports whether the status has no outgoing transitions
func (s HealthStatus) IsTerminal() bool {
	return s == Dead
}
