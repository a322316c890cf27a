package model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MetricsRecord holds the population counts sampled at the start of a tick
type MetricsRecord struct {
	Step        int
	Susceptible int
	Infected    int
	Recovered   int
	Dead        int
	Vaccinated  int
}

// Total returns the population size implied by the status counts
func (r MetricsRecord) Total() int {
	return r.Susceptible + r.Infected + r.Recovered + r.Dead
}

// Count returns the count recorded for a status
func (r MetricsRecord) Count(status HealthStatus) int {
	switch status {
	case Susceptible:
		return r.Susceptible
	case Infected:
		return r.Infected
	case Recovered:
		return r.Recovered
	case Dead:
		return r.Dead
	}
	return 0
}

// MetricsLog is the append-only per-tick time series of a run
type MetricsLog struct {
	records []MetricsRecord
}

func NewMetricsLog() *MetricsLog {
	return &MetricsLog{records: make([]MetricsRecord, 0)}
}

// Record appends one sample
func (l *MetricsLog) Record(r MetricsRecord) {
	l.records = append(l.records, r)
}

func (l *MetricsLog) Len() int {
	return len(l.records)
}

// Records returns a copy of the series
func (l *MetricsLog) Records() []MetricsRecord {
	ret := make([]MetricsRecord, len(l.records))
	copy(ret, l.records)
	return ret
}

// Latest returns the most recent sample
func (l *MetricsLog) Latest() (MetricsRecord, bool) {
	if len(l.records) == 0 {
		return MetricsRecord{}, false
	}
	return l.records[len(l.records)-1], true
}

// Series extracts the count of one status over time
func (l *MetricsLog) Series(status HealthStatus) []float64 {
	ret := make([]float64, len(l.records))
	for i, r := range l.records {
		ret[i] = float64(r.Count(status))
	}
	return ret
}

// MetricsSummary condenses the infected curve of a run
type MetricsSummary struct {
	Steps           int
	PeakInfected    int
	PeakStep        int
	MeanInfected    float64
	StdDevInfected  float64
	FinalDead       int
	FinalVaccinated int
}

// Summary computes peak and moments of the infected series
func (l *MetricsLog) Summary() MetricsSummary {
	ret := MetricsSummary{Steps: len(l.records)}
	if len(l.records) == 0 {
		return ret
	}

	infected := l.Series(Infected)
	peak := floats.MaxIdx(infected)
	ret.PeakInfected = l.records[peak].Infected
	ret.PeakStep = l.records[peak].Step
	if len(infected) > 1 {
		ret.MeanInfected, ret.StdDevInfected = stat.MeanStdDev(infected, nil)
	} else {
		ret.MeanInfected = infected[0]
	}

	last := l.records[len(l.records)-1]
	ret.FinalDead = last.Dead
	ret.FinalVaccinated = last.Vaccinated
	return ret
}
