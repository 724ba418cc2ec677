package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	BatchSize      int
	Duration       time.Duration
	Simulations    int
	Batches        int
	TerminalLeaves int
	IsTreeReset    bool
}

type MoveMetric struct {
	Step   int
	Player string
	Move   string
	SearchMetric
}

type GameMetric struct {
	StartingPlayer string
	Winner         string // "B", "W" or "" for no decision
	Score          float64
	Resigned       bool
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start(batchSize int)
	SetTreeReset(value bool)
	AddSimulation()
	AddBatch()
	AddTerminalLeaf()
	Complete() SearchMetric
}

type collector struct {
	batchSize      int
	startTime      time.Time
	simulations    atomic.Int32
	batches        atomic.Int32
	terminalLeaves atomic.Int32
	isTreeReset    atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) SetTreeReset(value bool) {
	m.isTreeReset.Store(value)
}

func (m *collector) Start(batchSize int) {
	m.startTime = time.Now()
	m.batchSize = batchSize
	m.simulations.Store(0)
	m.batches.Store(0)
	m.terminalLeaves.Store(0)
}

func (m *collector) AddSimulation() {
	m.simulations.Add(1)
}

func (m *collector) AddBatch() {
	m.batches.Add(1)
}

func (m *collector) AddTerminalLeaf() {
	m.terminalLeaves.Add(1)
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		BatchSize:      m.batchSize,
		Duration:       time.Since(m.startTime),
		Simulations:    int(m.simulations.Load()),
		Batches:        int(m.batches.Load()),
		TerminalLeaves: int(m.terminalLeaves.Load()),
		IsTreeReset:    m.isTreeReset.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(batchSize int)     {}
func (m *dummyCollector) SetTreeReset(value bool) {}
func (m *dummyCollector) AddSimulation()          {}
func (m *dummyCollector) AddBatch()               {}
func (m *dummyCollector) AddTerminalLeaf()        {}
func (m *dummyCollector) Complete() SearchMetric  { return SearchMetric{} }
