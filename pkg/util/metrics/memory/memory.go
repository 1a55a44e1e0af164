package memory

import (
	"context"
	"sync"
	"time"
)

// Stats aggregates observations for one pipe or renderer type.
type Stats struct {
	Executions int
	Duration   time.Duration
	Documents  int
	Errors     int
}

// Summary is a snapshot of Stats.
type Summary struct {
	Executions      int
	AverageDuration time.Duration
	TotalDocuments  int
	Errors          int
}

func (s Stats) summary() Summary {
	avg := time.Duration(0)
	if s.Executions > 0 {
		avg = s.Duration / time.Duration(s.Executions)
	}

	return Summary{
		Executions:      s.Executions,
		AverageDuration: avg,
		TotalDocuments:  s.Documents,
		Errors:          s.Errors,
	}
}

// keyedStats is shared by the pipe and renderer collectors.
type keyedStats struct {
	mu    sync.RWMutex
	stats map[string]*Stats
}

func (k *keyedStats) observe(key string, duration time.Duration, count int, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stats == nil {
		k.stats = make(map[string]*Stats)
	}

	s, ok := k.stats[key]
	if !ok {
		s = &Stats{}
		k.stats[key] = s
	}

	s.Executions++
	s.Duration += duration
	s.Documents += count
	if err != nil {
		s.Errors++
	}
}

func (k *keyedStats) summary() map[string]Summary {
	k.mu.RLock()
	defer k.mu.RUnlock()

	result := make(map[string]Summary, len(k.stats))
	for key, s := range k.stats {
		result[key] = s.summary()
	}

	return result
}

// PipeMetric collects pipe runs in memory, keyed by pipe name.
type PipeMetric struct {
	keyedStats
}

// NewPipeMetric creates an empty pipe collector.
func NewPipeMetric() *PipeMetric {
	return &PipeMetric{}
}

func (m *PipeMetric) Observe(_ context.Context, pipe string, duration time.Duration, documentCount int, err error) {
	m.observe(pipe, duration, documentCount, err)
}

// Summary returns a snapshot keyed by pipe name.
func (m *PipeMetric) Summary() map[string]Summary {
	return m.summary()
}

// RendererMetric collects renderer executions in memory, keyed by renderer type.
type RendererMetric struct {
	keyedStats
}

// NewRendererMetric creates an empty renderer collector.
func NewRendererMetric() *RendererMetric {
	return &RendererMetric{}
}

func (m *RendererMetric) Observe(_ context.Context, rendererType string, duration time.Duration, objectCount int, err error) {
	m.observe(rendererType, duration, objectCount, err)
}

// Summary returns a snapshot keyed by renderer type.
func (m *RendererMetric) Summary() map[string]Summary {
	return m.summary()
}

// MutatorStats counts how often a mutator was evaluated, applied and failed.
type MutatorStats struct {
	Evaluated int
	Applied   int
	Errors    int
}

// MutatorMetric collects mutator evaluations in memory.
type MutatorMetric struct {
	mu    sync.RWMutex
	stats map[string]MutatorStats
}

// NewMutatorMetric creates an empty mutator collector.
func NewMutatorMetric() *MutatorMetric {
	return &MutatorMetric{
		stats: make(map[string]MutatorStats),
	}
}

func (m *MutatorMetric) Observe(_ context.Context, mutator string, applied bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats[mutator]
	s.Evaluated++
	if applied {
		s.Applied++
	}
	if err != nil {
		s.Errors++
	}

	m.stats[mutator] = s
}

// Summary returns a copy of the collected stats keyed by mutator.
func (m *MutatorMetric) Summary() map[string]MutatorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]MutatorStats, len(m.stats))
	for k, v := range m.stats {
		result[k] = v
	}

	return result
}

// RenderMetric collects engine renders in memory.
type RenderMetric struct {
	mu sync.RWMutex

	renders  int
	duration time.Duration
	objects  int
}

// RenderSummary is a snapshot of RenderMetric.
type RenderSummary struct {
	TotalRenders    int
	AverageDuration time.Duration
	TotalObjects    int
}

func (m *RenderMetric) Observe(_ context.Context, duration time.Duration, objectCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.renders++
	m.duration += duration
	m.objects += objectCount
}

// Summary returns a snapshot of the collected renders.
func (m *RenderMetric) Summary() RenderSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avg := time.Duration(0)
	if m.renders > 0 {
		avg = m.duration / time.Duration(m.renders)
	}

	return RenderSummary{
		TotalRenders:    m.renders,
		AverageDuration: avg,
		TotalObjects:    m.objects,
	}
}
