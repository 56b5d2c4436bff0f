package pipeline

import "sync"

// Run states reported by Status.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// Status is a snapshot of run progress.
type Status struct {
	State          string `json:"state"`
	TimestepsDone  int    `json:"timesteps_done"`
	TimestepsTotal int    `json:"timesteps_total"`
	Error          string `json:"error,omitempty"`
}

type progress struct {
	mu     sync.Mutex
	status Status
}

func (p *progress) update(fn func(*Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.status)
}

func (p *progress) snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.status
	if s.State == "" {
		s.State = StateIdle
	}
	return s
}
