package bgremove

import "sync"

// Progress is one user facing update.
type Progress struct {
	Percent int
	Phase   string
}

// Phase labels shown while a removal runs.
const (
	PhaseStarting  = "Loading model..."
	PhaseAnalyzing = "Analyzing image..."
	PhaseEdges     = "Detecting edges..."
	PhaseRemoving  = "Removing background..."
	PhaseApplying  = "Applying background color..."
	PhaseDone      = "Complete!"
	PhaseWorking   = "Processing..."
)

// Model phase keys.
const (
	KeyInference = "compute:inference"
	KeyMask      = "compute:mask"
	KeyOutput    = "compute:output"
)

type band struct {
	lo, hi int
	label  string
}

// Each model phase reports its own 0..total; the bands place them on one
// scale below the 90% reserved for compositing.
var bands = map[string]band{
	KeyInference: {0, 60, PhaseAnalyzing},
	KeyMask:      {60, 75, PhaseEdges},
	KeyOutput:    {75, 89, PhaseRemoving},
}

// PhaseLabel returns the label for a model key.
func PhaseLabel(key string) string {
	if b, ok := bands[key]; ok {
		return b.label
	}
	return PhaseWorking
}

func modelProgress(key string, current, total int64) Progress {
	frac := 0.0
	if total > 0 {
		frac = float64(current) / float64(total)
	}
	frac = min(1, max(0, frac))
	b, ok := bands[key]
	if !ok {
		b = band{0, 89, PhaseWorking}
	}
	return Progress{Percent: b.lo + int(frac*float64(b.hi-b.lo)+0.5), Phase: b.label}
}

// monotonic drops updates that would move the percentage backwards.
type monotonic struct {
	mu   sync.Mutex
	last int
	seen bool
}

func (m *monotonic) next(p Progress) (Progress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Percent = min(100, max(0, p.Percent))
	if m.seen && p.Percent < m.last {
		return Progress{}, false
	}
	m.last = p.Percent
	m.seen = true
	return p, true
}
