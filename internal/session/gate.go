package session

import "sync"

// GateConfig tunes the analysis cadence gate.
type GateConfig struct {
	CadenceMs        int64   // Minimum interval between engine runs
	UICooldownMs     int64   // Minimum interval between results pushed to the UI
	MinConfidence    float64 // Results below this confidence are suppressed
	WarmupSec        int64   // Call age below which the short context window applies
	WarmupContextSec int64   // Context window during warmup
	SteadyContextSec int64   // Context window after warmup
}

// DefaultGateConfig returns the production cadence defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		CadenceMs:        15_000,
		UICooldownMs:     8_000,
		MinConfidence:    0.55,
		WarmupSec:        60,
		WarmupContextSec: 60,
		SteadyContextSec: 120,
	}
}

// Suppression reasons reported when a result is withheld.
const (
	SuppressCadence    = "cadence"
	SuppressCooldown   = "cooldown"
	SuppressConfidence = "confidence"
)

// Gate rate-limits engine runs and UI pushes for one session. Runs are
// limited by cadence; accepted results are additionally limited by the UI
// cooldown and a confidence floor. Safe for concurrent use.
type Gate struct {
	cfg GateConfig

	mu         sync.Mutex
	startMs    int64
	started    bool
	lastRunMs  int64
	hasRun     bool
	lastPushMs int64
	hasPushed  bool
}

// NewGate builds a Gate, substituting defaults for zero config fields.
func NewGate(cfg GateConfig) *Gate {
	def := DefaultGateConfig()
	if cfg.CadenceMs <= 0 {
		cfg.CadenceMs = def.CadenceMs
	}
	if cfg.UICooldownMs <= 0 {
		cfg.UICooldownMs = def.UICooldownMs
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.WarmupSec <= 0 {
		cfg.WarmupSec = def.WarmupSec
	}
	if cfg.WarmupContextSec <= 0 {
		cfg.WarmupContextSec = def.WarmupContextSec
	}
	if cfg.SteadyContextSec <= 0 {
		cfg.SteadyContextSec = def.SteadyContextSec
	}
	return &Gate{cfg: cfg}
}

// Start pins the session start time used for warmup decisions.
func (g *Gate) Start(nowMs int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startMs = nowMs
	g.started = true
}

// ShouldRun reports whether an engine run is due and, when it is, records
// the run time. The first tick always runs.
func (g *Gate) ShouldRun(nowMs int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasRun && nowMs-g.lastRunMs < g.cfg.CadenceMs {
		return false
	}
	g.lastRunMs = nowMs
	g.hasRun = true
	return true
}

// ContextWindowMs returns the trailing window the engine should evaluate:
// short during warmup so early results reflect only real speech, full size
// afterwards.
func (g *Gate) ContextWindowMs(nowMs int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started && nowMs-g.startMs < g.cfg.WarmupSec*1000 {
		return g.cfg.WarmupContextSec * 1000
	}
	return g.cfg.SteadyContextSec * 1000
}

// ShouldAccept decides whether a finished result may be pushed to the UI.
// Returns the suppression reason when it may not. Accepting records the
// push time for the cooldown.
func (g *Gate) ShouldAccept(nowMs int64, confidence float64) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if confidence < g.cfg.MinConfidence {
		return false, SuppressConfidence
	}
	if g.hasPushed && nowMs-g.lastPushMs < g.cfg.UICooldownMs {
		return false, SuppressCooldown
	}
	g.lastPushMs = nowMs
	g.hasPushed = true
	return true, ""
}
