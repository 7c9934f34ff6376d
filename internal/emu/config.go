package emu

// RunMode selects the real-time pacing multiplier applied by RunFrame.
// It does not affect StepFrame/StepFrameNoRender, which always advance
// exactly one emulated frame with no pacing (hosts that run their own
// frame-timing loop, like internal/ui, call those directly and do their
// own accumulator-based pacing).
type RunMode int

const (
	RunNormal RunMode = iota
	RunTurbo
	RunSlow
	RunRewind
)

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace        bool // log CPU instructions
	LimitFPS     bool // throttle to ~60 Hz (useful for headless test mode)
	UseFetcherBG bool // host's BG renderer preference; the PPU always uses the fetcher/FIFO path

	// Run-mode multipliers consumed by RunFrame's pacing (spec.md §6's
	// normal_speed/turbo_speed/slow_speed runtime configuration options).
	NormalSpeed float64
	TurboSpeed  float64
	SlowSpeed   float64

	// SpinDurationMicros is the tail spin-wait window RunFrame busy-waits
	// through instead of sleeping, to reduce scheduler jitter near the
	// frame deadline. Defaults to 500µs when zero (spin_duration).
	SpinDurationMicros int

	// Rewind ring buffer sizing (rewind_size, rewind_interval).
	RewindSize     int // number of snapshots retained
	RewindInterval int // push a snapshot every N emulated frames

	// AudioBufferSize is the APU's internal ring capacity in stereo frames.
	// Zero keeps the APU's built-in default.
	AudioBufferSize int

	// MuteTurbo/MuteSlow suppress audio output while running in those modes.
	MuteTurbo bool
	MuteSlow  bool
}

// Defaults fills zero-valued fields with the values spec.md §6 calls out.
func (c *Config) Defaults() {
	if c.NormalSpeed <= 0 {
		c.NormalSpeed = 1.0
	}
	if c.TurboSpeed <= 0 {
		c.TurboSpeed = 4.0
	}
	if c.SlowSpeed <= 0 {
		c.SlowSpeed = 0.5
	}
	if c.SpinDurationMicros <= 0 {
		c.SpinDurationMicros = 500
	}
	if c.RewindSize <= 0 {
		c.RewindSize = 600 // ~10s of frames at the default interval of 1
	}
	if c.RewindInterval <= 0 {
		c.RewindInterval = 1
	}
}
