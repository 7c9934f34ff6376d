package emu

import (
	"time"
)

const (
	// cpuHz is the SM83's fixed clock rate; tCyclesPerFrame is the fixed
	// 70,224 T-cycles a DMG frame takes (456 dots/line * 154 lines),
	// per spec.md §8's "exactly 70,224 T-cycles elapse... at normal speed."
	cpuHz           = 4_194_304.0
	tCyclesPerFrame = 70224
)

// clock implements spec.md §4.6's run_frame pacing: compute the target
// wall-clock duration for one emulated frame at the active speed
// multiplier, sleep for most of the remainder, then spin-wait the last
// sliver to cut scheduler jitter.
type clock struct {
	cfg       *Config
	mode      RunMode
	lastFrame time.Time
	started   bool
}

func (c *clock) init(cfg *Config) {
	c.cfg = cfg
	c.mode = RunNormal
}

// SetRunMode selects the pacing multiplier RunFrame uses. RunRewind carries
// no multiplier of its own; Machine.RunFrame treats it as "pop a snapshot
// instead of stepping" per spec.md §4.6.
func (m *Machine) SetRunMode(mode RunMode) { m.clk.mode = mode }

// RunMode returns the currently selected pacing mode.
func (m *Machine) RunMode() RunMode { return m.clk.mode }

func (c *clock) multiplier() float64 {
	switch c.mode {
	case RunTurbo:
		return c.cfg.TurboSpeed
	case RunSlow:
		return c.cfg.SlowSpeed
	default:
		return c.cfg.NormalSpeed
	}
}

// RunFrame advances exactly one frame (or, in RunRewind mode, restores one
// snapshot popped off the rewind ring buffer) and paces the call against
// wall-clock time at the active run-mode multiplier. Use this entry point
// for hosts that do not implement their own frame-timing loop; internal/ui
// instead calls StepFrame directly and paces itself.
func (m *Machine) RunFrame() {
	if m.clk.mode == RunRewind {
		m.PopRewind()
		return
	}

	targetDur := time.Duration(float64(time.Second) * (tCyclesPerFrame / cpuHz) / m.clk.multiplier())

	start := time.Now()
	m.StepFrame()

	if !m.cfg.LimitFPS {
		return
	}

	elapsed := time.Since(start)
	remaining := targetDur - elapsed
	spin := time.Duration(m.cfg.SpinDurationMicros) * time.Microsecond
	if remaining <= 0 {
		return
	}
	if remaining > spin {
		time.Sleep(remaining - spin)
	}
	deadline := start.Add(targetDur)
	for time.Now().Before(deadline) {
		// spin-wait tail: cheaper than a second, less-precise time.Sleep call
	}
}

// onFrameCompleted is invoked once per StepFrame/StepFrameNoRender call; it
// tracks the rewind ring buffer's push interval.
func (m *Machine) onFrameCompleted() {
	if m.rewind == nil {
		return
	}
	m.rewind.frames++
	if m.cfg.RewindInterval <= 0 || m.rewind.frames%uint64(m.cfg.RewindInterval) == 0 {
		m.rewind.push(m.SaveState())
	}
}

// PopRewind restores the most recently pushed rewind snapshot, if any.
// Returns false if the rewind buffer is empty.
func (m *Machine) PopRewind() bool {
	if m.rewind == nil {
		return false
	}
	data, ok := m.rewind.pop()
	if !ok {
		return false
	}
	return m.LoadState(data) == nil
}
