package emu

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwbauer/gbdmg/internal/bus"
	"github.com/mwbauer/gbdmg/internal/cart"
	"github.com/mwbauer/gbdmg/internal/cpu"
)

// Buttons is the host's latched joypad state for one frame boundary, per
// spec.md §6 (eight booleans, written into the 0xFF00 matrix on CPU read).
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	return m
}

// Machine is the top-level runtime: it owns the CPU (which owns the bus),
// drives run_frame(), and exposes the host-facing pull interfaces for
// video, audio, and save data described in spec.md §5-§6. It is the single
// entry point hosts (internal/ui, cmd/gbemu) use instead of wiring cpu/bus
// themselves.
type Machine struct {
	cfg Config

	bus *bus.Bus
	cpu *cpu.CPU

	header  *cart.Header
	romData []byte
	romPath string
	boot    []byte

	// Host-facing framebuffer: RGBA8888, 160x144, refreshed once per
	// completed PPU frame.
	fb []byte

	// DMG-on-CGB compatibility palette selection (spec.md §9 open
	// question / SPEC_FULL.md supplemented feature). This never enables
	// real CGB register emulation; it only recolors the DMG 2-bit
	// framebuffer through a 4-entry RGBA table instead of BGP shades of
	// gray. wantCGBColors reflects the host's toggle; cgbCompat is true
	// only once a ROM without native CGB support is loaded while the
	// toggle is on.
	wantCGBColors bool
	cgbCompat     bool
	paletteID     int

	clk clock

	rewind *rewindBuffer
}

// New constructs a Machine with no cartridge loaded. Call LoadCartridge or
// LoadROMFromFile before stepping frames.
func New(cfg Config) *Machine {
	cfg.Defaults()
	m := &Machine{
		cfg: cfg,
		fb:  make([]byte, 160*144*4),
	}
	m.clk.init(&m.cfg)
	m.paletteID = -1 // grayscale/BGP-driven until a compat palette is chosen
	return m
}

// LoadCartridge parses rom's header, builds the matching MBC, and wires a
// fresh Bus+CPU. boot, if at least 256 bytes, is mapped at 0x0000-0x00FF
// until the ROM disables it via a 0xFF50 write; otherwise the CPU starts
// from the hard-coded DMG post-boot register state (spec.md §1 Non-goals:
// bootrom emulation is optional, never mandatory).
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	if len(rom) == 0 || !isPowerOfTwo(len(rom)) {
		return fmt.Errorf("%w: ROM size %d is not a power of two", ErrInvalidCart, len(rom))
	}
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCart, err)
	}
	if !knownCartTypes[h.CartType] {
		return fmt.Errorf("%w: cart_type 0x%02X", ErrUnsupportedMBC, h.CartType)
	}

	m.romData = rom
	m.header = h
	m.boot = boot

	m.resetCore(boot)
	m.cgbCompat = false
	m.paletteID = -1
	if m.wantCGBColors && h.CGBFlag == 0x00 {
		m.cgbCompat = true
		m.autoSelectPalette()
	}

	m.rewind = newRewindBuffer(m.cfg.RewindSize)
	return nil
}

// resetCore (re)builds the Bus+CPU for the currently loaded ROM, optionally
// overlaying a boot ROM, and brings the CPU to its starting state. WRAM,
// VRAM, and all I/O registers start fresh — this is a cold machine reset,
// not a resume.
func (m *Machine) resetCore(boot []byte) {
	c := cart.NewCartridge(m.romData)
	b := bus.NewWithCartridge(c)
	m.bus = b
	m.cpu = cpu.New(b)

	if len(boot) >= 0x100 {
		b.SetBootROM(boot)
		m.cpu.SP = 0xFFFE
		m.cpu.PC = 0x0000
		m.cpu.IME = false
	} else {
		m.applyPostBootDefaults()
	}
}

// applyPostBootDefaults brings the CPU and the I/O registers a real DMG
// boot ROM would have written to the state it leaves them in at 0x0100,
// per spec.md §3's "post-boot initial values are fixed constants."
func (m *Machine) applyPostBootDefaults() {
	m.cpu.ResetNoBoot()
	m.cpu.SetPC(0x0100)
	b := m.bus
	b.Write(0xFF00, 0xCF)
	b.Write(0xFF05, 0x00) // TIMA
	b.Write(0xFF06, 0x00) // TMA
	b.Write(0xFF07, 0x00) // TAC
	b.Write(0xFF40, 0x91) // LCDC on, BG+sprites enabled
	b.Write(0xFF42, 0x00) // SCY
	b.Write(0xFF43, 0x00) // SCX
	b.Write(0xFF45, 0x00) // LYC
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
	b.Write(0xFF4A, 0x00) // WY
	b.Write(0xFF4B, 0x00) // WX
	b.Write(0xFFFF, 0x00) // IE
}

// ResetPostBoot reloads the current ROM and brings the CPU to the
// hard-coded DMG post-boot state, ignoring any boot ROM previously set.
func (m *Machine) ResetPostBoot() {
	if m.romData == nil {
		return
	}
	m.resetCore(nil)
}

// ResetWithBoot reloads the current ROM and runs from the boot ROM set via
// SetBootROM, if any; falls back to ResetPostBoot otherwise.
func (m *Machine) ResetWithBoot() {
	if m.romData == nil {
		return
	}
	m.resetCore(m.boot)
}

// ResetCGBPostBoot re-enters DMG-compatibility-palette mode: the hardware
// being emulated never changes (no CGB registers), only the recolor table
// applied to the 2-bit framebuffer. fresh, when true, also performs a full
// ResetPostBoot; when false it only toggles the palette path without
// restarting the running game.
func (m *Machine) ResetCGBPostBoot(fresh bool) {
	if fresh {
		m.ResetPostBoot()
	}
	if m.header != nil && m.header.CGBFlag == 0x00 {
		m.cgbCompat = true
		if m.paletteID < 0 {
			m.autoSelectPalette()
		}
	}
}

// LoadROMFromFile reads rom from path and loads it, keeping any boot ROM
// already set via SetBootROM.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIoError, err)
	}
	if err := m.LoadCartridge(data, m.boot); err != nil {
		return err
	}
	if abs, err := filepath.Abs(path); err == nil {
		m.romPath = abs
	} else {
		m.romPath = path
	}
	return nil
}

// SetBootROM stores a DMG boot ROM image to use on the next reset/load that
// requests it (ResetWithBoot, or a fresh LoadCartridge call).
func (m *Machine) SetBootROM(data []byte) { m.boot = data }

// SetSerialWriter forwards bytes written to the serial port (0xFF01/0xFF02)
// to w. Used by test harnesses to capture Blargg/Mooneye pass/fail output.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.bus != nil {
		m.bus.SetSerialWriter(w)
	}
}

// SetButtons latches the host's joypad state for the next frame.
func (m *Machine) SetButtons(b Buttons) {
	if m.bus != nil {
		m.bus.SetJoypadState(b.mask())
	}
}

// SetUseFetcherBG toggles the background-rendering path. The PPU only
// implements the fetcher/FIFO pipeline described in spec.md §4.4 (there is
// no separate "classic" immediate-mode renderer), so this stores the host's
// preference for display purposes without changing PPU behavior.
func (m *Machine) SetUseFetcherBG(on bool) { m.cfg.UseFetcherBG = on }

// ROMPath returns the path LoadROMFromFile was given, or "" if the
// cartridge was loaded directly from bytes (or none is loaded).
func (m *Machine) ROMPath() string { return m.romPath }

// ROMTitle returns the cartridge header title, or "" if no ROM is loaded.
func (m *Machine) ROMTitle() string {
	if m.header == nil {
		return ""
	}
	return strings.TrimRight(m.header.Title, "\x00")
}

// Header returns the parsed cartridge header, or nil if no ROM is loaded.
func (m *Machine) Header() *cart.Header { return m.header }

// LoadBattery loads external RAM bytes into the cartridge's battery-backed
// RAM, if any. Returns false if the cartridge has no battery RAM.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.bus == nil {
		return false
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// SaveBattery returns a copy of the cartridge's battery-backed RAM. ok is
// false if the cartridge has no battery RAM to save.
func (m *Machine) SaveBattery() (data []byte, ok bool) {
	if m.bus == nil {
		return nil, false
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return nil, false
	}
	return bb.SaveRAM(), true
}

// StepFrame runs the CPU/bus/PPU/APU lock-step until the PPU completes one
// 160x144 frame (spec.md §2 data flow), then composites the framebuffer.
// It does not pace against wall-clock time; hosts that manage their own
// frame timing (internal/ui) call this directly once per emulated frame.
func (m *Machine) StepFrame() {
	m.stepOneFrame(true)
}

// StepFrameNoRender advances exactly like StepFrame but skips recompositing
// the RGBA framebuffer, for hosts implementing frame-skip.
func (m *Machine) StepFrameNoRender() {
	m.stepOneFrame(false)
}

func (m *Machine) stepOneFrame(render bool) {
	if m.cpu == nil {
		return
	}
	target := m.bus.PPU().FrameCount() + 1
	for m.bus.PPU().FrameCount() < target {
		m.cpu.Step()
	}
	if render {
		m.composeFramebuffer()
	}
	m.onFrameCompleted()
}

// Framebuffer returns the last composited RGBA8888 frame (160x144x4 bytes),
// owned by the Machine; hosts get a read-only borrow between frames
// (spec.md §5) and must copy it before the next StepFrame call if they need
// to retain it.
func (m *Machine) Framebuffer() []byte { return m.fb }

// composeFramebuffer maps the PPU's 2-bit shade indices through the active
// palette (grayscale shaded by BGP's mapping, or a compat-palette RGBA
// table) into the host-facing RGBA buffer.
func (m *Machine) composeFramebuffer() {
	pal := m.activePalette()
	src := m.bus.PPU().Framebuffer()
	for y := 0; y < 144; y++ {
		row := &src[y]
		base := y * 160 * 4
		for x := 0; x < 160; x++ {
			c := pal[row[x]&0x03]
			i := base + x*4
			m.fb[i+0] = byte(c >> 24)
			m.fb[i+1] = byte(c >> 16)
			m.fb[i+2] = byte(c >> 8)
			m.fb[i+3] = byte(c)
		}
	}
}
