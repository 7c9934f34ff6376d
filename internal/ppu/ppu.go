package ppu

import (
	"bytes"
	"encoding/gob"
)

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// lineRegs is a snapshot of the registers that affect rendering, captured at
// the moment mode 3 begins for a scanline. Games sometimes rewrite SCX/SCY/
// palettes mid-frame for raster effects; capturing at mode-3 entry keeps
// each line internally consistent instead of tearing mid-render.
type lineRegs struct {
	SCX, SCY        byte
	WX, WY          byte
	LCDC            byte
	BGP, OBP0, OBP1 byte
	WinLine         int
	WinActiveOnLine bool
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, and the pixel pipeline: OAM
// scan, background/window fetch, and sprite mixing into a framebuffer of
// 2-bit shade indices.
type PPU struct {
	// memory
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	// regs
	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within current line [0..455]

	mode3Len    int // dynamic mode-3 duration for the current line, computed at dot==80
	scanSprites []Sprite

	winLineCounter int // internal WLY counter, increments once per line the window is drawn

	lines [144]lineRegs

	framebuffer [144][160]byte // final 2-bit shade indices, ready to display

	frameCount uint64 // bumped once per completed frame (LY reaches 144)

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// Read implements VRAMReader so the fetcher helpers can read tile data
// directly off the PPU during scanline rendering.
func (p *PPU) Read(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return p.vram[addr-0x8000]
	}
	return 0xFF
}

// Framebuffer returns the last fully composited frame (2-bit shade indices).
func (p *PPU) Framebuffer() *[144][160]byte { return &p.framebuffer }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		// VRAM is inaccessible to CPU during mode 3 (return 0xFF)
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		// OAM is inaccessible during modes 2 and 3
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		// On DMG, bit7 reads as 1; bit6..3 are enables; bit2 coincidence; bit1..0 mode
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			// Turning LCD off resets LY/mode
			p.ly = 0
			p.dot = 0
			p.winLineCounter = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			// Turning LCD on: start at LY=0, mode 2 (OAM)
			p.ly = 0
			p.dot = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++

		if p.ly < 144 {
			switch {
			case p.dot == 80:
				p.beginMode3()
			case p.dot == 80+p.mode3Len:
				p.setMode(0)
			}
		}

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				// Enter VBlank
				if p.req != nil {
					p.req(0)
				} // VBlank IF
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				} // STAT VBlank
				p.winLineCounter = 0
				p.frameCount++
			} else if p.ly > 153 {
				p.ly = 0
				p.winLineCounter = 0
			}
			p.updateLYC()
			// Set mode for new line start (dot=0)
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

// beginMode3 runs once per line when mode 3 starts (dot==80): it scans OAM
// for sprites visible on this line, captures the register snapshot used by
// renderScanline, computes the dynamic mode-3 duration, and renders the
// finished scanline into the framebuffer. Rendering happens up front rather
// than dot-by-dot, but the mode/timing schedule it produces tracks the real
// pixel pipeline's duration closely enough for STAT-timing tests.
func (p *PPU) beginMode3() {
	p.setMode(3)

	p.scanSprites = scanOAM(p.oam[:], p.ly, p.lcdc&0x04 != 0)

	winEnabled := p.lcdc&0x20 != 0
	winVisible := winEnabled && p.wy <= p.ly && p.wx <= 166

	lr := lineRegs{
		SCX: p.scx, SCY: p.scy, WX: p.wx, WY: p.wy,
		LCDC: p.lcdc, BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WinActiveOnLine: winVisible,
	}
	if winVisible {
		lr.WinLine = p.winLineCounter
	}
	if int(p.ly) < len(p.lines) {
		p.lines[p.ly] = lr
	}

	p.mode3Len = p.computeMode3Len(lr)
	p.renderScanline(lr)

	if winVisible {
		p.winLineCounter++
	}
}

// computeMode3Len approximates the extra dots mode 3 takes beyond the
// baseline 172: SCX%8 for the discarded background pixels, 6 dots for the
// window fetch restart on lines where the window is drawn, and a per-sprite
// fetch penalty. The exact per-sprite cost on hardware depends on fetcher
// phase at the sprite's X coordinate; this uses the widely cited
// approximation of up to 11 dots per visible sprite, which tracks STAT/mode
// timing closely without a full per-dot fetcher simulation.
func (p *PPU) computeMode3Len(lr lineRegs) int {
	total := 172 + int(lr.SCX%8)
	if lr.WinActiveOnLine {
		total += 6
	}
	for _, s := range p.scanSprites {
		penalty := 11 - min(5, (int(s.X)+int(lr.SCX))%8)
		total += penalty
	}
	return total
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// LineRegs exposes the captured per-line register snapshot, used by hosts
// that need the window-line counter or the palette in effect for a given LY.
func (p *PPU) LineRegs(ly int) lineRegs {
	if ly < 0 || ly >= len(p.lines) {
		return lineRegs{}
	}
	return p.lines[ly]
}

func (p *PPU) renderScanline(lr lineRegs) {
	ly := p.ly
	if int(ly) >= 144 {
		return
	}

	var bgci [160]byte
	if lr.LCDC&0x01 != 0 {
		mapBase := uint16(0x9800)
		if lr.LCDC&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := lr.LCDC&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(p, mapBase, tileData8000, lr.SCX, lr.SCY, ly)

		if lr.WinActiveOnLine {
			winMapBase := uint16(0x9800)
			if lr.LCDC&0x40 != 0 {
				winMapBase = 0x9C00
			}
			wxStart := int(lr.WX) - 7
			winRow := RenderWindowScanlineUsingFetcher(p, winMapBase, tileData8000, wxStart, byte(lr.WinLine))
			start := wxStart
			if start < 0 {
				start = 0
			}
			for x := start; x < 160; x++ {
				bgci[x] = winRow[x]
			}
		}
	}

	out := bgci
	if lr.LCDC&0x02 != 0 && len(p.scanSprites) > 0 {
		out = ComposeSpriteLine(p, p.scanSprites, ly, bgci, lr.LCDC&0x04 != 0)
	}

	// ComposeSpriteLine leaves pixels it didn't override untouched (equal to
	// bgci); those still need the BG/window palette (BGP) applied. Pixels it
	// did override were already palette-mapped via OBP0/OBP1.
	for x := 0; x < 160; x++ {
		if out[x] == bgci[x] {
			out[x] = shade(lr.BGP, bgci[x])
		}
	}
	p.framebuffer[ly] = out
}

func shade(palette, idx byte) byte {
	return (palette >> (idx * 2)) & 0x03
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// FrameCount returns the number of frames completed so far (bumped when LY
// reaches 144). Hosts use it to detect frame-boundary crossings across a
// run of Tick calls without polling LY/mode directly.
func (p *PPU) FrameCount() uint64 { return p.frameCount }

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }

// --- Save/Load state ---

type ppuState struct {
	VRAM                          [0x2000]byte
	OAM                           [0xA0]byte
	LCDC, STAT, SCY, SCX, LY, LYC byte
	BGP, OBP0, OBP1, WY, WX       byte
	Dot                           int
	Mode3Len                      int
	WinLineCounter                int
	Framebuffer                   [144][160]byte
}

func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	s := ppuState{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat, SCY: p.scy, SCX: p.scx, LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1, WY: p.wy, WX: p.wx,
		Dot: p.dot, Mode3Len: p.mode3Len, WinLineCounter: p.winLineCounter,
		Framebuffer: p.framebuffer,
	}
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.vram, p.oam = s.VRAM, s.OAM
	p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc = s.LCDC, s.STAT, s.SCY, s.SCX, s.LY, s.LYC
	p.bgp, p.obp0, p.obp1, p.wy, p.wx = s.BGP, s.OBP0, s.OBP1, s.WY, s.WX
	p.dot, p.mode3Len, p.winLineCounter = s.Dot, s.Mode3Len, s.WinLineCounter
	p.framebuffer = s.Framebuffer
}
