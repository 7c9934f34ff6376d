package ppu

// Sprite is a decoded OAM entry relevant to a single scanline's sprite fetch.
// X/Y are already converted to screen space (X = oamX-8, Y = oamY-16), as
// opposed to the raw OAM offsets, matching how the fetcher consumes them.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

const (
	attrPriority = 1 << 7 // 1: BG/window colors 1-3 drawn over this sprite
	attrYFlip    = 1 << 6
	attrXFlip    = 1 << 5
	attrPalette  = 1 << 4 // 0: OBP0, 1: OBP1
)

// scanOAM finds up to 10 sprites visible on scanline ly, preserving OAM
// order (lower index first) for the stable sort ComposeSpriteLine relies on.
func scanOAM(oam []byte, ly byte, use8x16 bool) []Sprite {
	height := 8
	if use8x16 {
		height = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		oamY := int(oam[base+0]) - 16
		oamX := int(oam[base+1]) - 8
		tile := oam[base+2]
		attr := oam[base+3]
		if int(ly) < oamY || int(ly) >= oamY+height {
			continue
		}
		out = append(out, Sprite{X: oamX, Y: oamY, Tile: tile, Attr: attr, OAMIndex: i})
	}
	return out
}

// ComposeSpriteLine overlays sprites onto a rendered background/window row
// (bgci, raw 2-bit color indices) and returns the composited row. Pixels it
// doesn't override are left exactly as bgci so the caller can tell which
// pixels still need the BG palette applied. DMG sprite-sprite priority: the
// sprite with the smallest X wins; ties break by the smaller OAM index.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, use8x16 bool) [160]byte {
	out := bgci
	height := 8
	if use8x16 {
		height = 16
	}

	ordered := make([]Sprite, len(sprites))
	copy(ordered, sprites)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0; j-- {
			a, b := ordered[j-1], ordered[j]
			if a.X > b.X || (a.X == b.X && a.OAMIndex > b.OAMIndex) {
				ordered[j-1], ordered[j] = b, a
			} else {
				break
			}
		}
	}

	resolved := [160]bool{}
	for _, s := range ordered {
		row := int(ly) - s.Y
		if row < 0 || row >= height {
			continue
		}
		if s.Attr&attrYFlip != 0 {
			row = height - 1 - row
		}
		tile := s.Tile
		if use8x16 {
			tile &^= 0x01
			if row >= 8 {
				tile |= 0x01
				row -= 8
			}
		}
		base := uint16(0x8000) + uint16(tile)*16 + uint16(row)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)

		for col := 0; col < 8; col++ {
			x := s.X + col
			if x < 0 || x >= 160 || resolved[x] {
				continue
			}
			bit := col
			if s.Attr&attrXFlip == 0 {
				bit = 7 - col
			}
			ci := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
			if ci == 0 {
				continue // transparent
			}
			if s.Attr&attrPriority != 0 && bgci[x] != 0 {
				resolved[x] = true // BG wins, but pixel is claimed: no lower sprite shows through
				continue
			}
			pal := byte(0)
			if s.Attr&attrPalette != 0 {
				pal = 1
			}
			out[x] = spriteShade(s, ci)
			if p, ok := mem.(*PPU); ok {
				obp := p.obp0
				if pal == 1 {
					obp = p.obp1
				}
				out[x] = shade(obp, ci)
			}
			resolved[x] = true
		}
	}
	return out
}

// spriteShade returns the sprite pixel's raw color index. The OBP0/OBP1
// register values live on the PPU, so ComposeSpriteLine replaces this with
// the palette-mapped shade when its VRAMReader is a *PPU (renderScanline's
// case); other readers, such as the unit tests' mock VRAM, get raw indices.
func spriteShade(s Sprite, ci byte) byte {
	return ci
}
