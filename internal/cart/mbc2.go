package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC2 implements ROM banking with a small built-in RAM chip. Unlike the
// other MBCs, MBC2's RAM is part of the cartridge circuitry rather than an
// external SRAM chip: 512x4-bit nibbles, always addressed at 0xA000–0xA1FF,
// mirrored through 0xBFFF. Reads return the nibble in the low 4 bits with
// the upper 4 bits set.
//
// ROM bank number and RAM enable share the same write region (0x0000–0x3FFF);
// the chip select is address bit 8: bit8=0 selects RAM enable, bit8=1 selects
// the ROM bank register.
type MBC2 struct {
	rom []byte
	ram [512]byte // 512x4-bit cells, stored one nibble per byte

	romBank    byte // 4 bits (0 remapped to 1)
	ramEnabled bool
}

func NewMBC2(rom []byte) *MBC2 {
	return &MBC2{rom: rom, romBank: 1}
}

func (m *MBC2) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(m.romBank & 0x0F)
		off := bank*0x4000 + int(addr-0x4000)
		if off >= 0 && off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return 0xF0 | (m.ram[addr&0x1FF] & 0x0F)
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value byte) {
	switch {
	case addr < 0x4000:
		// Bit 8 of the address selects RAM-enable vs ROM-bank writes.
		if addr&0x0100 == 0 {
			m.ramEnabled = (value & 0x0F) == 0x0A
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		m.ram[addr&0x1FF] = value & 0x0F
	}
}

// BatteryBacked implementation.
func (m *MBC2) SaveRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram[:])
	return out
}

func (m *MBC2) LoadRAM(data []byte) {
	if len(data) == 0 {
		return
	}
	copy(m.ram[:], data)
}

type mbc2State struct {
	RAM        [512]byte
	RomBank    byte
	RamEnabled bool
}

func (m *MBC2) SaveState() []byte {
	var buf bytes.Buffer
	s := mbc2State{RAM: m.ram, RomBank: m.romBank, RamEnabled: m.ramEnabled}
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (m *MBC2) LoadState(data []byte) {
	var s mbc2State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.ram, m.romBank, m.ramEnabled = s.RAM, s.RomBank, s.RamEnabled
}
