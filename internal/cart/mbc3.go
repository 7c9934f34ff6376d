package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC3 implements ROM/RAM banking and stores the RTC registers; no clock advances them.
// Banking behavior:
// - 0000-1FFF: RAM enable (0x0A in low nibble)
// - 2000-3FFF: ROM bank low 7 bits (0 maps to 1)
// - 4000-5FFF: RAM bank (0-3) or RTC reg select (08-0C); other values select RAM bank 0
// - 6000-7FFF: Latch clock (sequence tracked; register values are unchanged by it)
// - A000-BFFF: External RAM access when enabled and RAM present
// ROM: bank 0 fixed at 0000-3FFF; switchable 4000-7FFF uses bank (1..127)

type MBC3 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    byte // 7 bits (1..127)
	ramBank    byte // 0..3 (others ignored to 0)

	// RTC select: when selReg is in 0x08..0x0C, A000-BFFF addresses the RTC
	// register instead of RAM. Stubbed per spec: registers hold whatever was
	// last latched/written; there is no wall-clock integration.
	selRTC     bool
	rtcReg     byte    // 0x08..0x0C currently selected
	rtc        [5]byte // seconds, minutes, hours, day-low, day-high
	latchState byte    // tracks the 0x00->0x01 latch write sequence
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{rom: rom}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	m.romBank = 1
	return m
}

func (m *MBC3) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(m.romBank & 0x7F)
		if bank == 0 {
			bank = 1
		}
		off := bank*0x4000 + int(addr-0x4000)
		if off >= 0 && off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.selRTC {
			return m.rtc[m.rtcReg-0x08]
		}
		if len(m.ram) == 0 {
			return 0xFF
		}
		rb := int(m.ramBank & 0x03)
		off := rb*0x2000 + int(addr-0xA000)
		if off >= 0 && off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		switch {
		case value <= 0x03:
			m.ramBank = value & 0x03
			m.selRTC = false
		case value >= 0x08 && value <= 0x0C:
			m.rtcReg = value
			m.selRTC = true
		default:
			m.ramBank = 0
			m.selRTC = false
		}
	case addr < 0x8000:
		// Latch sequence: writing 0x00 then 0x01 freezes the RTC registers'
		// current values. Stubbed: nothing changes since there's no live
		// wall clock, but the sequence is tracked for compatibility.
		if value == 0x00 {
			m.latchState = 0x00
		} else if value == 0x01 && m.latchState == 0x00 {
			m.latchState = 0x01
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.selRTC {
			m.rtc[m.rtcReg-0x08] = value
			return
		}
		if len(m.ram) == 0 {
			return
		}
		rb := int(m.ramBank & 0x03)
		off := rb*0x2000 + int(addr-0xA000)
		if off >= 0 && off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

// BatteryBacked implementation (RTC not persisted here)
func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

type mbc3State struct {
	RAM        []byte
	RamEnabled bool
	RomBank    byte
	RamBank    byte
	SelRTC     bool
	RTCReg     byte
	RTC        [5]byte
	LatchState byte
}

func (m *MBC3) SaveState() []byte {
	var buf bytes.Buffer
	s := mbc3State{
		RAM: m.ram, RamEnabled: m.ramEnabled, RomBank: m.romBank, RamBank: m.ramBank,
		SelRTC: m.selRTC, RTCReg: m.rtcReg, RTC: m.rtc, LatchState: m.latchState,
	}
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (m *MBC3) LoadState(data []byte) {
	var s mbc3State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	if len(s.RAM) == len(m.ram) {
		copy(m.ram, s.RAM)
	}
	m.ramEnabled, m.romBank, m.ramBank = s.RamEnabled, s.RomBank, s.RamBank
	m.selRTC, m.rtcReg, m.rtc, m.latchState = s.SelRTC, s.RTCReg, s.RTC, s.LatchState
}
