package cart

import "testing"

func TestMBC2_ROMBanking(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom)

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank1 read got %02X want 01", got)
	}

	// Address bit 8 set selects the ROM bank register.
	m.Write(0x2100, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}

	// Writing 0 remaps to 1.
	m.Write(0x2100, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC2_BuiltinRAM(t *testing.T) {
	rom := make([]byte, 64*1024)
	m := NewMBC2(rom)

	// RAM disabled by default; reads are 0xFF.
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM read got %02X want FF", got)
	}

	// Address bit 8 clear selects RAM enable.
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x3F)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("RAM nibble read got %02X want upper nibble set (FF)", got)
	}
	if got := m.Read(0xA000) & 0x0F; got != 0x0F {
		t.Fatalf("RAM nibble low bits got %02X want 0F", got)
	}

	// Only 512 entries exist; the region mirrors through 0xBFFF.
	m.Write(0xA200, 0x05)
	if got := m.Read(0xA000); got != 0xF5 {
		t.Fatalf("mirrored write got %02X want F5", got)
	}
}
