package emu

import "errors"

// Error kinds from spec.md §7. Runtime emulation errors (a panicking opcode
// dispatch slot, a corrupt internal invariant) are never recovered — they
// surface as Go panics, since they indicate a core bug rather than bad
// input. File-load and save-state errors are ordinary values the host can
// show a notification for and otherwise ignore.
var (
	// ErrInvalidCart: ROM size isn't a power of two or the header is
	// unreadable. The cart type byte is not checked here.
	ErrInvalidCart = errors.New("emu: invalid cartridge")

	// ErrUnsupportedMBC: the header's cart type is not in knownCartTypes.
	// Undefined type codes and defined types without an MBC implementation
	// both return this error; LoadCartridge does not tell them apart.
	ErrUnsupportedMBC = errors.New("emu: unsupported memory bank controller")

	// ErrIoError: a save-state or battery file could not be read or written.
	ErrIoError = errors.New("emu: I/O error")

	// ErrSaveStateVersion: the save-state magic or schema version on disk
	// doesn't match what this build writes.
	ErrSaveStateVersion = errors.New("emu: save state version mismatch")
)

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// knownCartTypes lists the header cart_type byte codes this core has an MBC
// implementation for (internal/cart.NewCartridge), per spec.md §4.2.
var knownCartTypes = map[byte]bool{
	0x00: true,                               // ROM only
	0x01: true, 0x02: true, 0x03: true,       // MBC1(+RAM)(+BATTERY)
	0x05: true, 0x06: true, // MBC2(+BATTERY)
	0x0F: true, 0x10: true, 0x11: true, 0x12: true, 0x13: true, // MBC3 variants
	0x19: true, 0x1A: true, 0x1B: true, 0x1C: true, 0x1D: true, 0x1E: true, // MBC5 variants
}
