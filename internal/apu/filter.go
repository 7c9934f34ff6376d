package apu

// hpFilter models the DMG's analog high-pass filter on each output channel.
// Real hardware has no DC blocking in the digital mix; the capacitor on the
// audio output pin slowly charges toward the input level, so a sustained DC
// offset (e.g. a channel left at a constant DAC output) decays to silence
// rather than playing back as a pop or constant volume shift.
type hpFilter struct {
	capacitor float64
}

// charge factor per sample at 48kHz, matching the ~row of decay measured on
// real hardware (see hardware.txt style notes in comparable cores).
const hpfCharge = 0.996

func (f *hpFilter) apply(in float64) float64 {
	out := in - f.capacitor
	f.capacitor = in - out*hpfCharge
	return out
}
