package emu

// Audio pull interface: thin pass-throughs to the APU's lock-free
// single-producer/single-consumer ring buffer (spec.md §5/§6). The core
// only ever appends; hosts pull from their own audio callback.

// APUBufferedStereo returns the number of stereo frames currently queued.
func (m *Machine) APUBufferedStereo() int {
	if m.bus == nil {
		return 0
	}
	return m.bus.APU().StereoAvailable()
}

// APUPullStereo removes and returns up to max buffered stereo frames as an
// interleaved int16 slice [L0,R0,L1,R1,...].
func (m *Machine) APUPullStereo(max int) []int16 {
	if m.bus == nil {
		return nil
	}
	return m.bus.APU().PullStereo(max)
}

// APUCapBufferedStereo discards buffered audio down to at most maxFrames
// stereo frames, for hosts recovering from a latency spike.
func (m *Machine) APUCapBufferedStereo(maxFrames int) {
	if m.bus == nil {
		return
	}
	a := m.bus.APU()
	for a.StereoAvailable() > maxFrames {
		if len(a.PullStereo(a.StereoAvailable()-maxFrames)) == 0 {
			break
		}
	}
}

// APUClearAudioLatency drains all currently buffered audio, used when
// (re)starting playback to avoid replaying a stale backlog.
func (m *Machine) APUClearAudioLatency() {
	m.APUCapBufferedStereo(0)
}
