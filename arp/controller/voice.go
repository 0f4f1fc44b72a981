package controller

// Voice is the sound-producing side of the controller. The controller only
// ever tells a voice which pitch to start and when to let go of it; how it
// sounds is up to the implementation.
type Voice interface {
	// Trigger starts a note. When legato is set the voice should glide to the
	// new pitch without restarting its envelope.
	Trigger(note, velocity uint8, legato bool)

	// Release lets go of the sounding note, the envelope runs its release.
	Release()

	// Kill silences the voice immediately.
	Kill()
}
