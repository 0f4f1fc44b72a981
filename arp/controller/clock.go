package controller

// Audio advances the internal clock by one control tick. It only touches the
// internal counter and is safe to call from the audio goroutine.
func (c *Controller) Audio() {
	c.internal.Add(-1)
}

// ExternalSync registers one external clock pulse. It only touches the
// external counter and is safe to call from the MIDI input goroutine.
func (c *Controller) ExternalSync() {
	c.external.Add(-1)
}

// Control consumes an elapsed slot, if any. The external clock wins as long
// as it keeps pulsing; otherwise the internal counter drives the pattern. At
// most one slot is advanced per call; a counter that overshot zero is simply
// reloaded.
func (c *Controller) Control() {
	if c.startPending.Swap(false) {
		// Wait for the first pulse, the dropout timeout still applies.
		c.restart(SourceExternal)
		c.logger.Debug("External start")
	}

	pulses := c.external.Load()
	if pulses != c.lastExternal {
		c.lastExternal = pulses
		c.externalIdle = 0
		if c.source != SourceExternal {
			c.switchSource(SourceExternal)
		}
	}

	if c.source == SourceExternal {
		c.controlExternal(pulses)
		return
	}

	if c.internal.Load() <= 0 {
		c.advance()
		c.internal.Swap(c.stepDurations[c.step&1])
	}
}

// controlExternal runs while the external clock drives the pattern. The
// internal counter is then only used to measure elapsed control ticks, which
// feed the tempo estimator and the dropout detection.
func (c *Controller) controlExternal(pulses int32) {
	elapsed := uint32(max(-c.internal.Swap(0), 0))
	c.externalIdle = addSaturate32(c.externalIdle, elapsed)
	c.estimatorNum = addSaturate16(c.estimatorNum, elapsed)

	if pulses <= 0 {
		c.external.Swap(MIDIClockPrescaler)
		c.lastExternal = MIDIClockPrescaler
		c.updateEstimate()
		c.advance()
		return
	}

	if c.externalIdle > c.externalWindow {
		c.switchSource(SourceInternal)
	}
}

// updateEstimate runs on every slot consumed from the external clock. The
// first slot only aligns the accumulators on a slot boundary.
func (c *Controller) updateEstimate() {
	if !c.estimatorPrimed {
		c.estimatorPrimed = true
		c.estimatorNum = 0
		c.estimatorDen = 0
		return
	}

	c.estimatorDen++
	if c.estimatorDen < SlotsPerBeat {
		return
	}

	c.estimate = c.estimatorNum / uint16(c.estimatorDen)
	c.estimatorNum = 0
	c.estimatorDen = 0
	c.logger.Debug("External clock estimate",
		"slot_ticks", c.estimate,
		"bpm", c.EstimatedTempo())
}

func (c *Controller) switchSource(source ClockSource) {
	c.source = source
	c.externalIdle = 0
	c.estimatorNum = 0
	c.estimatorDen = 0
	c.estimatorPrimed = false

	switch source {
	case SourceExternal:
		// Start measuring from here, the internal countdown is meaningless now.
		c.internal.Store(0)
		c.logger.Info("Clock source changed", "source", source.String())
	case SourceInternal:
		c.external.Store(1)
		c.lastExternal = 1
		c.internal.Store(c.stepDurations[c.step&1])
		c.logger.Info("Clock source changed",
			"source", source.String(),
			"last_estimate_bpm", c.EstimatedTempo())
	}
}

func addSaturate16(a uint16, b uint32) uint16 {
	sum := uint32(a) + b
	if sum > 0xFFFF || sum < b {
		return 0xFFFF
	}
	return uint16(sum)
}

func addSaturate32(a, b uint32) uint32 {
	sum := a + b
	if sum < a {
		return 0xFFFFFFFF
	}
	return sum
}
