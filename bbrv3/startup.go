// STARTUP: the initial exponential-growth mode.

package bbrv3

import "github.com/sagernet/quic-go/monotime"

// startupState holds STARTUP's own bookkeeping: the full-bandwidth
// detector and its round counters.
type startupState struct {
	fullBwReached    bool
	fullBw           Bandwidth
	fullBwCount      int
	roundsSinceStart int
}

// startupCheckDone runs the three STARTUP exit criteria on every round
// boundary: filled_pipe (three stalled non-app-limited rounds), the
// high-loss exit, and the local high-RTT extension to STARTUP_LONG_RTT.
func (c *CC) startupCheckDone(path Path, sample Sample, now monotime.Time) {
	if !c.model.roundStart {
		return
	}
	c.startup.roundsSinceStart++

	if !sample.IsAppLimited {
		c.checkStartupFullBandwidth()
	}

	if c.loss.isInflightTooHigh(sample, c.params.LossThresh) {
		// excessive loss this round: seed inflight_hi from bdp and declare
		// the pipe full immediately.
		bdp := c.model.bdp()
		if c.model.inflightHi == infByteCount || bdp > c.model.inflightHi {
			c.model.inflightHi = bdp
		}
		c.startup.fullBwReached = true
	}

	if path.MinRTT() > TargetRenoRtt && !c.startup.fullBwReached {
		// A path whose RTT only becomes known to be large after STARTUP has
		// already begun hands off to STARTUP_LONG_RTT instead of continuing
		// blind exponential growth.
		c.enterStartupLongRTT(path)
		return
	}

	if c.startup.fullBwReached {
		c.leaveStartup()
		c.mode = ModeDrain
		c.drain.enter(c.model, c.cwnd)
	}
}

// checkStartupFullBandwidth implements the filled_pipe growth test: three
// consecutive non-app-limited rounds without at least 25% bandwidth growth
// declare the pipe full.
func (c *CC) checkStartupFullBandwidth() {
	bw := c.model.maxBw()
	if uint64(bw)*startupFullBwThresholdDen >= uint64(c.startup.fullBw)*startupFullBwThresholdNum {
		c.startup.fullBw = bw
		c.startup.fullBwCount = 0
		return
	}
	c.startup.fullBwCount++
	if c.startup.fullBwCount >= startupFullBwRounds {
		c.startup.fullBwReached = true
	}
}

func (c *CC) leaveStartup() {
	// Any bw_lo set speculatively during STARTUP does not carry into
	// DRAIN's own lower-bound lifecycle.
	c.model.bwLo = infBandwidth
	if c.model.inflightHi == infByteCount {
		c.model.inflightHi = c.model.bdp()
	}
}
