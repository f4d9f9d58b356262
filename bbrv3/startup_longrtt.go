// STARTUP_LONG_RTT: the satellite/high-RTT alternate startup.

package bbrv3

import (
	"github.com/sagernet/quic-go/congestion"
	"github.com/sagernet/quic-go/monotime"
)

// startupLongRTTState holds STARTUP_LONG_RTT's own bookkeeping.
type startupLongRTTState struct {
	entered bool
}

// enterStartupLongRTT transitions into STARTUP_LONG_RTT, scaling the
// initial cwnd by the ratio of this path's min RTT to TargetRenoRtt
// (capped at TargetSatelliteRtt's ratio), and raising it to bdp_seed if
// the host supplied one.
func (c *CC) enterStartupLongRTT(path Path) {
	c.mode = ModeStartupLongRtt
	c.startupLong.entered = true
	c.hystart.Reset()
	c.hystart.OnRoundStart()

	minRTT := path.MinRTT()
	if minRTT <= 0 {
		minRTT = c.params.MinRTTFilterLen
	}
	cappedRTT := minRTT
	if cappedRTT > TargetSatelliteRtt {
		cappedRTT = TargetSatelliteRtt
	}
	scale := float64(cappedRTT) / float64(TargetRenoRtt)
	if scale < 1 {
		scale = 1
	}
	scaled := mul64(c.cwnd, scale)
	if c.params.BdpSeed > 0 {
		seeded := congestion.ByteCount(c.params.BdpSeed)
		if seeded > scaled {
			scaled = seeded
		}
	}
	if scaled > MaxCwndPackets*c.model.mtu {
		scaled = MaxCwndPackets * c.model.mtu
	}
	c.cwnd = scaled
	c.priorCwnd = scaled
}

// startupLongRTTCheckDone runs on every ACK carrying an RTT sample (onAck
// has already fed the sample to the Hystart filter): if the filter fires
// (with the cwnd floor satisfied), force round_start/filled_pipe and fall
// through to DRAIN; otherwise, at a round start, apply the growth floor.
func (c *CC) startupLongRTTCheckDone(path Path, sample Sample, now monotime.Time) {
	if sample.RTTSample <= 0 {
		return
	}
	lowWindow := hystartLowWindow * c.model.mtu
	if c.hystart.ShouldExitStartup(c.cwnd, lowWindow) {
		c.model.roundStart = true
		c.startup.fullBwReached = true
		// A delay-based Hystart exit patches min_rtt down to the latest
		// sample if it undercuts the filtered value, so DRAIN starts from
		// an accurate BDP rather than the satellite-scale seed.
		if sample.RTTSample < c.model.minRtt {
			c.model.minRtt = sample.RTTSample
		}
		c.leaveStartup()
		c.mode = ModeDrain
		c.drain.enter(c.model, c.cwnd)
		return
	}
	if !c.model.roundStart {
		return
	}
	c.hystart.OnRoundStart()

	// Growth floor while still filling a long-RTT pipe:
	// cwnd never drops below half of peak_bw*min_rtt (or bdp_seed).
	floor := mul64(c.model.bwBdp(c.model.maxBw()), 0.5)
	if c.params.BdpSeed > 0 {
		seededFloor := congestion.ByteCount(c.params.BdpSeed) / 2
		if seededFloor > floor {
			floor = seededFloor
		}
	}
	if c.cwnd < floor {
		c.cwnd = floor
	}
}
