// PROBE_RTT: the periodic min-RTT refresh, plus the min-RTT-margin
// local extension that decides when PROBE_RTT is actually needed.

package bbrv3

import (
	"time"

	"github.com/sagernet/quic-go/congestion"
	"github.com/sagernet/quic-go/monotime"
)

// probeRTTState holds PROBE_RTT's own bookkeeping.
type probeRTTState struct {
	savedCwnd congestion.ByteCount
}

// updateMinRTT folds one RTT sample into min_rtt and the probe-RTT minimum
// delay, applying the
// min-RTT-margin local extension: samples within the margin refresh the
// stamps without being treated as a genuine new minimum.
func (c *CC) updateMinRTT(path Path, sample Sample, now monotime.Time) {
	margin := c.minRTTMargin()

	if c.model.minRtt == infRTT || sample.RTTSample < c.model.minRtt {
		c.model.minRtt = sample.RTTSample
		c.model.minRttStamp = now
	} else if sample.RTTSample <= c.model.minRtt+margin {
		c.model.minRttStamp = now
	}

	if c.model.probeRttMinDelay == 0 || sample.RTTSample <= c.model.probeRttMinDelay {
		c.model.probeRttMinDelay = sample.RTTSample
		c.model.probeRttMinStamp = now
	} else if sample.RTTSample <= c.model.probeRttMinDelay+margin {
		c.model.probeRttMinStamp = now
	}

	c.model.probeRttExpired = now.Sub(c.model.probeRttMinStamp) > c.params.ProbeRTTInterval
}

// minRTTMargin computes the band within which an RTT sample is still
// "valid for the current min_rtt".
func (c *CC) minRTTMargin() time.Duration {
	pct := time.Duration(float64(c.model.minRtt) * c.params.MinRttMarginPercent / 100)
	extra := time.Duration(0)
	if bw := c.model.bw(); !bw.IsInfinite() && !bw.IsZero() {
		extra = time.Duration(uint64(2*c.model.mtu) * uint64(time.Second) / uint64(bw))
	}
	return pct + extra
}

func (c *CC) probeRTTCwnd() congestion.ByteCount {
	cwnd := mul64(c.model.bdp(), ProbeRTTCwndGain)
	if cwnd < MinPipeCwnd*c.model.mtu {
		cwnd = MinPipeCwnd * c.model.mtu
	}
	return cwnd
}

// maybeEnterProbeRTT switches into PROBE_RTT once min_rtt has gone stale.
// PROBE_RTT can interrupt any other mode.
func (c *CC) maybeEnterProbeRTT(path Path, now monotime.Time) {
	if c.mode == ModeProbeRtt || !c.model.probeRttExpired {
		return
	}
	c.probeRTT.savedCwnd = c.cwnd
	c.model.probeRttDoneStamp = monotime.Time{}
	c.model.probeRttRoundDone = false
	c.probeBw.ackPhase = AckPhaseProbeStopping
	c.mode = ModeProbeRtt
	c.model.startRound(path.BytesInTransit())
}

// probeRTTAdvance runs the wait-for-drain / round-done / restore sequence.
func (c *CC) probeRTTAdvance(path Path, now monotime.Time) {
	bytesInTransit := path.BytesInTransit()

	if c.model.probeRttDoneStamp.IsZero() && bytesInTransit <= c.probeRTTCwnd() {
		c.model.probeRttDoneStamp = now.Add(c.params.ProbeRTTDuration)
		c.model.probeRttRoundDone = false
	}
	if c.model.roundStart {
		c.model.probeRttRoundDone = true
	}

	if !c.model.probeRttDoneStamp.IsZero() && c.model.probeRttRoundDone && now.After(c.model.probeRttDoneStamp) {
		c.model.minRttStamp = now
		c.model.clearLowerBounds()
		if c.cwnd < c.probeRTT.savedCwnd {
			c.cwnd = c.probeRTT.savedCwnd
		}
		if c.startup.fullBwReached {
			c.mode = ModeProbeBw
			c.enterProbeBwDown(path)
			c.enterProbeBwCruise()
		} else {
			c.mode = ModeStartup
		}
	}
}
