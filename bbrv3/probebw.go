// PROBE_BW: the steady-state DOWN/CRUISE/REFILL/UP cycle.

package bbrv3

import (
	"time"

	"github.com/sagernet/quic-go/congestion"
	"github.com/sagernet/quic-go/monotime"
)

const probeBwUpRoundsCap = 30

// probeBwState holds PROBE_BW's per-cycle bookkeeping.
type probeBwState struct {
	ackPhase        AckPhase
	bwProbeWait     time.Duration
	cycleStamp      monotime.Time
	bwProbeSamples  int
	bwProbeUpRounds int
	bwProbeUpAcks   congestion.ByteCount
	bwProbeUpCnt    congestion.ByteCount // ∞ outside UP
}

func (c *CC) targetInflight() congestion.ByteCount {
	bdp := c.model.bwBdp(c.model.maxBw())
	if c.cwnd < bdp {
		return c.cwnd
	}
	return bdp
}

func (c *CC) inflightWithHeadroom() congestion.ByteCount {
	if c.model.inflightHi == infByteCount {
		return infByteCount
	}
	headroom := mul64(c.model.inflightHi, 1-c.params.Headroom)
	if headroom < MinPipeCwnd*c.model.mtu {
		return MinPipeCwnd * c.model.mtu
	}
	return headroom
}

func (c *CC) inflightWithBw(gain float64, bw Bandwidth) congestion.ByteCount {
	return mul64(c.model.bwBdp(bw), gain)
}

func (c *CC) hasElapsedInPhase(d time.Duration, now monotime.Time) bool {
	if c.probeBw.cycleStamp.IsZero() {
		return true
	}
	return now.Sub(c.probeBw.cycleStamp) >= d
}

// enterProbeBwDown is also the entry point when arriving from DRAIN.
func (c *CC) enterProbeBwDown(path Path) {
	c.cyclePhase = CyclePhaseDown
	c.model.lossInRound = false
	c.probeBw.bwProbeUpCnt = infByteCount
	c.model.roundsSinceProbe = int64(c.rng.intn(2))
	c.probeBw.bwProbeWait = time.Duration(c.rng.durationIn(int64(ProbeBwProbeWaitMin), int64(ProbeBwProbeWaitMax)))
	c.probeBw.cycleStamp = monotime.Now()
	c.probeBw.ackPhase = AckPhaseProbeStopping
	c.model.startRound(path.BytesInTransit())
}

func (c *CC) enterProbeBwCruise() {
	c.cyclePhase = CyclePhaseCruise
}

func (c *CC) enterProbeBwRefill() {
	c.cyclePhase = CyclePhaseRefill
	c.model.clearLowerBounds()
	c.probeBw.bwProbeUpRounds = 0
	c.probeBw.bwProbeUpAcks = 0
	c.probeBw.ackPhase = AckPhaseRefilling
}

func (c *CC) enterProbeBwUp() {
	c.cyclePhase = CyclePhaseUp
	c.probeBw.ackPhase = AckPhaseProbeStarting
	c.raiseInflightHiSlope()
	c.probeBw.cycleStamp = monotime.Now()
}

// raiseInflightHiSlope sets the per-ACK growth rate for inflight_hi during
// UP: one MTU of growth per cwnd's worth of acknowledged bytes, i.e. about
// one MTU per round.
func (c *CC) raiseInflightHiSlope() {
	growthThisRound := congestion.ByteCount(1) * c.model.mtu
	roundsToGrow := congestion.ByteCount(c.cwnd / c.model.mtu)
	if roundsToGrow < 1 {
		roundsToGrow = 1
	}
	c.probeBw.bwProbeUpCnt = growthThisRound * roundsToGrow
	if c.probeBw.bwProbeUpCnt < 1 {
		c.probeBw.bwProbeUpCnt = 1
	}
}

// probeBwAdvance runs once per ACK while in PROBE_BW: adaptUpperBounds,
// then (once filled_pipe) the transition DAG evaluation.
func (c *CC) probeBwAdvance(path Path, sample Sample, now monotime.Time) {
	c.adaptUpperBounds(path, sample)

	if !c.startup.fullBwReached {
		return
	}

	bytesInTransit := path.BytesInTransit()

	switch c.cyclePhase {
	case CyclePhaseDown:
		if bytesInTransit <= c.inflightWithHeadroom() && bytesInTransit <= c.inflightWithBw(1.0, c.model.maxBw()) {
			c.enterProbeBwCruise()
			return
		}
		c.maybeStartRefill(path, now)
	case CyclePhaseCruise:
		c.maybeStartRefill(path, now)
	case CyclePhaseRefill:
		if c.model.roundStart {
			c.probeBw.bwProbeSamples = 1
			c.enterProbeBwUp()
		}
	case CyclePhaseUp:
		if c.hasElapsedInPhase(c.model.minRtt, now) && bytesInTransit > c.inflightWithBw(1.25, c.model.maxBw()) {
			c.enterProbeBwDown(path)
		}
	}
}

func (c *CC) maybeStartRefill(path Path, now monotime.Time) {
	targetRounds := int64(c.targetInflight() / c.model.mtu)
	if targetRounds > ProbeBwRenoCoexistenceRoundsCap {
		targetRounds = ProbeBwRenoCoexistenceRoundsCap
	}
	if c.hasElapsedInPhase(c.probeBw.bwProbeWait, now) || c.model.roundsSinceProbe >= targetRounds {
		c.enterProbeBwRefill()
	}
}

// adaptUpperBounds adjusts inflight_hi and bw_hi, run on every ACK while
// in any PROBE_BW sub-phase.
func (c *CC) adaptUpperBounds(path Path, sample Sample) {
	if c.model.roundStart {
		switch c.probeBw.ackPhase {
		case AckPhaseProbeStarting:
			c.probeBw.ackPhase = AckPhaseProbeFeedback
		case AckPhaseProbeStopping:
			if !sample.IsAppLimited {
				c.model.maxBwFilter.StartPeriod(c.model.roundCount / MaxBwFilterLen)
			}
		}
	}

	if c.loss.isInflightTooHigh(sample, c.params.LossThresh) && c.probeBw.bwProbeSamples > 0 {
		c.probeBw.bwProbeSamples = 0
		if !sample.IsAppLimited {
			floor := mul64(c.targetInflight(), c.params.Beta)
			if sample.TxInFlight > floor {
				c.model.inflightHi = sample.TxInFlight
			} else {
				c.model.inflightHi = floor
			}
		}
		if c.cyclePhase == CyclePhaseUp {
			c.enterProbeBwDown(path)
		}
		return
	}

	if c.model.inflightHi == infByteCount || sample.TxInFlight > c.model.inflightHi {
		c.model.inflightHi = sample.TxInFlight
	}
	deliveryRate := Bandwidth(uint64(sample.DeliveryRateOrFallback()))
	if uint64(deliveryRate) > uint64(c.model.bwHi) {
		c.model.bwHi = deliveryRate
	}

	if c.cyclePhase == CyclePhaseUp {
		c.probeBw.bwProbeUpAcks += sample.NewlyAcked
		if c.probeBw.bwProbeUpCnt > 0 && c.probeBw.bwProbeUpAcks >= c.probeBw.bwProbeUpCnt {
			extraRounds := c.probeBw.bwProbeUpAcks / c.probeBw.bwProbeUpCnt
			c.probeBw.bwProbeUpAcks -= extraRounds * c.probeBw.bwProbeUpCnt
			c.model.inflightHi += extraRounds * c.model.mtu
		}
		if c.model.roundStart {
			c.probeBw.bwProbeUpRounds++
			if c.probeBw.bwProbeUpRounds >= probeBwUpRoundsCap {
				c.probeBw.bwProbeUpRounds = probeBwUpRoundsCap
			}
		}
	}
}
