// Control output: pacing rate, send quantum, and cwnd.

package bbrv3

import (
	"time"

	"github.com/sagernet/quic-go/congestion"
)

// gains returns the (pacing_gain, cwnd_gain) pair for the current mode
// and PROBE_BW sub-phase.
func (c *CC) gains() (pacingGain, cwndGain float64) {
	switch c.mode {
	case ModeStartup:
		return StartupPacingGain, StartupCwndGain
	case ModeStartupLongRtt:
		return StartupPacingGain, StartupCwndGain
	case ModeDrain:
		return 1 / StartupCwndGain, StartupCwndGain
	case ModeProbeRtt:
		return 1.0, ProbeRTTCwndGain
	case ModeProbeBw:
		switch c.cyclePhase {
		case CyclePhaseDown:
			return 0.9, 2.0
		case CyclePhaseCruise:
			return 1.0, 2.0
		case CyclePhaseRefill:
			return 1.25, 2.0
		default:
			return 1.25, 2.0
		}
	default:
		return 1.0, 2.0
	}
}

// updateControlParameters is the tail of the per-ACK pipeline: it derives
// pacing_rate, send_quantum, and cwnd from the (now fully updated) path
// model and writes them back to the host.
func (c *CC) updateControlParameters(path Path, sample Sample) {
	pacingGain, cwndGain := c.gains()

	c.model.updateMaxInflight(c.quantizationBudget, cwndGain)

	if c.mode != ModeStartupLongRtt {
		c.setPacingRate(pacingGain)
		c.setSendQuantum()
	}
	c.setCwnd(sample, cwndGain)

	if c.mode == ModeStartupLongRtt {
		path.SetCongestionWindow(c.cwnd)
	} else {
		path.SetPacingRate(c.pacingRate, c.sendQuantum)
		path.SetCongestionWindow(c.cwnd)
	}

	if c.startup.fullBwReached && !c.ssthreshSet {
		c.ssthreshSet = true
	}
}

// setPacingRate computes the target pacing rate. Before filled_pipe it
// may only be lowered; after, it tracks the target directly.
func (c *CC) setPacingRate(pacingGain float64) {
	target := c.model.bw().Mul(pacingGain).Mul(1 - float64(PacingMarginPercent)/100)
	if !c.startup.fullBwReached && uint64(target) > uint64(c.pacingRate) && c.pacingRate != 0 {
		return
	}
	c.pacingRate = target
}

// setSendQuantum derives the burst size from the pacing rate.
func (c *CC) setSendQuantum() {
	floor := 2 * c.model.mtu
	if uint64(c.pacingRate) < SendQuantumPacingThreshold {
		floor = c.model.mtu
	}
	quantum := c.pacingRate.ToBytesPerPeriod(time.Millisecond)
	if quantum < floor {
		quantum = floor
	}
	if quantum > SendQuantumMax {
		quantum = SendQuantumMax
	}
	c.sendQuantum = quantum
}

// quantizationBudget floors the raw BDP-based target so tiny windows
// don't starve pacing.
func (c *CC) quantizationBudget(inflight congestion.ByteCount) congestion.ByteCount {
	budget := 3 * c.sendQuantum
	if inflight > budget {
		budget = inflight
	}
	if MinPipeCwnd*c.model.mtu > budget {
		budget = MinPipeCwnd * c.model.mtu
	}
	if c.mode == ModeProbeBw && c.cyclePhase == CyclePhaseUp {
		budget += 2 * c.model.mtu
	}
	return budget
}

// setCwnd recomputes cwnd from the current sample and gain.
func (c *CC) setCwnd(sample Sample, cwndGain float64) {
	cwnd := c.cwnd

	if sample.NewlyLost > 0 {
		if sample.NewlyLost >= cwnd {
			cwnd = c.model.mtu
		} else {
			cwnd -= sample.NewlyLost
			if cwnd < c.model.mtu {
				cwnd = c.model.mtu
			}
		}
	}

	packetConservation := c.mode == ModeProbeBw && c.cyclePhase == CyclePhaseRefill
	if !packetConservation {
		belowInitialCwnd := sample.PriorDelivered < congestion.ByteCount(InitialCwndPackets)*c.model.mtu
		if belowInitialCwnd || cwnd < c.model.maxInflight {
			cwnd += sample.NewlyAcked
			if cwnd > c.model.maxInflight {
				cwnd = c.model.maxInflight
			}
		}
	}

	if c.mode == ModeProbeRtt {
		rttCwnd := c.probeRTTCwnd()
		if cwnd > rttCwnd {
			cwnd = rttCwnd
		}
	}

	cwnd = c.boundCwndForModel(cwnd)
	c.cwnd = cwnd
}

// boundCwndForModel applies the model's upper bounds on cwnd.
func (c *CC) boundCwndForModel(cwnd congestion.ByteCount) congestion.ByteCount {
	capVal := infByteCount
	switch {
	case c.mode == ModeProbeRtt || (c.mode == ModeProbeBw && c.cyclePhase == CyclePhaseCruise):
		capVal = c.inflightWithHeadroom()
	case c.mode == ModeProbeBw:
		capVal = c.model.inflightHi
	}
	if capVal != infByteCount && cwnd > capVal {
		cwnd = capVal
	}
	if c.model.inflightLo != infByteCount && cwnd > c.model.inflightLo {
		cwnd = c.model.inflightLo
	}
	floor := MinPipeCwnd * c.model.mtu
	if cwnd < floor {
		cwnd = floor
	}
	return cwnd
}
