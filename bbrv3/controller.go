// CC is the per-path BBRv3 congestion controller: the top-level type that
// aggregates the path model, the five mode-local state structs, and the
// loss-rate tracker, and dispatches Notify calls to the active mode.

package bbrv3

import (
	"time"

	"github.com/sagernet/quic-go/congestion"
	"github.com/sagernet/quic-go/monotime"
	"github.com/sagernet/sing/common/logger"
)

// Path is the set of host-supplied inputs and outputs CC needs each time
// it runs. The host (the QUIC transport) implements this once per path.
type Path interface {
	MTU() congestion.ByteCount
	SmoothedRTT() time.Duration
	RTTVariance() time.Duration
	MinRTT() time.Duration
	BytesInTransit() congestion.ByteCount
	ClientMode() bool
	UniquePathID() uint64

	SetPacingRate(rate Bandwidth, burst congestion.ByteCount)
	SetCongestionWindow(cwnd congestion.ByteCount)
}

// CC is a per-path BBRv3 controller. It has no internal goroutines or
// locking: every exported method must be called serially by the host for
// a given path, matching BBR2Sender's single-threaded contract under the
// owning quic.Conn.
type CC struct {
	logger logger.Logger

	params *Params
	model  *pathModel
	loss   lossState

	mode       Mode
	cyclePhase CyclePhase

	startup     startupState
	startupLong startupLongRTTState
	drain       drainState
	probeBw     probeBwState
	probeRTT    probeRTTState

	hystart HystartFilter

	cwnd        congestion.ByteCount
	priorCwnd   congestion.ByteCount
	pacingRate  Bandwidth
	sendQuantum congestion.ByteCount
	ssthreshSet bool

	rng *randomStream
}

// New constructs a CC with the given params (nil selects DefaultParams())
// and an optional host-supplied Hystart collaborator (nil selects
// DefaultHystartFilter).
func New(params *Params, hystart HystartFilter, log logger.Logger) *CC {
	if params == nil {
		params = DefaultParams()
	}
	if hystart == nil {
		hystart = NewDefaultHystartFilter()
	}
	c := &CC{
		logger:  log,
		params:  params,
		hystart: hystart,
	}
	c.resetState()
	return c
}

func (c *CC) resetState() {
	c.model = newPathModel(c.params)
	c.loss = newLossState(c.params)
	c.mode = ModeStartup
	c.cyclePhase = CyclePhaseCruise
	c.startup = startupState{}
	c.startupLong = startupLongRTTState{}
	c.drain = drainState{}
	c.probeBw = probeBwState{}
	c.probeRTT = probeRTTState{}
	c.hystart.Reset()
	c.cwnd = congestion.ByteCount(InitialCwndPackets) * c.model.mtu
	c.priorCwnd = c.cwnd
	c.pacingRate = 0
	c.sendQuantum = 2 * c.model.mtu
	c.ssthreshSet = false
}

// Init starts a fresh controller for a path, choosing STARTUP or
// STARTUP_LONG_RTT from the path's current min RTT
func (c *CC) Init(path Path) {
	c.model.mtu = path.MTU()
	c.resetState()
	c.model.mtu = path.MTU()
	c.cwnd = congestion.ByteCount(InitialCwndPackets) * c.model.mtu
	c.priorCwnd = c.cwnd
	c.sendQuantum = 2 * c.model.mtu

	c.rng = newRandomStream(int64(monotime.Now()), path.ClientMode(), path.UniquePathID())

	if path.MinRTT() > TargetRenoRtt {
		c.enterStartupLongRTT(path)
	} else {
		c.mode = ModeStartup
	}
	c.model.startRound(path.BytesInTransit())
}

// Delete releases any resources held for the path. CC holds none beyond
// its own fields, so this is a no-op kept for interface symmetry with the
// registry descriptor
func (c *CC) Delete(Path) {}

// Observe reports the controller's current state code and bandwidth
// estimate
func (c *CC) Observe() (StateCode, Bandwidth) {
	return c.stateCode(), c.model.bw()
}

func (c *CC) stateCode() StateCode {
	switch c.mode {
	case ModeStartup:
		return StateCodeStartup
	case ModeStartupLongRtt:
		return StateCodeStartupLongRtt
	case ModeDrain:
		return StateCodeDrain
	case ModeProbeRtt:
		return StateCodeProbeRtt
	case ModeProbeBw:
		switch c.cyclePhase {
		case CyclePhaseDown:
			return StateCodeProbeBwDown
		case CyclePhaseCruise:
			return StateCodeProbeBwCruise
		case CyclePhaseRefill:
			return StateCodeProbeBwRefill
		default:
			return StateCodeProbeBwUp
		}
	default:
		return StateCodeStartup
	}
}

// Notify is the single entry point for every event the host may deliver.
// The dispatch order within NotifyAcknowledgement follows a fixed
// pipeline: round and delivery-rate updates, loss and RTT handling, ACK
// aggregation, the active mode's own advance step, then the pacing
// rate/cwnd recompute.
func (c *CC) Notify(path Path, kind NotificationKind, sample Sample) {
	if c == nil {
		return
	}
	switch kind {
	case NotifyAcknowledgement, NotifyRepeat:
		c.onAck(path, sample)
	case NotifyTimeout:
		c.onTimeout(path)
	case NotifySpuriousRepeat:
		c.onSpuriousRepeat()
	case NotifyECNEC:
		// Reserved hook; BBRv3's ECN reaction is not part of this
		// controller's scope
	case NotifyRTTMeasurement:
		// No-op: RTT is folded in as part of each NotifyAcknowledgement's
		// Sample, not delivered standalone.
	case NotifyCwndBlocked:
		// No-op: cwnd-blocked state is not tracked by this controller.
	case NotifyReset:
		c.onResetNotification(path)
	case NotifySeedCwnd:
		c.onSeedCwndNotification(sample)
	}
}

func (c *CC) onAck(path Path, sample Sample) {
	now := sample.EventTime
	if now.IsZero() {
		now = monotime.Now()
	}

	c.model.delivered += sample.Delivered

	bytesInTransit := path.BytesInTransit()
	c.model.updateRound(bytesInTransit)

	deliveryRate := Bandwidth(uint64(sample.DeliveryRateOrFallback()))

	c.model.updateLatestDeliverySignals(sample, deliveryRate)
	c.model.updateMaxBw(sample, deliveryRate)
	c.model.updateCongestionSignals(sample, c.cwnd, c.mode == ModeProbeBw)

	if sample.RTTSample > 0 {
		c.updateMinRTT(path, sample, now)
	}

	c.loss.onAck(sample)
	if c.loss.isInflightTooHigh(sample, c.params.LossThresh) {
		c.handleInflightTooHigh(sample, now)
	}

	c.model.updateExtraAcked(sample, now, c.cwnd)

	if c.model.roundStart && sample.RTTSample > 0 {
		c.hystart.OnRoundStart()
	}
	if sample.RTTSample > 0 {
		c.hystart.OnRTTSample(sample.RTTSample, c.model.minRtt)
	}

	switch c.mode {
	case ModeStartup:
		c.startupCheckDone(path, sample, now)
	case ModeStartupLongRtt:
		c.startupLongRTTCheckDone(path, sample, now)
	case ModeDrain:
		c.drainCheckDone(path, bytesInTransit)
	case ModeProbeBw:
		c.probeBwAdvance(path, sample, now)
	case ModeProbeRtt:
		c.probeRTTAdvance(path, now)
	}

	c.model.advanceLatestDeliverySignals(sample, deliveryRate)
	c.maybeEnterProbeRTT(path, now)

	c.updateControlParameters(path, sample)
}

func (c *CC) onTimeout(path Path) {
	// A timeout is treated as a full-window loss signal: shrink the lower
	// bounds immediately rather than waiting for the next round boundary.
	c.model.lossInRound = true
	c.model.lossRoundStart = true
	c.model.adaptLowerBoundsFromCongestion(c.cwnd)
	c.priorCwnd = c.cwnd
	c.cwnd = mul64(c.cwnd, c.params.Beta)
	if c.cwnd < MinPipeCwnd*c.model.mtu {
		c.cwnd = MinPipeCwnd * c.model.mtu
	}
}

func (c *CC) onSpuriousRepeat() {
	// A loss later confirmed spurious: restore priorCwnd, the cwnd saved
	// by the most recent timeout (or at init), if it is larger. Repeats
	// go through onAck and do not save priorCwnd.
	if c.priorCwnd > c.cwnd {
		c.cwnd = c.priorCwnd
	}
}

func (c *CC) onResetNotification(path Path) {
	c.resetState()
	c.Init(path)
}

func (c *CC) onSeedCwndNotification(sample Sample) {
	if sample.Delivered > 0 {
		c.params.BdpSeed = uint64(sample.Delivered)
	}
}
