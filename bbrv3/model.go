// Path model: bandwidth/RTT filters, round counting, delivery-rate and
// congestion-signal handling, ACK aggregation, and the inflight/bandwidth
// bounds shared by every mode.

package bbrv3

import (
	"math"
	"time"

	"github.com/sagernet/quic-go/congestion"
	"github.com/sagernet/quic-go/monotime"
)

const infRTT = time.Duration(math.MaxInt64)

// infByteCount is the sentinel for inflight_hi / inflight_lo when "inactive".
const infByteCount = congestion.ByteCount(math.MaxInt64)

// pathModel holds the bandwidth/RTT/volume state shared by every mode.
type pathModel struct {
	mtu congestion.ByteCount

	// Round counting.
	roundCount         int64
	roundsSinceProbe   int64
	roundStart         bool
	nextRoundDelivered congestion.ByteCount
	delivered          congestion.ByteCount

	// Bandwidth model.
	maxBwFilter *MaxFilter
	bwHi        Bandwidth // ∞ when inactive
	bwLo        Bandwidth // ∞ when inactive

	// RTT model.
	minRtt            time.Duration // ∞ sentinel until first sample
	minRttStamp       monotime.Time
	probeRttMinDelay  time.Duration
	probeRttMinStamp  monotime.Time
	minRttMargin      time.Duration
	probeRttExpired   bool
	probeRttDoneStamp monotime.Time
	probeRttRoundDone bool

	// Volume model.
	extraAcked     congestion.ByteCount
	maxInflight    congestion.ByteCount
	inflightHi     congestion.ByteCount // ∞ initially
	inflightLo     congestion.ByteCount // ∞ initially
	bwLatest       Bandwidth
	inflightLatest congestion.ByteCount

	// ACK aggregation.
	extraAckedIntervalStart monotime.Time
	extraAckedDelivered     congestion.ByteCount
	extraAckedFilter        *MaxFilter

	// Loss-in-round bookkeeping.
	lossInRound        bool
	lossRoundStart     bool
	lossRoundDelivered congestion.ByteCount

	params *Params
}

func newPathModel(params *Params) *pathModel {
	mtu := congestion.ByteCount(params.MTU)
	return &pathModel{
		mtu:              mtu,
		maxBwFilter:      NewMaxFilter(MaxBwFilterLen),
		bwHi:             infBandwidth,
		bwLo:             infBandwidth,
		minRtt:           infRTT,
		inflightHi:       infByteCount,
		inflightLo:       infByteCount,
		extraAckedFilter: NewMaxFilter(ExtraAckedFilterLen),
		params:           params,
	}
}

// maxBw is the windowed max of delivery-rate samples.
func (m *pathModel) maxBw() Bandwidth {
	return Bandwidth(m.maxBwFilter.Get())
}

// bw is min(max_bw, bw_hi, bw_lo).
func (m *pathModel) bw() Bandwidth {
	return m.maxBw().Min(m.bwHi).Min(m.bwLo)
}

// bdp = bw * min_rtt. Returns InitialCwnd·mtu if no RTT has ever been
// sampled.
func (m *pathModel) bdp() congestion.ByteCount {
	if m.minRtt == infRTT {
		return congestion.ByteCount(InitialCwndPackets) * m.mtu
	}
	return m.bwBdp(m.bw())
}

func (m *pathModel) bwBdp(bw Bandwidth) congestion.ByteCount {
	if m.minRtt == infRTT || bw.IsInfinite() {
		return congestion.ByteCount(InitialCwndPackets) * m.mtu
	}
	return bw.ToBytesPerPeriod(m.minRtt)
}

// startRound opens a round by recording the delivered-byte mark at which
// it closes.
func (m *pathModel) startRound(bytesInTransit congestion.ByteCount) {
	m.nextRoundDelivered = m.delivered + bytesInTransit
}

// updateRound advances round_count / rounds_since_probe when the round
// closes, and rotates the ACK-aggregation filter's slot on every round
// boundary.
func (m *pathModel) updateRound(bytesInTransit congestion.ByteCount) {
	if m.delivered >= m.nextRoundDelivered {
		m.roundCount++
		m.roundsSinceProbe++
		m.roundStart = true
		m.extraAckedFilter.StartPeriod(m.roundCount)
		m.startRound(bytesInTransit)
	} else {
		m.roundStart = false
	}
}

// updateLatestDeliverySignals folds the sample into the 1-round max
// trackers and re-derives loss_round_start.
func (m *pathModel) updateLatestDeliverySignals(sample Sample, deliveryRate Bandwidth) {
	if uint64(deliveryRate) > uint64(m.bwLatest) {
		m.bwLatest = deliveryRate
	}
	if sample.Delivered > m.inflightLatest {
		m.inflightLatest = sample.Delivered
	}
	priorDelivered := m.delivered - sample.Delivered
	m.lossRoundStart = priorDelivered >= m.lossRoundDelivered
	if m.lossRoundStart {
		m.lossRoundDelivered = m.delivered
	}
}

// updateMaxBw feeds the 2-slot max filter with the delivery rate, but only
// when the sample is trustworthy: app-limited samples may only *confirm*
// an existing peak, never lower it.
func (m *pathModel) updateMaxBw(sample Sample, deliveryRate Bandwidth) {
	if uint64(deliveryRate) >= uint64(m.maxBw()) || !sample.IsAppLimited {
		m.maxBwFilter.Update(m.roundCount/MaxBwFilterLen, uint64(deliveryRate))
	}
}

// advanceLatestDeliverySignals resets the 1-round trackers to the current
// sample at round end.
func (m *pathModel) advanceLatestDeliverySignals(sample Sample, deliveryRate Bandwidth) {
	if !m.roundStart {
		return
	}
	m.bwLatest = deliveryRate
	m.inflightLatest = sample.Delivered
}

// updateCongestionSignals records loss-in-round and, at a round boundary
// outside any PROBE_BW sub-phase, adapts the lower bounds.
func (m *pathModel) updateCongestionSignals(sample Sample, cwnd congestion.ByteCount, inProbeBw bool) {
	if sample.NewlyLost > 0 {
		m.lossInRound = true
	}
	if !m.lossRoundStart {
		return
	}
	if !inProbeBw {
		m.adaptLowerBoundsFromCongestion(cwnd)
	}
	m.lossInRound = false
}

// adaptLowerBoundsFromCongestion is the Beta-shrink reaction to loss:
// once a round closes with loss recorded, bw_lo and inflight_lo become the
// larger of the observed latest value and Beta times their current value.
func (m *pathModel) adaptLowerBoundsFromCongestion(cwnd congestion.ByteCount) {
	if !m.lossInRound {
		return
	}
	if m.bwLo.IsInfinite() {
		m.bwLo = m.maxBw()
	}
	if m.inflightLo == infByteCount {
		m.inflightLo = cwnd
	}
	m.bwLo = m.bwLatest.Max(m.bwLo.Mul(m.params.Beta))
	inflightLoShrunk := congestion.ByteCount(float64(m.inflightLo) * m.params.Beta)
	if m.inflightLatest > inflightLoShrunk {
		m.inflightLo = m.inflightLatest
	} else {
		m.inflightLo = inflightLoShrunk
	}
}

// clearLowerBounds resets bw_lo/inflight_lo to ∞, called on entry to
// PROBE_BW REFILL and on exit of PROBE_RTT.
func (m *pathModel) clearLowerBounds() {
	m.bwLo = infBandwidth
	m.inflightLo = infByteCount
}

// updateExtraAcked runs the free-running ACK-aggregation interval used to
// estimate how much of each ACK's bytes are aggregation rather than new
// bandwidth.
func (m *pathModel) updateExtraAcked(sample Sample, now monotime.Time, cwnd congestion.ByteCount) {
	if m.extraAckedIntervalStart.IsZero() {
		m.extraAckedIntervalStart = now
		m.extraAckedDelivered = 0
	}

	elapsed := now.Sub(m.extraAckedIntervalStart)
	expected := m.bw().ToBytesPerPeriod(elapsed)

	var extra congestion.ByteCount
	if m.extraAckedDelivered <= expected {
		m.extraAckedIntervalStart = now
		m.extraAckedDelivered = sample.NewlyAcked
		extra = 0
	} else {
		m.extraAckedDelivered += sample.NewlyAcked
		extra = m.extraAckedDelivered - expected
	}

	if extra > cwnd {
		extra = cwnd
	}
	m.extraAckedFilter.Update(m.roundCount, uint64(extra))
	m.extraAcked = congestion.ByteCount(m.extraAckedFilter.Get())
}

// updateMaxInflight recomputes bdp and max_inflight from the current
// bandwidth/RTT estimate and the extra_acked allowance.
func (m *pathModel) updateMaxInflight(quantizationBudget func(congestion.ByteCount) congestion.ByteCount, cwndGain float64) {
	bdpTarget := mul64(m.bwBdp(m.bw()), cwndGain) + m.extraAcked
	m.maxInflight = quantizationBudget(bdpTarget)
}

// mul64 scales a ByteCount by a float64 gain, clamping negative gains to
// zero so a stray negative never turns into a huge unsigned wraparound.
func mul64(b congestion.ByteCount, gain float64) congestion.ByteCount {
	if gain < 0 {
		gain = 0
	}
	return congestion.ByteCount(float64(b) * gain)
}
