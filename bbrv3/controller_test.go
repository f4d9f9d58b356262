package bbrv3

import (
	"testing"
	"time"

	"github.com/sagernet/quic-go/congestion"
	"github.com/stretchr/testify/require"
)

// fakePath is a minimal, deterministic Path implementation for exercising
// CC without a real QUIC transport.
type fakePath struct {
	mtu            congestion.ByteCount
	smoothedRTT    time.Duration
	rttVariance    time.Duration
	minRTT         time.Duration
	bytesInTransit congestion.ByteCount
	clientMode     bool
	pathID         uint64

	lastPacingRate Bandwidth
	lastBurst      congestion.ByteCount
	lastCwnd       congestion.ByteCount
}

func newFakePath() *fakePath {
	return &fakePath{
		mtu:            1280,
		smoothedRTT:    30 * time.Millisecond,
		rttVariance:    2 * time.Millisecond,
		minRTT:         30 * time.Millisecond,
		bytesInTransit: 1280 * 10,
		clientMode:     true,
		pathID:         1,
	}
}

func (p *fakePath) MTU() congestion.ByteCount      { return p.mtu }
func (p *fakePath) SmoothedRTT() time.Duration     { return p.smoothedRTT }
func (p *fakePath) RTTVariance() time.Duration     { return p.rttVariance }
func (p *fakePath) MinRTT() time.Duration          { return p.minRTT }
func (p *fakePath) BytesInTransit() congestion.ByteCount { return p.bytesInTransit }
func (p *fakePath) ClientMode() bool               { return p.clientMode }
func (p *fakePath) UniquePathID() uint64           { return p.pathID }

func (p *fakePath) SetPacingRate(rate Bandwidth, burst congestion.ByteCount) {
	p.lastPacingRate = rate
	p.lastBurst = burst
}

func (p *fakePath) SetCongestionWindow(cwnd congestion.ByteCount) {
	p.lastCwnd = cwnd
}

func ackSample(delivered, newlyAcked congestion.ByteCount, rtt time.Duration, deliveryRate Bandwidth) Sample {
	return Sample{
		Delivered:    delivered,
		NewlyAcked:   newlyAcked,
		RTTSample:    rtt,
		DeliveryRate: congestion.ByteCount(deliveryRate),
		TxInFlight:   10 * 1280,
	}
}

func TestCCInitChoosesStartupForLowRTT(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	cc.Init(path)
	require.Equal(t, ModeStartup, cc.mode)
}

func TestCCInitChoosesStartupLongRTTForHighRTT(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	path.minRTT = 500 * time.Millisecond
	path.smoothedRTT = 500 * time.Millisecond
	cc.Init(path)
	require.Equal(t, ModeStartupLongRtt, cc.mode)
	require.Greater(t, cc.cwnd, congestion.ByteCount(InitialCwndPackets)*path.mtu)
}

func TestCCStartupGrowsBandwidthEstimate(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	cc.Init(path)

	bw := Bandwidth(1_000_000)
	for i := 0; i < 10; i++ {
		sample := ackSample(1280, 1280, 30*time.Millisecond, bw)
		cc.Notify(path, NotifyAcknowledgement, sample)
		bw *= 2
	}
	_, estimate := cc.Observe()
	require.Greater(t, uint64(estimate), uint64(1_000_000))
}

func TestCCLeavesStartupOnPlateau(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	cc.Init(path)

	bw := Bandwidth(100_000_000)
	// Plateaued bandwidth for enough rounds should declare the pipe full.
	for i := 0; i < 8; i++ {
		sample := ackSample(path.bytesInTransit+1, 1280, 30*time.Millisecond, bw)
		sample.TxInFlight = path.bytesInTransit
		cc.Notify(path, NotifyAcknowledgement, sample)
		path.bytesInTransit += 1280
	}
	require.NotEqual(t, ModeStartup, cc.mode)
}

func TestCCResetReinitializesState(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	cc.Init(path)

	sample := ackSample(1280, 1280, 30*time.Millisecond, 1_000_000)
	cc.Notify(path, NotifyAcknowledgement, sample)

	cc.Notify(path, NotifyReset, Sample{})
	require.Equal(t, ModeStartup, cc.mode)
	require.EqualValues(t, 0, cc.model.roundCount)
}

func TestCCSeedCwndStoresBdpSeed(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	cc.Init(path)

	cc.Notify(path, NotifySeedCwnd, Sample{Delivered: 65536})
	require.EqualValues(t, 65536, cc.params.BdpSeed)
}

func TestCCTimeoutShrinksCwnd(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	cc.Init(path)
	before := cc.cwnd

	cc.Notify(path, NotifyTimeout, Sample{})
	require.LessOrEqual(t, cc.cwnd, before)
}

func TestCCSpuriousRepeatRestoresPriorCwnd(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	cc.Init(path)

	cc.Notify(path, NotifyTimeout, Sample{})
	shrunk := cc.cwnd

	cc.Notify(path, NotifySpuriousRepeat, Sample{})
	require.GreaterOrEqual(t, cc.cwnd, shrunk)
}

func TestObserveReportsProbeBwSubPhases(t *testing.T) {
	cc := New(nil, nil, nil)
	cc.mode = ModeProbeBw
	cc.cyclePhase = CyclePhaseCruise
	code, _ := cc.Observe()
	require.Equal(t, StateCodeProbeBwCruise, code)
}
