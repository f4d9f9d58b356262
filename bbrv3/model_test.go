package bbrv3

import (
	"testing"
	"time"

	"github.com/sagernet/quic-go/congestion"
	"github.com/sagernet/quic-go/monotime"
	"github.com/stretchr/testify/require"
)

func TestPathModelRoundCounting(t *testing.T) {
	m := newPathModel(DefaultParams())
	m.startRound(1000)
	require.EqualValues(t, 0, m.roundCount)

	m.delivered = 500
	m.updateRound(1000)
	require.False(t, m.roundStart, "round hasn't closed yet")
	require.EqualValues(t, 0, m.roundCount)

	m.delivered = 1500
	m.updateRound(1000)
	require.True(t, m.roundStart)
	require.EqualValues(t, 1, m.roundCount)
}

func TestPathModelUpdateMaxBwRejectsLowerAppLimitedSample(t *testing.T) {
	m := newPathModel(DefaultParams())
	m.updateMaxBw(Sample{IsAppLimited: false}, Bandwidth(1000))
	require.EqualValues(t, 1000, m.maxBw())

	// An app-limited sample below the current peak must not lower it.
	m.updateMaxBw(Sample{IsAppLimited: true}, Bandwidth(10))
	require.EqualValues(t, 1000, m.maxBw())

	// A non-app-limited sample may lower it once the peak's slot has
	// rotated out (cycle 2 maps back to slot 0, which holds the peak).
	m.roundCount = 2 * MaxBwFilterLen
	m.maxBwFilter.StartPeriod(m.roundCount / MaxBwFilterLen)
	m.updateMaxBw(Sample{IsAppLimited: false}, Bandwidth(10))
	require.EqualValues(t, 10, m.maxBw())
}

func TestPathModelAdaptLowerBoundsFromCongestion(t *testing.T) {
	m := newPathModel(DefaultParams())
	m.maxBwFilter.Update(0, 1_000_000)
	m.lossInRound = true
	m.bwLatest = Bandwidth(900_000)
	m.inflightLatest = congestion.ByteCount(50_000)

	m.adaptLowerBoundsFromCongestion(congestion.ByteCount(100_000))

	require.False(t, m.bwLo.IsInfinite())
	require.EqualValues(t, 900_000, m.bwLo, "bw_latest dominates Beta*bw_lo on first shrink")
	require.NotEqual(t, infByteCount, m.inflightLo)
}

func TestPathModelExtraAckedClampedAtCwnd(t *testing.T) {
	m := newPathModel(DefaultParams())
	now := monotime.Now()
	m.updateExtraAcked(Sample{NewlyAcked: 1_000_000}, now, congestion.ByteCount(5000))
	require.LessOrEqual(t, m.extraAcked, congestion.ByteCount(5000))
}

func TestPathModelExtraAckedResetDoesNotUnderflow(t *testing.T) {
	m := newPathModel(DefaultParams())
	m.maxBwFilter.Update(0, 1_000_000)
	now := monotime.Now()

	// Prime a delivered total no larger than what the ACK one second later
	// is expected to see (1 MB/s over 1 s), so the reset branch fires.
	m.extraAckedIntervalStart = now
	m.extraAckedDelivered = 1_000_000

	later := now.Add(time.Second)
	m.updateExtraAcked(Sample{NewlyAcked: 10}, later, congestion.ByteCount(5000))
	require.EqualValues(t, 0, m.extraAcked, "reset branch must report zero, not an underflowed huge value")
}

func TestBdpFallsBackToInitialCwndWithoutRTT(t *testing.T) {
	m := newPathModel(DefaultParams())
	require.EqualValues(t, InitialCwndPackets*m.mtu, m.bdp())
}

func TestBdpUsesBwAndMinRTT(t *testing.T) {
	m := newPathModel(DefaultParams())
	m.maxBwFilter.Update(0, 1_000_000) // 1 MB/s
	m.minRtt = 100 * time.Millisecond
	require.EqualValues(t, 100_000, m.bdp())
}
