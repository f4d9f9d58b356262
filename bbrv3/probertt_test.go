package bbrv3

import (
	"testing"
	"time"

	"github.com/sagernet/quic-go/congestion"
	"github.com/stretchr/testify/require"
)

func TestProbeRTTCwndScalesWithBDPNotCwnd(t *testing.T) {
	cc := New(nil, nil, nil)
	cc.model = newPathModel(DefaultParams())
	cc.model.maxBwFilter.Update(0, 1_000_000) // 1 MB/s
	cc.model.minRtt = 100 * time.Millisecond
	bdp := cc.model.bdp()
	require.EqualValues(t, 100_000, bdp)

	// cwnd is deliberately set far away from bdp so the two would diverge
	// sharply if probeRTTCwnd mistakenly scaled off cwnd instead of bdp.
	cc.cwnd = 1_000_000

	want := mul64(bdp, ProbeRTTCwndGain)
	require.Equal(t, want, cc.probeRTTCwnd())
	require.NotEqual(t, mul64(cc.cwnd, ProbeRTTCwndGain), cc.probeRTTCwnd())
}

func TestProbeRTTCwndFloorsAtMinPipeCwnd(t *testing.T) {
	cc := New(nil, nil, nil)
	cc.model = newPathModel(DefaultParams())
	// No bandwidth or RTT sample yet: bdp() falls back to InitialCwndPackets,
	// which is still well above the MinPipeCwnd floor, so force a tiny bdp
	// directly to exercise the floor.
	cc.model.maxBwFilter.Update(0, 1)
	cc.model.minRtt = time.Nanosecond

	cwnd := cc.probeRTTCwnd()
	require.Equal(t, congestion.ByteCount(MinPipeCwnd)*cc.model.mtu, cwnd)
}
