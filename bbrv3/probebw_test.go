package bbrv3

import (
	"testing"

	"github.com/sagernet/quic-go/congestion"
	"github.com/sagernet/quic-go/monotime"
	"github.com/stretchr/testify/require"
)

func TestInflightWithHeadroomAppliesFloorAndHeadroom(t *testing.T) {
	cc := New(nil, nil, nil)
	cc.model = newPathModel(DefaultParams())
	cc.model.inflightHi = 100_000
	require.EqualValues(t, 85_000, cc.inflightWithHeadroom())

	cc.model.inflightHi = infByteCount
	require.Equal(t, infByteCount, cc.inflightWithHeadroom())
}

func TestProbeBwDownToCruiseTransition(t *testing.T) {
	cc := New(nil, nil, nil)
	path := newFakePath()
	cc.Init(path)
	cc.startup.fullBwReached = true
	cc.mode = ModeProbeBw
	cc.model.maxBwFilter.Update(0, 1_000_000)
	cc.enterProbeBwDown(path)

	path.bytesInTransit = 1
	cc.probeBwAdvance(path, Sample{}, monotime.Now())
	require.Equal(t, CyclePhaseCruise, cc.cyclePhase)
}

func TestRaiseInflightHiSlopePositive(t *testing.T) {
	cc := New(nil, nil, nil)
	cc.model = newPathModel(DefaultParams())
	cc.cwnd = 10 * cc.model.mtu
	cc.raiseInflightHiSlope()
	require.Greater(t, cc.probeBw.bwProbeUpCnt, congestion.ByteCount(0))
}
