// Hystart collaborator used by StartupLongRtt to decide when a
// high-RTT path has finished its alternate startup ramp.

package bbrv3

import (
	"time"

	"github.com/sagernet/quic-go/congestion"
)

const (
	hystartLowWindow    = congestion.ByteCount(16) // in MTUs
	hystartMinSamples   = uint32(8)
	hystartDelayFactor  = 3 // 2^3 = 8
	hystartMinThreshold = 4 * time.Millisecond
	hystartMaxThreshold = 16 * time.Millisecond
)

// HystartFilter decides when a high-RTT startup round should end. A host
// may supply its own; CC falls back to DefaultHystartFilter.
type HystartFilter interface {
	// OnRoundStart resets the per-round delay samples.
	OnRoundStart()
	// OnRTTSample folds a per-ACK RTT sample into the current round and
	// reports whether increasing delay was detected this round.
	OnRTTSample(latestRTT, minRTT time.Duration) bool
	// ShouldExitStartup combines the delay-increase finding with the
	// cwnd floor required before Hystart is allowed to fire. lowWindow
	// is hystartLowWindow MTUs expressed in bytes.
	ShouldExitStartup(cwnd, lowWindow congestion.ByteCount) bool
	// Reset clears the delay-increase finding and the per-round samples,
	// e.g. after a path-wide NotifyReset.
	Reset()
}

// DefaultHystartFilter is the stock delay-based detector: after 8 RTT
// samples in a round, compare the round's minimum RTT against the
// session-wide minimum RTT plus a clamped threshold.
type DefaultHystartFilter struct {
	currentMinRTT time.Duration
	sampleCount   uint32
	found         bool
}

func NewDefaultHystartFilter() *DefaultHystartFilter {
	return &DefaultHystartFilter{}
}

func (h *DefaultHystartFilter) OnRoundStart() {
	h.currentMinRTT = 0
	h.sampleCount = 0
}

func (h *DefaultHystartFilter) OnRTTSample(latestRTT, minRTT time.Duration) bool {
	if h.found {
		return true
	}
	h.sampleCount++
	if h.sampleCount <= hystartMinSamples {
		if h.currentMinRTT == 0 || h.currentMinRTT > latestRTT {
			h.currentMinRTT = latestRTT
		}
	}
	if h.sampleCount == hystartMinSamples {
		threshold := minRTT >> hystartDelayFactor
		if threshold > hystartMaxThreshold {
			threshold = hystartMaxThreshold
		}
		if threshold < hystartMinThreshold {
			threshold = hystartMinThreshold
		}
		if h.currentMinRTT > minRTT+threshold {
			h.found = true
		}
	}
	return h.found
}

func (h *DefaultHystartFilter) ShouldExitStartup(cwnd, lowWindow congestion.ByteCount) bool {
	return h.found && cwnd >= lowWindow
}

func (h *DefaultHystartFilter) Reset() {
	h.found = false
	h.currentMinRTT = 0
	h.sampleCount = 0
}
