// Bandwidth type definitions for the BBRv3 path model.

package bbrv3

import (
	"math"
	"time"

	"github.com/sagernet/quic-go/congestion"
)

// Bandwidth is a data rate in bytes per second.
type Bandwidth uint64

const (
	BytesPerSecond  Bandwidth = 1
	KBytesPerSecond Bandwidth = 1000 * BytesPerSecond
	MBytesPerSecond Bandwidth = 1000 * KBytesPerSecond

	// infBandwidth is the sentinel used for "inactive" bounds (bw_hi, bw_lo).
	infBandwidth Bandwidth = math.MaxUint64
)

// BandwidthFromBytesAndTimeDelta computes bytes/delta as a Bandwidth.
// Returns infBandwidth for a non-positive delta (matching the sentinel
// convention used throughout the model for "no data yet").
func BandwidthFromBytesAndTimeDelta(bytes congestion.ByteCount, delta time.Duration) Bandwidth {
	if delta <= 0 {
		return infBandwidth
	}
	return Bandwidth(uint64(bytes) * uint64(time.Second) / uint64(delta))
}

// BandwidthFromBytesPerSecond wraps a raw bytes/sec value.
func BandwidthFromBytesPerSecond(bytesPerSecond uint64) Bandwidth {
	return Bandwidth(bytesPerSecond)
}

// ToBytesPerSecond returns the raw bytes/sec value.
func (b Bandwidth) ToBytesPerSecond() uint64 {
	return uint64(b)
}

// ToBytesPerPeriod returns how many bytes can be sent at this rate over period.
func (b Bandwidth) ToBytesPerPeriod(period time.Duration) congestion.ByteCount {
	if b.IsInfinite() {
		return congestion.ByteCount(math.MaxInt64)
	}
	return congestion.ByteCount(uint64(b) * uint64(period) / uint64(time.Second))
}

// Mul scales the bandwidth by factor, clamping negative factors to zero.
func (b Bandwidth) Mul(factor float64) Bandwidth {
	if b.IsInfinite() {
		return infBandwidth
	}
	if factor < 0 {
		factor = 0
	}
	return Bandwidth(float64(b) * factor)
}

// Min returns the smaller of b and other, treating infBandwidth as neutral.
func (b Bandwidth) Min(other Bandwidth) Bandwidth {
	if b < other {
		return b
	}
	return other
}

// Max returns the larger of b and other.
func (b Bandwidth) Max(other Bandwidth) Bandwidth {
	if b > other {
		return b
	}
	return other
}

func (b Bandwidth) IsZero() bool {
	return b == 0
}

func (b Bandwidth) IsInfinite() bool {
	return b == infBandwidth
}
