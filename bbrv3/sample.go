// Per-ACK sample and notification vocabulary.

package bbrv3

import (
	"time"

	"github.com/sagernet/quic-go/congestion"
	"github.com/sagernet/quic-go/monotime"
)

// Sample is constructed by the caller (the QUIC transport) from one ACKed
// or lost packet and consumed by CC.Notify.
type Sample struct {
	// DeliveryRate is bytes/second. If left zero, DeliveryRateOrFallback
	// derives Delivered per second of RTTSample, floored at 40000 B/s.
	DeliveryRate congestion.ByteCount
	// Delivered is bytes delivered over the acked packet's interval.
	Delivered congestion.ByteCount
	// RTTSample is the measured RTT for the acked packet.
	RTTSample  time.Duration
	NewlyAcked congestion.ByteCount
	NewlyLost  congestion.ByteCount
	// TxInFlight is bytes in flight at the time the acked packet was sent.
	TxInFlight congestion.ByteCount
	// Lost is bytes lost between send and ACK of this packet.
	Lost           congestion.ByteCount
	IsAppLimited   bool
	IsCwndLimited  bool
	PriorDelivered congestion.ByteCount
	EventTime      monotime.Time
	LastSentPacket congestion.PacketNumber
	AckedPacket    congestion.PacketNumber
}

// DeliveryRateOrFallback returns Sample.DeliveryRate, computing the
// fallback below when the caller left it zero.
func (s Sample) DeliveryRateOrFallback() congestion.ByteCount {
	if s.DeliveryRate > 0 {
		return s.DeliveryRate
	}
	if s.RTTSample <= 0 {
		return congestion.ByteCount(40_000)
	}
	rate := congestion.ByteCount(uint64(s.Delivered) * uint64(time.Second) / uint64(s.RTTSample))
	if rate < 40_000 {
		return 40_000
	}
	return rate
}

// NotificationKind enumerates the events the host may deliver to Notify.
type NotificationKind int

const (
	NotifyAcknowledgement NotificationKind = iota
	NotifyRepeat
	NotifyTimeout
	NotifySpuriousRepeat
	NotifyECNEC
	NotifyRTTMeasurement
	NotifyCwndBlocked
	NotifyReset
	NotifySeedCwnd
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyAcknowledgement:
		return "acknowledgement"
	case NotifyRepeat:
		return "repeat"
	case NotifyTimeout:
		return "timeout"
	case NotifySpuriousRepeat:
		return "spurious_repeat"
	case NotifyECNEC:
		return "ecn_ec"
	case NotifyRTTMeasurement:
		return "rtt_measurement"
	case NotifyCwndBlocked:
		return "cwin_blocked"
	case NotifyReset:
		return "reset"
	case NotifySeedCwnd:
		return "seed_cwin"
	default:
		return "unknown"
	}
}
