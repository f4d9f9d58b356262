// Loss-rate smoothing and the inflight-too-high reaction.

package bbrv3

import "github.com/sagernet/quic-go/monotime"

// lossState smooths the per-ACK loss ratio with an EWMA.
type lossState struct {
	lossRate float64
	params   *Params
}

func newLossState(params *Params) lossState {
	return lossState{params: params}
}

// onAck folds one ACK's delivered/lost counts into the smoothed loss rate.
// Samples with neither acked nor lost bytes don't move the average.
func (l *lossState) onAck(sample Sample) {
	total := sample.NewlyAcked + sample.NewlyLost
	if total <= 0 {
		return
	}
	instantaneous := float64(sample.NewlyLost) / float64(total)
	l.lossRate += LossAlpha * (instantaneous - l.lossRate)
}

// isInflightTooHigh reports whether the loss observed for this sample
// alone already exceeds LossThresh of the bytes it covers.
func (l *lossState) isInflightTooHigh(sample Sample, lossThresh float64) bool {
	if sample.TxInFlight <= 0 {
		return false
	}
	return float64(sample.Lost) > lossThresh*float64(sample.TxInFlight)
}

// handleInflightTooHigh is the reaction to a single ACK whose loss alone
// is already excessive: unless the sample is app-limited, inflight_hi is
// lowered to Beta times the sample's TxInFlight (never raised, floored at
// MinPipeCwnd MTUs). The lower bounds are left unchanged.
func (c *CC) handleInflightTooHigh(sample Sample, now monotime.Time) {
	if sample.IsAppLimited {
		return
	}
	inflight := sample.TxInFlight
	shrunk := mul64(inflight, c.params.Beta)
	if c.model.inflightHi == infByteCount || shrunk < c.model.inflightHi {
		c.model.inflightHi = shrunk
	}
	if c.model.inflightHi < MinPipeCwnd*c.model.mtu {
		c.model.inflightHi = MinPipeCwnd * c.model.mtu
	}
}
