// DRAIN: the brief queue-draining mode between STARTUP and PROBE_BW.

package bbrv3

import "github.com/sagernet/quic-go/congestion"

// drainState holds DRAIN's own bookkeeping. DRAIN has no multi-round
// state of its own: it exits as soon as bytes_in_transit falls to the
// BDP, so there is nothing to carry between ACKs besides the mode switch
// itself.
type drainState struct{}

// enter seeds nothing beyond the mode switch: DRAIN inherits inflight_hi
// from STARTUP's exit and starts shrinking toward it immediately on the
// next pacing-rate/cwnd recompute.
func (d *drainState) enter(model *pathModel, cwnd congestion.ByteCount) {}

// drainCheckDone exits to PROBE_BW_DOWN once bytes in flight has shrunk
// to one BDP.
func (c *CC) drainCheckDone(path Path, bytesInTransit congestion.ByteCount) {
	if bytesInTransit > c.model.bdp() {
		return
	}
	c.mode = ModeProbeBw
	c.enterProbeBwDown(path)
}
