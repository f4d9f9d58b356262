// Package bbrv3 implements a per-path BBRv3 congestion controller: a
// bandwidth- and RTT-based control loop driven entirely by caller-supplied
// delivery-rate samples, with no dependency on a particular QUIC stack.
package bbrv3
