// Per-instance deterministic pseudo-random stream. Two paths (or two
// roles in the same test) need distinct but reproducible streams derived
// from (current_time, client_mode, unique_path_id); a splitmix64
// generator seeded from those three values gives that determinism
// without pulling in math/rand's process-wide lock.

package bbrv3

// randomStream is a tiny splitmix64 generator: 64 bits of state, no locks,
// no allocation, fully deterministic from its seed.
type randomStream struct {
	state uint64
}

// newRandomStream seeds the stream from the current time, the path's
// client/server role, and its unique path ID.
func newRandomStream(currentTimeNanos int64, clientMode bool, uniquePathID uint64) *randomStream {
	seed := uint64(currentTimeNanos)
	if clientMode {
		seed ^= 0x9E3779B97F4A7C15
	}
	seed ^= uniquePathID*0xBF58476D1CE4E5B9 + 1
	return &randomStream{state: seed}
}

// next returns the next pseudo-random uint64 in the stream.
func (r *randomStream) next() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// durationIn returns a pseudo-random duration uniformly in [lo, hi).
func (r *randomStream) durationIn(loNanos, hiNanos int64) int64 {
	if hiNanos <= loNanos {
		return loNanos
	}
	span := uint64(hiNanos - loNanos)
	return loNanos + int64(r.next()%span)
}

// intn returns a pseudo-random int in [0, n).
func (r *randomStream) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}
