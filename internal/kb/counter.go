package kb

// maxID bounds ids at 52 bits of precision so they survive a lossless round
// trip through an IEEE-754 double, which some host bindings transport ids as.
const maxID uint64 = 1 << 52

// counter hands out monotonically increasing ids, wrapping before maxID.
// The core is single-threaded by contract, so no synchronization is needed.
type counter struct {
	next uint64
}

func (c *counter) Next() uint64 {
	c.next++
	if c.next >= maxID {
		c.next = 1
	}
	return c.next
}
