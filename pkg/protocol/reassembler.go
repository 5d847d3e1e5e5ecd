package protocol

// Reassembler turns an arbitrarily chunked byte stream back into frames.
// It holds the leftover bytes between deliveries for a single connection.
//
// A Reassembler is not safe for concurrent use; deliveries must be fed in
// arrival order.
type Reassembler struct {
	leftover []byte
}

// Feed appends data to any held bytes and returns the frames completed by it.
func (r *Reassembler) Feed(data []byte) []Frame {
	frames, rest := ParseFrames(r.leftover, data)
	r.leftover = rest
	return frames
}

// Pending returns the number of bytes held back waiting for more data.
func (r *Reassembler) Pending() int {
	return len(r.leftover)
}

// Reset drops any held bytes. Call it when the underlying stream is replaced.
func (r *Reassembler) Reset() {
	r.leftover = nil
}
