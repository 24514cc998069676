package fill

// ZeroGenerator fills every buffer with zero bytes: Fill writes zero
// into every byte of p, so the zero strategy can be selected through the
// same ByteGenerator interface as the random ones.
type ZeroGenerator struct{}

func (ZeroGenerator) Fill(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
