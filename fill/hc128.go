package fill

import (
	"crypto/rand"
	"io"
)

const (
	hc128KeySize = 16
	hc128IVSize  = 16
)

// HC128Generator is a from-scratch port of the HC-128 stream cipher
// (Wu, 2004), seeded from the OS's CSPRNG at construction like
// ChaCha20Generator. The rest of this tool treats its internals as an
// opaque keystream source; no ecosystem Go module implements HC-128, so
// it is ported directly from the reference algorithm rather than
// dropped.
type HC128Generator struct {
	p, q [512]uint32
	i    uint32
}

// NewHC128Generator seeds a fresh HC-128 keystream from crypto/rand.
func NewHC128Generator() (*HC128Generator, error) {
	var key [hc128KeySize]byte
	var iv [hc128IVSize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rand.Reader, iv[:]); err != nil {
		return nil, err
	}
	return newHC128(key, iv), nil
}

func newHC128(key [16]byte, iv [16]byte) *HC128Generator {
	var w [1280]uint32
	for i := 0; i < 8; i++ {
		w[i] = leUint32(key[(i%4)*4:])
		w[i+8] = leUint32(iv[(i%4)*4:])
	}
	for i := 16; i < 1280; i++ {
		w[i] = f2(w[i-2]) + w[i-7] + f1(w[i-15]) + w[i-16] + uint32(i)
	}

	g := &HC128Generator{}
	copy(g.p[:], w[256:768])
	copy(g.q[:], w[768:1280])

	// Warm-up: each output word replaces the table entry just updated.
	for i := 0; i < 1024; i++ {
		j := g.i % 512
		inP := (g.i % 1024) < 512
		s := g.step()
		if inP {
			g.p[j] = s
		} else {
			g.q[j] = s
		}
	}
	return g
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func rotr32(x uint32, n uint) uint32 { return (x >> n) | (x << (32 - n)) }
func rotl32(x uint32, n uint) uint32 { return (x << n) | (x >> (32 - n)) }

func f1(x uint32) uint32 { return rotr32(x, 7) ^ rotr32(x, 18) ^ (x >> 3) }
func f2(x uint32) uint32 { return rotr32(x, 17) ^ rotr32(x, 19) ^ (x >> 10) }

func g1(x, y, z uint32) uint32 { return (rotr32(x, 10) ^ rotr32(z, 23)) + rotr32(y, 8) }
func g2(x, y, z uint32) uint32 { return (rotl32(x, 10) ^ rotl32(z, 23)) + rotl32(y, 8) }

func h1(q *[512]uint32, x uint32) uint32 {
	x0 := x & 0xff
	x2 := (x >> 16) & 0xff
	return q[x0] + q[256+x2]
}

func h2(p *[512]uint32, x uint32) uint32 {
	x0 := x & 0xff
	x2 := (x >> 16) & 0xff
	return p[x0] + p[256+x2]
}

// step advances the internal state by one word and returns its
// keystream output, following HC-128's alternating P/Q update schedule:
// 512 steps update P (reading from Q for the nonlinear feedback), then
// 512 steps update Q (reading from P), repeating forever.
func (g *HC128Generator) step() uint32 {
	j := g.i % 512
	var s uint32
	if (g.i % 1024) < 512 {
		g.p[j] += g1(g.p[(j-3)&511], g.p[(j-10)&511], g.p[(j-511)&511])
		s = h1(&g.q, g.p[(j-12)&511]) ^ g.p[j]
	} else {
		g.q[j] += g2(g.q[(j-3)&511], g.q[(j-10)&511], g.q[(j-511)&511])
		s = h2(&g.p, g.q[(j-12)&511]) ^ g.q[j]
	}
	g.i++
	return s
}

// Fill populates p with successive little-endian HC-128 keystream words.
func (g *HC128Generator) Fill(p []byte) {
	for len(p) > 0 {
		s := g.step()
		var buf [4]byte
		buf[0] = byte(s)
		buf[1] = byte(s >> 8)
		buf[2] = byte(s >> 16)
		buf[3] = byte(s >> 24)
		n := copy(p, buf[:])
		p = p[n:]
	}
}
