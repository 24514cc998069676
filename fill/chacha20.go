package fill

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/chacha20"
)

// ChaCha20Generator produces a ChaCha20 keystream seeded from the OS's
// CSPRNG at construction, matching the original scanner's
// ChaCha20Rng::from_entropy() behavior: the key and nonce are not
// reproducible across runs.
type ChaCha20Generator struct {
	cipher *chacha20.Cipher
}

// NewChaCha20Generator seeds a fresh ChaCha20 cipher from crypto/rand.
func NewChaCha20Generator() (*ChaCha20Generator, error) {
	var key [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	return &ChaCha20Generator{cipher: c}, nil
}

func (g *ChaCha20Generator) Fill(p []byte) {
	for i := range p {
		p[i] = 0
	}
	g.cipher.XORKeyStream(p, p)
}
