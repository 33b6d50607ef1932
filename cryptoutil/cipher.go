// Package cryptoutil provides the authenticated, symmetric encryption the
// NotificationStore uses to keep message bodies encrypted at rest.
package cryptoutil

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecryptionFailed is returned when none of the configured keys can open
// a ciphertext — either it is corrupt, or it was sealed under a key that has
// since been retired from the keyset entirely.
var ErrDecryptionFailed = errors.New("cryptoutil: unable to decrypt with any configured key")

// Cipher seals and opens notification bodies with ChaCha20-Poly1305. The
// first key in the keyset is active (used for sealing); the remaining keys
// are accepted for opening only, mirroring the client-secret rotation
// pattern used for HMAC signing.
type Cipher struct {
	aeads []cipherAEAD
}

type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}

// NewCipher builds a Cipher from a keyset of raw 32-byte keys. The keyset
// must be non-empty; the first entry is the active encryption key.
func NewCipher(keyset [][]byte) (*Cipher, error) {
	if len(keyset) == 0 {
		return nil, errors.New("cryptoutil: empty keyset")
	}
	aeads := make([]cipherAEAD, 0, len(keyset))
	for i, key := range keyset {
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("cryptoutil: key %d invalid: %w", i, err)
		}
		aeads = append(aeads, aead)
	}
	return &Cipher{aeads: aeads}, nil
}

// Seal encrypts plaintext under the active key, prefixing the output with a
// fresh random nonce.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	active := c.aeads[0]
	nonce := make([]byte, active.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptoutil: generating nonce: %w", err)
	}
	return active.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a ciphertext produced by Seal, trying the active key first
// and then each rotation key in order.
func (c *Cipher) Open(ciphertext []byte) ([]byte, error) {
	var lastErr error
	for _, aead := range c.aeads {
		ns := aead.NonceSize()
		if len(ciphertext) < ns {
			lastErr = errors.New("ciphertext shorter than nonce")
			continue
		}
		nonce, body := ciphertext[:ns], ciphertext[ns:]
		plaintext, err := aead.Open(nil, nonce, body, nil)
		if err == nil {
			return plaintext, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, lastErr)
}
