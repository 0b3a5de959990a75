package mapping

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	secretboxKeySize   = 32
	secretboxNonceSize = 24
)

// SecretboxCipher encrypts field values with NaCl secretbox
// (XSalsa20-Poly1305). Each value gets a fresh random nonce prepended to the
// ciphertext; output is base64 so it travels as an ordinary string field.
type SecretboxCipher struct {
	key [secretboxKeySize]byte
}

// NewSecretboxCipher builds a cipher from a 32-byte key.
func NewSecretboxCipher(key []byte) (*SecretboxCipher, error) {
	if len(key) != secretboxKeySize {
		return nil, fmt.Errorf("secretbox key must be %d bytes, got %d", secretboxKeySize, len(key))
	}
	c := &SecretboxCipher{}
	copy(c.key[:], key)
	return c, nil
}

func (c *SecretboxCipher) Encrypt(plaintext string) (string, error) {
	var nonce [secretboxNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *SecretboxCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < secretboxNonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	var nonce [secretboxNonceSize]byte
	copy(nonce[:], raw[:secretboxNonceSize])
	opened, ok := secretbox.Open(nil, raw[secretboxNonceSize:], &nonce, &c.key)
	if !ok {
		return "", fmt.Errorf("ciphertext authentication failed")
	}
	return string(opened), nil
}
