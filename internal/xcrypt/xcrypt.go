// Package xcrypt wraps the symmetric encryption used to protect control
// plane datagrams on the wire. The routing engine only ever sees the
// plaintext JSON this package decrypts; it is a thin boundary collaborator,
// not part of the routing core.
package xcrypt

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Encrypt seals plaintext under key, prepending a freshly generated random
// nonce to the returned ciphertext.
func Encrypt(plaintext []byte, key *[32]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("xcrypt: generating nonce: %w", err)
	}

	out := make([]byte, 0, nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plaintext, &nonce, key)
	return out, nil
}

// Decrypt reverses Encrypt. It errors if ciphertext is truncated or fails
// authentication (wrong key, corrupted data, or a truncated nonce/IV).
func Decrypt(ciphertext []byte, key *[32]byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("xcrypt: ciphertext shorter than nonce (%d bytes)", len(ciphertext))
	}

	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("xcrypt: decryption failed (bad key or corrupted ciphertext)")
	}

	return plaintext, nil
}
