package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	pbkdf2KeyLength  = 32

	// vaultFormatV1 marks the on-disk ciphertext layout: one version byte,
	// followed by a 12-byte GCM nonce, followed by the AEAD-sealed payload.
	// Versioning the format up front is what spec.md §4.3 asks for even
	// though this is the only version that currently exists.
	vaultFormatV1 byte = 1
)

// deriveKey applies PBKDF2-HMAC-SHA256 exactly as spec.md §4.3 mandates:
// 100000 iterations, a 32-byte key.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
}

func readRandom(buf []byte) (int, error) {
	return io.ReadFull(rand.Reader, buf)
}

// seal encrypts plaintext under key using AES-256-GCM, the AEAD substitute
// spec.md §4.3 names as an acceptable equivalent to the reference
// implementation's Fernet scheme, provided the on-disk format is versioned.
func seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := readRandom(nonce); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, 1+len(nonce)+len(sealed))
	out = append(out, vaultFormatV1)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// open decrypts ciphertext produced by seal, verifying the format version
// and AEAD tag.
func open(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 1 {
		return nil, fmt.Errorf("vault: empty ciphertext")
	}
	version := ciphertext[0]
	if version != vaultFormatV1 {
		return nil, fmt.Errorf("vault: unsupported ciphertext format version %d", version)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	rest := ciphertext[1:]
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("vault: truncated ciphertext")
	}
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("vault: decryption failed: %w", err)
	}
	return plaintext, nil
}
