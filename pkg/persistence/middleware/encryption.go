package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
)

// KeySize is the length of an AES-256 key.
const KeySize = 32

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new blocks.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// Blocks written under an old key stay readable while the run moves to the new one.
	FallbackKeys [][]byte
}

// ParseKey decodes a hex-encoded AES-256 key.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

type encryptionMiddleware struct {
	ports.RunStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals every block with AES-GCM.
// The block key is authenticated along with the data, so a block copied under another key
// fails to open. Properties are stored as they are.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != KeySize {
		return nil, fmt.Errorf("active key must be %d bytes (AES-256)", KeySize)
	}
	for i, k := range config.FallbackKeys {
		if len(k) != KeySize {
			return nil, fmt.Errorf("fallback key %d must be %d bytes (AES-256)", i, KeySize)
		}
	}
	return func(next ports.RunStore) ports.RunStore {
		return &encryptionMiddleware{RunStore: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) PutBlock(ctx context.Context, key domain.BlockKey, data []byte) error {
	sealed, err := encrypt(data, m.config.ActiveKey, []byte(key.String()))
	if err != nil {
		return fmt.Errorf("failed to encrypt block %s: %w", key, err)
	}
	return m.RunStore.PutBlock(ctx, key, sealed)
}

func (m *encryptionMiddleware) GetBlock(ctx context.Context, key domain.BlockKey) ([]byte, error) {
	sealed, err := m.RunStore.GetBlock(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := decryptWithRotation(sealed, []byte(key.String()), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: block %s: %w", domain.ErrCorruptBlock, key, err)
	}
	return plain, nil
}

// Helpers

func encrypt(plaintext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func decryptWithRotation(ciphertext, aad, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey, aad); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key, aad); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], aad)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
