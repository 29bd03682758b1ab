// Package mediacrypto provides per-packet-IV stream encryption over
// compressed voice payloads, plus the PBKDF2-HMAC-SHA256 key derivation
// that turns a shared long-term secret into a session subkey. AES in CFB
// mode keeps ciphertext the same length as plaintext, which the wire
// envelope assumes; interoperating peers use the same mode.
package mediacrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/zeofr/VoIP-application/internal/logging"
)

var log = logging.New("crypto")

// IVSize is the fixed initialization-vector length in bytes.
const IVSize = 16

// KeyMaterial holds one endpoint's long-term secret, salt, and the subkey
// derived from them. The long-term secret is never transmitted; the salt
// may be shared during provisioning.
type KeyMaterial struct {
	LongTermSecret []byte // 32 random bytes
	Salt           []byte // 16 bytes
	Derived        []byte // KDF output, key_length bytes
}

// Derive runs the key-derivation function over secret+salt. iterations and
// keyLen come from the session configuration (defaults: 100000, 32).
// HMAC-SHA-256 is the PRF.
func Derive(secret, salt []byte, iterations, keyLen int) KeyMaterial {
	derived := pbkdf2.Key(secret, salt, iterations, keyLen, sha256.New)
	return KeyMaterial{LongTermSecret: secret, Salt: salt, Derived: derived}
}

// GenerateSecret returns a fresh 32-byte long-term secret suitable for
// out-of-band provisioning.
func GenerateSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("mediacrypto: generate secret: %w", err)
	}
	return b, nil
}

// GenerateSalt returns a fresh 16-byte salt.
func GenerateSalt() ([]byte, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("mediacrypto: generate salt: %w", err)
	}
	return b, nil
}

// Cipher is the per-session encryption context. Read-mostly after setup;
// SetKey locks. In-flight packets already decrypted by a goroutine holding
// a stale copy of the block cipher are unaffected by a concurrent SetKey.
type Cipher struct {
	mu    sync.RWMutex
	block cipher.Block
}

// NewCipher builds a Cipher from derived key material. key must be a valid
// AES key length (16, 24, or 32 bytes).
func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("mediacrypto: new cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// SetKey swaps the active key at runtime.
func (c *Cipher) SetKey(key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("mediacrypto: set key: %w", err)
	}
	c.mu.Lock()
	c.block = block
	c.mu.Unlock()
	return nil
}

// Encrypt seals plaintext under a fresh 16-byte IV in CFB mode. Returns
// (ciphertext, iv). A fresh IV is generated on every call; IVs are never
// reused, including on retry after a failure.
func (c *Cipher) Encrypt(plaintext []byte) (ciphertext, iv []byte, err error) {
	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("mediacrypto: generate iv: %w", err)
	}

	c.mu.RLock()
	block := c.block
	c.mu.RUnlock()

	ciphertext = make([]byte, len(plaintext))
	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext, plaintext)
	return ciphertext, iv, nil
}

// Decrypt reverses Encrypt. On any error it logs and returns nil: the
// caller drops that packet and continues. The process never aborts because
// of a single bad packet.
func (c *Cipher) Decrypt(ciphertext, iv []byte) []byte {
	if len(iv) != IVSize {
		log.Printf("warn: decrypt: bad iv length %d", len(iv))
		return nil
	}

	c.mu.RLock()
	block := c.block
	c.mu.RUnlock()

	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext
}
