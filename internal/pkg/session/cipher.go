package session

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher seals blobs before they reach a Backend.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

const (
	sealVersion = 1
	keySalt     = "dispatch-console/token-store/v1"
)

// FingerprintCipher derives its key from the host fingerprint. Anyone on the
// same host and account can re-derive it: this keeps tokens out of plain
// sight on disk and in Redis, nothing more.
type FingerprintCipher struct {
	aead cipher.AEAD
}

// NewFingerprintCipher stretches the fingerprint digest with Argon2id into an
// XChaCha20-Poly1305 key.
func NewFingerprintCipher(fp Fingerprint) (*FingerprintCipher, error) {
	digest := fp.Digest()
	key := argon2.IDKey(digest[:], []byte(keySalt), 1, 32*1024, 2, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init token cipher: %w", err)
	}
	return &FingerprintCipher{aead: aead}, nil
}

func (c *FingerprintCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := append([]byte{sealVersion}, nonce...)
	return c.aead.Seal(out, nonce, plaintext, []byte{sealVersion}), nil
}

func (c *FingerprintCipher) Open(ciphertext []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(ciphertext) < 1+ns+c.aead.Overhead() {
		return nil, errors.New("ciphertext too short")
	}
	if ciphertext[0] != sealVersion {
		return nil, fmt.Errorf("unknown seal version %d", ciphertext[0])
	}
	nonce := ciphertext[1 : 1+ns]
	return c.aead.Open(nil, nonce, ciphertext[1+ns:], []byte{sealVersion})
}

// PassphraseCipher seals with age's scrypt recipient, for operators who set
// TOKEN_STORE_PASSPHRASE and want the store to be useless off-host.
type PassphraseCipher struct {
	passphrase string
	workFactor int
}

// NewPassphraseCipher uses the given scrypt work factor (log2 N); zero picks
// 15, which keeps a seal/open pair well under a second.
func NewPassphraseCipher(passphrase string, workFactor int) (*PassphraseCipher, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	if workFactor <= 0 {
		workFactor = 15
	}
	return &PassphraseCipher{passphrase: passphrase, workFactor: workFactor}, nil
}

func (c *PassphraseCipher) Seal(plaintext []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(c.passphrase)
	if err != nil {
		return nil, err
	}
	recipient.SetWorkFactor(c.workFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *PassphraseCipher) Open(ciphertext []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(c.passphrase)
	if err != nil {
		return nil, err
	}
	identity.SetMaxWorkFactor(c.workFactor)

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	return io.ReadAll(r)
}
