// Package tokenstore persists the session token pair across console
// restarts. Tokens are sealed at rest with AES-GCM under a key derived
// from a per-install secret, so a copied token file is useless without
// the accompanying secret.
package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

const (
	secretFile = "vault.secret"
	tokenFile  = "tokens.bin"
	secretLen  = 32
)

// Vault is a file-backed token store. The in-memory copy is
// authoritative; disk writes are best-effort so every operation stays
// total over local state.
type Vault struct {
	mu     sync.RWMutex
	tokens domain.Tokens

	dir    string
	aead   cipher.AEAD
	logger *zap.Logger
}

// New opens (or initializes) the vault under dir and loads any
// previously persisted tokens. An unreadable or corrupt token file is
// treated as "no session" rather than an error.
func New(dir string, logger *zap.Logger) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	secret, err := loadOrCreateSecret(filepath.Join(dir, secretFile))
	if err != nil {
		return nil, err
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, []byte("freightdesk-token-vault"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	v := &Vault{dir: dir, aead: aead, logger: logger}
	v.tokens = v.loadTokens()
	return v, nil
}

// SetTokens overwrites both tokens unconditionally.
func (v *Vault) SetTokens(access, refresh string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.tokens = domain.Tokens{Access: access, Refresh: refresh}
	v.persist()
}

// AccessToken returns the held access token, or "" when none.
func (v *Vault) AccessToken() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.tokens.Access
}

// RefreshToken returns the held refresh token, or "" when none.
func (v *Vault) RefreshToken() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.tokens.Refresh
}

// ClearTokens drops both tokens and removes the persisted file.
// Idempotent: safe to call when already empty.
func (v *Vault) ClearTokens() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.tokens = domain.Tokens{}
	if err := os.Remove(filepath.Join(v.dir, tokenFile)); err != nil && !os.IsNotExist(err) {
		v.logger.Warn("token vault: failed to remove token file", zap.Error(err))
	}
}

// --- persistence ---

func (v *Vault) persist() {
	if v.tokens.Empty() {
		return
	}
	plain, err := json.Marshal(v.tokens)
	if err != nil {
		v.logger.Warn("token vault: marshal failed", zap.Error(err))
		return
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		v.logger.Warn("token vault: nonce generation failed", zap.Error(err))
		return
	}
	sealed := v.aead.Seal(nonce, nonce, plain, nil)

	if err := os.WriteFile(filepath.Join(v.dir, tokenFile), sealed, 0o600); err != nil {
		v.logger.Warn("token vault: write failed", zap.Error(err))
	}
}

func (v *Vault) loadTokens() domain.Tokens {
	sealed, err := os.ReadFile(filepath.Join(v.dir, tokenFile))
	if err != nil {
		return domain.Tokens{}
	}
	if len(sealed) < v.aead.NonceSize() {
		v.logger.Warn("token vault: token file truncated, discarding")
		return domain.Tokens{}
	}

	nonce, ciphertext := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plain, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		v.logger.Warn("token vault: unseal failed, discarding", zap.Error(err))
		return domain.Tokens{}
	}

	var tokens domain.Tokens
	if err := json.Unmarshal(plain, &tokens); err != nil {
		v.logger.Warn("token vault: decode failed, discarding", zap.Error(err))
		return domain.Tokens{}
	}
	return tokens
}

func loadOrCreateSecret(path string) ([]byte, error) {
	if secret, err := os.ReadFile(path); err == nil && len(secret) == secretLen {
		return secret, nil
	}

	secret := make([]byte, secretLen)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, err
	}
	return secret, nil
}
