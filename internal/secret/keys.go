// Package secret handles the encryption of session records at rest: resolving
// the key once at startup and sealing/opening blobs with AES-256-GCM.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// ResolveKey resolves the encryption key with a three-step fallback chain,
// executed once at store construction:
//  1. an externally supplied key (hex-encoded, e.g. from the environment),
//  2. a previously generated key file,
//  3. a fresh random key, persisted for future restarts with 0600 permissions.
func ResolveKey(supplied, keyPath string) ([]byte, error) {
	if supplied != "" {
		key, err := hex.DecodeString(supplied)
		if err != nil {
			return nil, fmt.Errorf("decode supplied key: %w", err)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("supplied key is %d bytes, want %d", len(key), KeySize)
		}
		return key, nil
	}

	if data, err := os.ReadFile(keyPath); err == nil {
		key, err := hex.DecodeString(string(data))
		if err != nil {
			return nil, fmt.Errorf("decode key file %s: %w", keyPath, err)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("key file %s holds %d bytes, want %d", keyPath, len(key), KeySize)
		}
		return key, nil
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("persist key: %w", err)
	}
	return key, nil
}
