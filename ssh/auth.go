package ssh

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gossh "golang.org/x/crypto/ssh"
)

// passwordCallback returns a gossh PasswordCallback that validates against
// the configured password using constant-time comparison, or nil if password
// auth is not configured.
func passwordCallback(password string) func(gossh.ConnMetadata, []byte) (*gossh.Permissions, error) {
	if password == "" {
		return nil
	}
	return func(conn gossh.ConnMetadata, pass []byte) (*gossh.Permissions, error) {
		if subtle.ConstantTimeCompare(pass, []byte(password)) != 1 {
			return nil, fmt.Errorf("ssh: password rejected")
		}
		return nil, nil
	}
}

// publicKeyCallback returns a gossh PublicKeyCallback that validates against
// the authorized_keys file or directory at path, or nil if none could be
// loaded.
func publicKeyCallback(path string) func(gossh.ConnMetadata, gossh.PublicKey) (*gossh.Permissions, error) {
	if path == "" {
		return nil
	}
	keys, err := loadAuthorizedKeys(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load authorized keys from %s: %v\n", path, err)
		return nil
	}
	if len(keys) == 0 {
		fmt.Fprintf(os.Stderr, "Warning: no authorized keys found in %s\n", path)
		return nil
	}

	return func(conn gossh.ConnMetadata, key gossh.PublicKey) (*gossh.Permissions, error) {
		marshaled := key.Marshal()
		for _, authorized := range keys {
			if subtle.ConstantTimeCompare(marshaled, authorized.Marshal()) == 1 {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("ssh: public key rejected")
	}
}

// loadAuthorizedKeys loads public keys from an authorized_keys file or
// directory.
func loadAuthorizedKeys(path string) ([]gossh.PublicKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return loadAuthorizedKeysFromDir(path)
	}
	return loadAuthorizedKeysFromFile(path)
}

func loadAuthorizedKeysFromFile(path string) ([]gossh.PublicKey, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var keys []gossh.PublicKey
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, _, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func loadAuthorizedKeysFromDir(dir string) ([]gossh.PublicKey, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var keys []gossh.PublicKey
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fileKeys, err := loadAuthorizedKeysFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		keys = append(keys, fileKeys...)
	}
	return keys, nil
}

// GetOrCreateHostKey returns the daemon's SSH host key signer, generating
// and persisting a new ED25519 key at ~/.bridgefleetd/host_key on first run.
func GetOrCreateHostKey() (gossh.Signer, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("ssh: get home directory: %w", err)
	}

	stateDir := filepath.Join(homeDir, ".bridgefleetd")
	keyPath := filepath.Join(stateDir, "host_key")

	if _, err := os.Stat(keyPath); err == nil {
		return loadHostKey(keyPath)
	}

	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("ssh: create %s: %w", stateDir, err)
	}
	return generateHostKey(keyPath)
}

func loadHostKey(path string) (gossh.Signer, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ssh: read host key: %w", err)
	}
	signer, err := gossh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ssh: parse host key: %w", err)
	}
	return signer, nil
}

func generateHostKey(path string) (gossh.Signer, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ssh: generate key: %w", err)
	}

	pemBlock, err := gossh.MarshalPrivateKey(privateKey, "")
	if err != nil {
		return nil, fmt.Errorf("ssh: marshal private key: %w", err)
	}
	pemData := pem.EncodeToMemory(pemBlock)

	if err := os.WriteFile(path, pemData, 0600); err != nil {
		return nil, fmt.Errorf("ssh: write host key: %w", err)
	}

	signer, err := gossh.NewSignerFromKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("ssh: create signer: %w", err)
	}
	return signer, nil
}
