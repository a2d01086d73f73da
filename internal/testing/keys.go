package testing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

// KeyPair holds a generated SSH key pair for tests.
type KeyPair struct {
	PrivateKeyFile string        // OpenSSH PEM, 0600
	PublicKey      ssh.PublicKey // matching public key
	AuthorizedKey  string        // authorized_keys line
}

// GenerateKeyPair creates an ed25519 key pair and writes the private key
// to a temp file with the permissions sshd-compatible tooling expects.
func GenerateKeyPair(t *testing.T) KeyPair {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ed25519 key: %v", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatalf("failed to marshal private key: %v", err)
	}

	keyFile := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("failed to write private key: %v", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("failed to convert public key: %v", err)
	}

	return KeyPair{
		PrivateKeyFile: keyFile,
		PublicKey:      sshPub,
		AuthorizedKey:  string(ssh.MarshalAuthorizedKey(sshPub)),
	}
}
