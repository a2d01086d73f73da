package testing

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/ssh"
)

// SSH container configuration constants.
const (
	sshContainerStartupTimeout = 60 * time.Second
	sshKeyBits                 = 4096
)

// SSHContainer holds references to a running sshd container for
// end-to-end tests that need a real OpenSSH server.
type SSHContainer struct {
	Container  testcontainers.Container
	Host       string
	Port       uint16
	User       string
	PrivateKey string // path to the private key file
	RemoteDir  string // directory for test files on the remote side
	keysDir    string
}

// StartSSHContainer starts an OpenSSH server container accepting the
// generated key for user. The caller must call Cleanup.
func StartSSHContainer(ctx context.Context, user string) (*SSHContainer, error) {
	if user == "" {
		user = "testuser"
	}
	const remoteDir = "/data"

	keysDir, privateKeyPath, publicKey, err := generateRSAKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SSH key pair: %w", err)
	}

	req := testcontainers.ContainerRequest{
		Image:        "linuxserver/openssh-server:latest",
		ExposedPorts: []string{"2222/tcp"},
		Env: map[string]string{
			"PUID":            "1000",
			"PGID":            "1000",
			"TZ":              "UTC",
			"USER_NAME":       user,
			"PUBLIC_KEY":      publicKey,
			"SUDO_ACCESS":     "false",
			"PASSWORD_ACCESS": "false",
		},
		WaitingFor: wait.ForLog("sshd is listening on port").WithStartupTimeout(sshContainerStartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		_ = os.RemoveAll(keysDir)
		return nil, fmt.Errorf("failed to start SSH container: %w", err)
	}

	cleanup := func() {
		_ = container.Terminate(ctx)
		_ = os.RemoveAll(keysDir)
	}

	mappedPort, err := container.MappedPort(ctx, "2222")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	for _, cmd := range [][]string{
		{"mkdir", "-p", remoteDir},
		{"chown", "-R", user + ":" + user, remoteDir},
	} {
		exitCode, _, execErr := container.Exec(ctx, cmd)
		if execErr != nil || exitCode != 0 {
			cleanup()
			return nil, fmt.Errorf("failed to prepare remote directory: %w (exit code: %d)", execErr, exitCode)
		}
	}

	return &SSHContainer{
		Container:  container,
		Host:       host,
		Port:       uint16(mappedPort.Int()),
		User:       user,
		PrivateKey: privateKeyPath,
		RemoteDir:  remoteDir,
		keysDir:    keysDir,
	}, nil
}

// Cleanup stops the container and removes temporary key files.
func (s *SSHContainer) Cleanup(ctx context.Context) {
	if s.Container != nil {
		_ = s.Container.Terminate(ctx)
	}
	if s.keysDir != "" {
		_ = os.RemoveAll(s.keysDir)
	}
}

// CreateRemoteFile writes content to relativePath under RemoteDir. Content
// travels base64-encoded so binary data survives the shell.
func (s *SSHContainer) CreateRemoteFile(ctx context.Context, relativePath string, content []byte) error {
	fullPath := filepath.Join(s.RemoteDir, relativePath)
	encoded := base64.StdEncoding.EncodeToString(content)

	exitCode, _, err := s.Container.Exec(ctx, []string{
		"sh", "-c",
		fmt.Sprintf("printf '%%s' '%s' | base64 -d > %s && chown %s:%s %s", encoded, fullPath, s.User, s.User, fullPath),
	})
	if err != nil || exitCode != 0 {
		return fmt.Errorf("failed to create remote file %s: %w (exit code: %d)", fullPath, err, exitCode)
	}
	return nil
}

// ReadRemoteFile returns the content of relativePath under RemoteDir.
func (s *SSHContainer) ReadRemoteFile(ctx context.Context, relativePath string) ([]byte, error) {
	fullPath := filepath.Join(s.RemoteDir, relativePath)

	exitCode, reader, err := s.Container.Exec(ctx,
		[]string{"sh", "-c", fmt.Sprintf("base64 < %s", fullPath)},
		tcexec.Multiplexed(),
	)
	if err != nil || exitCode != 0 {
		return nil, fmt.Errorf("failed to read remote file %s: %w (exit code: %d)", fullPath, err, exitCode)
	}

	encoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read exec output: %w", err)
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(decoded, normalizeBase64(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode remote file content: %w", err)
	}
	return decoded[:n], nil
}

// normalizeBase64 strips the newlines base64(1) inserts every 76 columns.
func normalizeBase64(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, b := range in {
		if b != '\n' && b != '\r' {
			out = append(out, b)
		}
	}
	return out
}

// generateRSAKeyPair writes an RSA private key to a temp dir and returns
// the dir, the key path, and the OpenSSH-format public key.
func generateRSAKeyPair() (keysDir, privateKeyPath, publicKey string, err error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, sshKeyBits)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate RSA key: %w", err)
	}

	keysDir, err = os.MkdirTemp("", "zap-ssh-keys-")
	if err != nil {
		return "", "", "", fmt.Errorf("failed to create keys directory: %w", err)
	}

	privateKeyPath = filepath.Join(keysDir, "id_rsa")
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	if writeErr := os.WriteFile(privateKeyPath, privatePEM, 0o600); writeErr != nil {
		_ = os.RemoveAll(keysDir)
		return "", "", "", fmt.Errorf("failed to write private key: %w", writeErr)
	}

	sshPub, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		_ = os.RemoveAll(keysDir)
		return "", "", "", fmt.Errorf("failed to convert public key: %w", err)
	}

	return keysDir, privateKeyPath, string(ssh.MarshalAuthorizedKey(sshPub)), nil
}
