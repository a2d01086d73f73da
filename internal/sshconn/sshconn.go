// Package sshconn establishes authenticated SSH sessions and SFTP
// channels. Every session is single-use: one worker attempt dials, uses
// the channel, and closes it. Nothing is pooled, because a session that
// has returned an I/O error is not assumed usable.
package sshconn

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/zapssh/zap/internal/engine"
)

// HandshakeTimeout bounds TCP connect plus the SSH handshake.
const HandshakeTimeout = 30 * time.Second

// Key files probed under $HOME/.ssh when no explicit key is configured,
// in order.
var defaultKeyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

// Config holds the immutable parameters for creating sessions. It is
// shared by value across workers and never mutated after the transfer
// starts.
type Config struct {
	Host    string
	Port    uint16
	User    string
	KeyFile string // optional explicit private key path
}

// Addr returns the host:port dial target.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// Dialer creates authenticated sessions from a Config.
type Dialer struct {
	cfg    Config
	logger zerolog.Logger
}

// Option is a functional option for configuring the dialer.
type Option func(*Dialer)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dialer) {
		d.logger = logger
	}
}

// NewDialer builds a dialer for cfg.
func NewDialer(cfg Config, options ...Option) *Dialer {
	d := &Dialer{
		cfg:    cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Session is one authenticated SSH connection with its SFTP subchannel.
type Session struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

// Client returns the session's SFTP channel.
func (s *Session) Client() *sftp.Client {
	return s.sftpClient
}

// Close shuts down the SFTP channel and the underlying connection.
func (s *Session) Close() error {
	if s.sftpClient != nil {
		_ = s.sftpClient.Close()
	}
	return s.sshClient.Close()
}

// Dial resolves the target, connects with the handshake timeout, runs the
// authentication chain, and opens the SFTP subsystem. The returned
// session satisfies engine.RemoteConn.
func (d *Dialer) Dial(ctx context.Context) (engine.RemoteConn, error) {
	addrs, err := net.DefaultResolver.LookupHost(ctx, d.cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve host %q: %w", d.cfg.Host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("could not resolve hostname %q", d.cfg.Host)
	}
	target := net.JoinHostPort(addrs[0], strconv.Itoa(int(d.cfg.Port)))

	netDialer := &net.Dialer{Timeout: HandshakeTimeout}
	conn, err := netDialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	// ClientConfig.Timeout only applies inside ssh.Dial, so the handshake
	// on this already-open connection is bounded by a deadline instead.
	_ = conn.SetDeadline(time.Now().Add(HandshakeTimeout))

	clientConfig := &ssh.ClientConfig{
		User:            d.cfg.User,
		Auth:            d.authMethods(),
		HostKeyCallback: d.logHostKey,
		Timeout:         HandshakeTimeout,
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target, clientConfig)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to authenticate with SSH server (try specifying a key with --ssh-key-path): %w", err)
	}
	_ = conn.SetDeadline(time.Time{})
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("failed to open sftp subsystem: %w", err)
	}

	return &Session{sshClient: sshClient, sftpClient: sftpClient}, nil
}

// authMethods builds the authentication chain: the explicit key if
// configured, then the default key files that exist, then the agent. All
// keys are offered in that order under one publickey method, because the
// SSH transport does not retry a method name it has already tried; the
// first key the server accepts wins.
func (d *Dialer) authMethods() []ssh.AuthMethod {
	var signers []ssh.Signer

	if d.cfg.KeyFile != "" {
		if signer, err := loadKey(d.cfg.KeyFile); err != nil {
			d.logger.Warn().Str("key", d.cfg.KeyFile).Err(err).
				Msg("failed to load configured key, trying defaults")
		} else {
			signers = append(signers, signer)
		}
	}

	for _, path := range defaultKeyPaths() {
		signer, err := loadKey(path)
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			if agentSigners, err := agent.NewClient(conn).Signers(); err == nil {
				signers = append(signers, agentSigners...)
			}
		}
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signers...)}
}

// defaultKeyPaths returns the default key candidates that exist on disk.
func defaultKeyPaths() []string {
	home := os.Getenv("HOME")
	if home == "" {
		return nil
	}

	var paths []string
	for _, name := range defaultKeyNames {
		path := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}
	return paths
}

func loadKey(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(data)
}

// logHostKey accepts any host key and records its fingerprint, matching
// the trust model of the CLI surface.
func (d *Dialer) logHostKey(hostname string, _ net.Addr, key ssh.PublicKey) error {
	h := sha256.Sum256(key.Marshal())
	d.logger.Debug().
		Str("host", hostname).
		Str("fingerprint", "SHA256:"+base64.RawStdEncoding.EncodeToString(h[:])).
		Msg("accepting server host key")
	return nil
}
