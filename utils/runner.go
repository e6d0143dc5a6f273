// utils/runner.go - command transports for disk provisioning.
//
// All virtual-disk work is expressed as PowerShell invocations; a Runner
// decides where they execute. LocalRunner shells out on the machine dbclone
// runs on, SSHRunner drives a remote Windows host over SSH (OpenSSH server
// ships with Windows Server 2019+).
package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"golang.org/x/crypto/ssh"

	"dbclone/common"
)

// Runner executes one PowerShell command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// --- local execution ---

// LocalRunner runs PowerShell on the local machine.
type LocalRunner struct {
	Shell string // defaults to "powershell"
}

func (r *LocalRunner) Run(ctx context.Context, command string) (string, error) {
	shell := r.Shell
	if shell == "" {
		shell = "powershell"
	}
	common.DebugLog("runner: local: %s", command)
	cmd := exec.CommandContext(ctx, shell, "-NoProfile", "-NonInteractive", "-Command", command)
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		return text, fmt.Errorf("powershell: %v: %s", err, firstLine(text))
	}
	return text, nil
}

// --- remote execution over SSH ---

// SSHRunner runs PowerShell on a remote host over SSH. The connection is
// dialed lazily and reused; a stale connection is redialed on the next Run.
type SSHRunner struct {
	User    string
	Addr    string // host or host:port
	KeyFile string

	mu     sync.Mutex
	client *ssh.Client
}

func (r *SSHRunner) Run(ctx context.Context, command string) (string, error) {
	client, err := r.connection()
	if err != nil {
		return "", err
	}
	session, err := client.NewSession()
	if err != nil {
		// connection went stale; drop it and retry once
		r.drop()
		if client, err = r.connection(); err != nil {
			return "", err
		}
		if session, err = client.NewSession(); err != nil {
			return "", fmt.Errorf("ssh session: %w", err)
		}
	}
	defer session.Close()

	common.DebugLog("runner: ssh %s@%s: %s", r.User, r.Addr, command)
	// -EncodedCommand sidesteps remote shell quoting entirely
	wire := "powershell -NoProfile -NonInteractive -EncodedCommand " + encodePowerShell(command)

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(wire)
		done <- result{out, err}
	}()
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case res := <-done:
		text := strings.TrimSpace(string(res.out))
		if res.err != nil {
			return text, fmt.Errorf("remote powershell: %v: %s", res.err, firstLine(text))
		}
		return text, nil
	}
}

func (r *SSHRunner) connection() (*ssh.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}

	keyData, err := os.ReadFile(r.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read SSH key file %s: %w", r.KeyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parse SSH private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	addr := r.Addr
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	common.DebugLog("runner: ssh connected to %s@%s", r.User, addr)
	r.client = client
	return client, nil
}

func (r *SSHRunner) drop() {
	r.mu.Lock()
	if r.client != nil {
		_ = r.client.Close()
		r.client = nil
	}
	r.mu.Unlock()
}

// Close tears down the pooled connection.
func (r *SSHRunner) Close() {
	r.drop()
}

// encodePowerShell produces the UTF-16LE base64 form -EncodedCommand expects.
func encodePowerShell(command string) string {
	codes := utf16.Encode([]rune(command))
	buf := make([]byte, 0, len(codes)*2)
	for _, c := range codes {
		buf = append(buf, byte(c), byte(c>>8))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
