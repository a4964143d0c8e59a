package agent

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// FindBinary locates the agent binary, checking the common install
// locations before falling back to PATH. Returns an empty string when the
// binary cannot be found.
func FindBinary(name string) string {
	home, err := os.UserHomeDir()
	if err == nil {
		candidates := []string{
			filepath.Join(home, ".opencode", "bin", name),
			filepath.Join(home, ".npm-global", "bin", name),
			filepath.Join(home, ".bun", "bin", name),
			"/opt/homebrew/bin/" + name,
			"/usr/local/bin/" + name,
			"/usr/bin/" + name,
		}
		for _, c := range candidates {
			if info, err := os.Stat(c); err == nil && !info.IsDir() {
				return c
			}
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}

// FreePort asks the kernel for an unused TCP port on the loopback
// interface.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Launcher manages the agent server process. The agent listens on loopback
// only, on a port picked fresh at each start.
type Launcher struct {
	binary     string
	configHome string

	mu   sync.Mutex
	cmd  *exec.Cmd
	port int
}

// NewLauncher creates a launcher for the given binary. configHome is
// exported as XDG_CONFIG_HOME so the agent reads its config from our data
// directory rather than the user's.
func NewLauncher(binary, configHome string) *Launcher {
	return &Launcher{binary: binary, configHome: configHome}
}

// Start spawns the agent server on a free port. A second Start while the
// process is running returns the existing port.
func (l *Launcher) Start() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		return l.port, nil
	}

	port, err := FreePort()
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(l.binary, "serve", "--port", strconv.Itoa(port), "--hostname", "127.0.0.1")
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+l.configHome,
		"PATH="+augmentedPath(),
	)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start agent %s: %w", l.binary, err)
	}

	l.cmd = cmd
	l.port = port
	slog.Info("agent started", "binary", l.binary, "port", port, "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		slog.Warn("agent exited", "pid", cmd.Process.Pid, "error", err)
		l.mu.Lock()
		if l.cmd == cmd {
			l.cmd = nil
		}
		l.mu.Unlock()
	}()

	return port, nil
}

// Stop terminates the agent process with SIGTERM.
func (l *Launcher) Stop() {
	l.mu.Lock()
	cmd := l.cmd
	l.cmd = nil
	l.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		slog.Warn("agent stop failed", "pid", cmd.Process.Pid, "error", err)
	}
}

// Restart stops any running agent and starts a fresh one on a new port.
func (l *Launcher) Restart() (int, error) {
	l.Stop()
	time.Sleep(300 * time.Millisecond)
	return l.Start()
}

// Port returns the port of the running agent, or 0.
func (l *Launcher) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd == nil {
		return 0
	}
	return l.port
}

// Running reports whether the agent process is alive.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil
}

// augmentedPath prepends the common tool install directories to PATH. GUI
// launch environments often miss them, and the agent shells out to tools
// installed there.
func augmentedPath() string {
	path := os.Getenv("PATH")
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	prefixes := []string{
		filepath.Join(home, ".opencode", "bin"),
		filepath.Join(home, ".bun", "bin"),
		filepath.Join(home, ".npm-global", "bin"),
		"/opt/homebrew/bin",
		"/usr/local/bin",
	}
	return strings.Join(prefixes, string(os.PathListSeparator)) + string(os.PathListSeparator) + path
}
