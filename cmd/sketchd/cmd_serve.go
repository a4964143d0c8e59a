package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/sketchd/internal/agent"
	"github.com/user/sketchd/internal/notify"
	"github.com/user/sketchd/internal/state"
	"github.com/user/sketchd/internal/stream"
	"github.com/user/sketchd/internal/syncer"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sketchd daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "sketchd.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	meta := state.NewMetaStore(cfg.DataDir)

	// Agent process: launch our own unless an external URL is configured.
	agentURL := cfg.Agent.URL
	var launcher *agent.Launcher
	if agentURL == "" {
		binary := agent.FindBinary(cfg.Agent.Binary)
		if binary == "" {
			return fmt.Errorf("agent binary %q not found", cfg.Agent.Binary)
		}
		launcher = agent.NewLauncher(binary, cfg.DataDir)
		port, err := launcher.Start()
		if err != nil {
			return err
		}
		defer launcher.Stop()
		agentURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	}

	rpc := agent.NewClient(agentURL)

	registry := notify.NewRegistry()
	registry.Subscribe(logNotifications)

	coord := syncer.New(rpc, registry,
		syncer.WithMaxConcurrent(int64(cfg.MaxConcurrent)),
		syncer.WithStuckThreshold(time.Duration(cfg.Sync.StuckThresholdMs)*time.Millisecond),
		syncer.WithReplyTimeout(time.Duration(cfg.Sync.ReplyTimeoutMs)*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coord.Start(ctx)
	defer coord.Stop()

	events := stream.NewClient(agentURL, coord.HandleEvent)
	go events.Run(ctx)
	go watchStreamLiveness(ctx, events)

	slog.Info("sketchd started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"agent_url", agentURL,
		"max_concurrent", cfg.MaxConcurrent,
		"pid_file", pidPath,
		"sessions_dir", meta.Dir(""),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")
	return nil
}

// streamQuietAfter is how long the event stream may go without any event,
// heartbeats included, before the daemon logs a staleness warning.
const streamQuietAfter = 2 * time.Minute

// watchStreamLiveness periodically checks when the stream last delivered an
// event. The agent emits heartbeats on an open stream, so a long silence
// means the connection is wedged even if the socket stays up.
func watchStreamLiveness(ctx context.Context, events *stream.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := events.LastEventAt()
			if last == 0 {
				continue
			}
			quiet := time.Since(time.UnixMilli(last))
			if quiet > streamQuietAfter {
				slog.Warn("event stream quiet", "last_event", time.UnixMilli(last).Format(time.RFC3339), "quiet_for", quiet.Round(time.Second).String())
			}
		}
	}
}

// logNotifications mirrors coordinator notifications into the daemon log.
// UI frontends subscribe with their own handler.
func logNotifications(n notify.Notification) {
	switch n.Kind {
	case notify.KindStuckWarning:
		if n.Stuck == nil {
			return
		}
		if n.Stuck.Show {
			slog.Warn("session stuck",
				"session_id", string(n.SessionID),
				"category", string(n.Stuck.Category),
				"tool", n.Stuck.Tool,
				"elapsed_s", n.Stuck.ElapsedSeconds,
			)
		} else {
			slog.Info("session unstuck", "session_id", string(n.SessionID))
		}
	case notify.KindSessionError:
		slog.Error("session error", "session_id", string(n.SessionID), "error", n.Error)
	}
}
