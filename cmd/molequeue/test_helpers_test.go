package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"molequeue/internal/config"
	"molequeue/internal/daemon"
	"molequeue/internal/ipc"
	"molequeue/internal/logging"
	"molequeue/internal/queue"
	"molequeue/internal/server"
	"molequeue/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithQueues(
		config.QueueDef{Name: "local", Description: "Local execution queue"},
		config.QueueDef{Name: "remote", Description: "Cluster queue"},
	))

	configPath := filepath.Join(homeDir, ".config", "molequeue", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	manager, err := queue.NewManager(cfg, store, logger)
	if err != nil {
		t.Fatalf("queue.NewManager: %v", err)
	}

	d, err := daemon.New(cfg, store, manager, logger, nil, server.StaticPolicy(server.KeepExistingAndExit))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: cfg.SocketPath(),
		configPath: configPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var queuesSection strings.Builder
	for _, q := range cfg.Queues {
		fmt.Fprintf(&queuesSection, "[[queues]]\nname = %q\ndescription = %q\n\n", q.Name, q.Description)
	}
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\nsocket = %q\n\n[server]\non_conflict = %q\n\n%s",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.Socket,
		cfg.Server.OnConflict,
		queuesSection.String(),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
