package main

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/nettest"

	"github.com/danmuck/netfilehub/internal/config"
	"github.com/danmuck/netfilehub/internal/nfh"
	"github.com/danmuck/netfilehub/internal/testutil/testlog"
)

// serveOnce runs a one-connection server over dir and returns its port.
func serveOnce(t *testing.T, dir string) (int, <-chan error) {
	t.Helper()
	ln, err := nettest.NewLocalListener("tcp")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv, err := nfh.NewServer(ln, nfh.ServerConfig{Dir: dir, MaxSessions: 1})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port, done
}

func waitServer(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestRunInteractiveUpload(t *testing.T) {
	testlog.Start(t)
	srvDir, cliDir := t.TempDir(), t.TempDir()
	src := filepath.Join(cliDir, "notes.txt")
	if err := os.WriteFile(src, []byte("interactive upload"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	port, done := serveOnce(t, srvDir)

	cfg := config.DefaultClientConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	in := strings.NewReader("2\n" + src + "\n")
	if err := run(context.Background(), cfg, in, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	waitServer(t, done)

	got, err := os.ReadFile(filepath.Join(srvDir, "notes.txt"))
	if err != nil {
		t.Fatalf("read upload: %v", err)
	}
	if string(got) != "interactive upload" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestRunInteractiveDownloadWithHostPrompt(t *testing.T) {
	testlog.Start(t)
	srvDir, cliDir := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(srvDir, "one.txt"), []byte("first"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srvDir, "two.txt"), []byte("second"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	port, done := serveOnce(t, srvDir)

	cfg := config.DefaultClientConfig()
	dst := filepath.Join(cliDir, "copy.txt")
	answers := []string{"127.0.0.1", strconv.Itoa(port), "1", "1", dst}
	in := strings.NewReader(strings.Join(answers, "\n") + "\n")
	if err := run(context.Background(), cfg, in, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	waitServer(t, done)

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestRunBatchDownloadEmptyServer(t *testing.T) {
	testlog.Start(t)
	port, done := serveOnce(t, t.TempDir())

	cfg, err := loadClientConfig([]string{
		"-batch",
		"-host", "127.0.0.1",
		"-port", strconv.Itoa(port),
		"-mode", "download",
		"-select", "0",
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := run(context.Background(), cfg, strings.NewReader(""), io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	waitServer(t, done)
}
