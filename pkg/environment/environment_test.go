package environment

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcpds/mcpds-setup/pkg/confirm"
	"github.com/mcpds/mcpds-setup/pkg/logging"
	"github.com/mcpds/mcpds-setup/pkg/runner"
	"github.com/mcpds/mcpds-setup/pkg/runner/runnertest"
)

func newTestBuilder(t *testing.T, fake *runnertest.Fake, answers string) (*Builder, *bytes.Buffer) {
	t.Helper()
	work := t.TempDir()
	var out bytes.Buffer
	gate := confirm.NewPrompter(strings.NewReader(answers), &out)
	return NewBuilder(fake, gate, logging.NewDiscardLogger(), work, filepath.Join(work, ".venv")), &out
}

func TestEnsureVenv_Exists(t *testing.T) {
	fake := runnertest.NewFake()
	b, out := newTestBuilder(t, fake, "")
	if err := os.Mkdir(b.venvDir, 0755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	created, err := b.EnsureVenv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected existing environment to be reused")
	}
	if out.Len() != 0 {
		t.Errorf("expected no prompt, got %q", out.String())
	}
	if len(fake.Calls()) != 0 {
		t.Errorf("expected no commands, got %v", fake.Calls())
	}
}

func TestEnsureVenv_CreateApproved(t *testing.T) {
	fake := runnertest.NewFake()
	b, _ := newTestBuilder(t, fake, "y\n")
	fake.On(VenvCommand(b.workDir, b.venvDir).String(), runnertest.Response{
		Effect: func() error { return os.Mkdir(b.venvDir, 0755) },
	})

	created, err := b.EnsureVenv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected environment to be created")
	}

	calls := fake.Calls()
	if len(calls) != 1 || calls[0].Dir != b.workDir {
		t.Errorf("expected uv venv in work dir, got %v", calls)
	}
	if exists, _ := b.Exists(); !exists {
		t.Error("expected environment directory to exist")
	}
}

func TestEnsureVenv_Declined(t *testing.T) {
	fake := runnertest.NewFake()
	b, _ := newTestBuilder(t, fake, "n\n")

	_, err := b.EnsureVenv(context.Background())
	if !errors.Is(err, confirm.ErrDeclined) {
		t.Fatalf("expected declined error, got %v", err)
	}
	if err.Error() != "Virtual environment is required to continue" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if len(fake.Calls()) != 0 {
		t.Errorf("expected no commands after decline, got %v", fake.Calls())
	}
}

func TestEnsureVenv_CreateFails(t *testing.T) {
	fake := runnertest.NewFake()
	b, _ := newTestBuilder(t, fake, "yes\n")
	fake.On(VenvCommand(b.workDir, b.venvDir).String(), runnertest.Response{ExitCode: 2})

	_, err := b.EnsureVenv(context.Background())
	var execErr *runner.CommandExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected CommandExecutionError, got %v", err)
	}
	if execErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", execErr.ExitCode)
	}
}

func TestSync(t *testing.T) {
	fake := runnertest.NewFake()
	b, out := newTestBuilder(t, fake, "")
	fake.On(SyncCommand(b.workDir).String(), runnertest.Response{})

	if err := b.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fake.Ran("uv sync") {
		t.Error("expected uv sync to run")
	}
	if out.Len() != 0 {
		t.Errorf("sync must not prompt, got %q", out.String())
	}
}

func TestSync_Fails(t *testing.T) {
	fake := runnertest.NewFake()
	b, _ := newTestBuilder(t, fake, "")
	fake.On(SyncCommand(b.workDir).String(), runnertest.Response{ExitCode: 1, Output: "resolution failed"})

	err := b.Sync(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "syncing dependencies") {
		t.Errorf("unexpected error: %v", err)
	}
}
