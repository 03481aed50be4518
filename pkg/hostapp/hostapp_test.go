package hostapp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mcpds/mcpds-setup/pkg/confirm"
	"github.com/mcpds/mcpds-setup/pkg/logging"
	"github.com/mcpds/mcpds-setup/pkg/runner"
	"github.com/mcpds/mcpds-setup/pkg/runner/mocks"
)

const (
	testApp     = `C:\Users\op\AppData\Local\Programs\Claude\Claude.exe`
	testProcess = "Claude.exe"
)

const tasklistRunning = `
Image Name                     PID Session Name        Session#    Mem Usage
========================= ======== ================ =========== ============
Claude.exe                   12345 Console                    1    182,340 K`

const tasklistEmpty = "INFO: No tasks are running which match the specified criteria."

type recordingGate struct {
	answers []bool
	asked   []string
}

func (g *recordingGate) Confirm(q string) (bool, error) {
	g.asked = append(g.asked, q)
	if len(g.answers) == 0 {
		return false, confirm.ErrNoAnswer
	}
	a := g.answers[0]
	g.answers = g.answers[1:]
	return a, nil
}

func TestDetector_Installed(t *testing.T) {
	app := filepath.Join(t.TempDir(), "Claude.exe")
	require.NoError(t, os.WriteFile(app, nil, 0755))

	var out bytes.Buffer
	gate := &recordingGate{}
	d := NewDetector(gate, &out, logging.NewDiscardLogger(), app, "https://claude.ai/download")

	found, err := d.Check()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, gate.asked)
	assert.Empty(t, out.String())
}

func TestDetector_MissingContinue(t *testing.T) {
	var out bytes.Buffer
	gate := &recordingGate{answers: []bool{true}}
	d := NewDetector(gate, &out, logging.NewDiscardLogger(), filepath.Join(t.TempDir(), "Claude.exe"), "https://claude.ai/download")

	found, err := d.Check()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"Continue after installing Claude?"}, gate.asked)
	assert.Contains(t, out.String(), "Claude desktop app not found.")
	assert.Contains(t, out.String(), "https://claude.ai/download")
}

func TestDetector_MissingDeclined(t *testing.T) {
	gate := &recordingGate{answers: []bool{false}}
	d := NewDetector(gate, &bytes.Buffer{}, logging.NewDiscardLogger(), filepath.Join(t.TempDir(), "Claude.exe"), "https://claude.ai/download")

	_, err := d.Check()
	require.Error(t, err)
	assert.True(t, errors.Is(err, confirm.ErrDeclined))
	assert.Equal(t, "Claude desktop app is required to continue", err.Error())
}

func newTestRestarter(t *testing.T, gate confirm.Gate) (*Restarter, *mocks.MockRunner, *[]time.Duration) {
	t.Helper()
	ctrl := gomock.NewController(t)
	r := mocks.NewMockRunner(ctrl)
	var slept []time.Duration
	rs := NewRestarter(r, gate, logging.NewDiscardLogger(), testApp, testProcess, 2*time.Second,
		WithSleep(func(d time.Duration) { slept = append(slept, d) }))
	return rs, r, &slept
}

func TestRestarter_Running(t *testing.T) {
	tests := []struct {
		name   string
		result *runner.Result
		want   bool
	}{
		{"listed", &runner.Result{Stdout: tasklistRunning}, true},
		{"not listed", &runner.Result{Stdout: tasklistEmpty}, false},
		{"tasklist unavailable", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, r, _ := newTestRestarter(t, &recordingGate{})
			r.EXPECT().Run(gomock.Any(), ListCommand(testProcess)).Return(tt.result, nil)
			assert.Equal(t, tt.want, rs.Running(context.Background()))
		})
	}
}

func TestRestarter_RestartApproved(t *testing.T) {
	gate := &recordingGate{answers: []bool{true}}
	rs, r, slept := newTestRestarter(t, gate)
	gomock.InOrder(
		r.EXPECT().Run(gomock.Any(), ListCommand(testProcess)).Return(&runner.Result{Stdout: tasklistRunning}, nil),
		r.EXPECT().Run(gomock.Any(), KillCommand(testProcess)).Return(&runner.Result{}, nil),
		r.EXPECT().Run(gomock.Any(), LaunchCommand(testApp)).Return(&runner.Result{}, nil),
	)

	action, err := rs.Restart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionRestarted, action)
	assert.Equal(t, []string{"Claude is running. Restart it?"}, gate.asked)
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestRestarter_RestartDeclined(t *testing.T) {
	gate := &recordingGate{answers: []bool{false}}
	rs, r, slept := newTestRestarter(t, gate)
	r.EXPECT().Run(gomock.Any(), ListCommand(testProcess)).Return(&runner.Result{Stdout: tasklistRunning}, nil)

	action, err := rs.Restart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionDeclined, action)
	assert.Empty(t, *slept)
}

func TestRestarter_RestartDeclinedLogsWithoutWarning(t *testing.T) {
	buffer := logging.NewLogBuffer(16)
	logger := slog.New(logging.NewBufferHandler(buffer, nil))

	ctrl := gomock.NewController(t)
	r := mocks.NewMockRunner(ctrl)
	r.EXPECT().Run(gomock.Any(), ListCommand(testProcess)).Return(&runner.Result{Stdout: tasklistRunning}, nil)

	gate := &recordingGate{answers: []bool{false}}
	rs := NewRestarter(r, gate, logger, testApp, testProcess, time.Second, WithSleep(func(time.Duration) {}))

	action, err := rs.Restart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionDeclined, action)

	entries := buffer.GetRecent(16)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "restart skipped; changes apply after Claude is restarted", entries[0].Message)
}

func TestRestarter_StartsWhenNotRunning(t *testing.T) {
	gate := &recordingGate{}
	rs, r, _ := newTestRestarter(t, gate)
	gomock.InOrder(
		r.EXPECT().Run(gomock.Any(), ListCommand(testProcess)).Return(&runner.Result{Stdout: tasklistEmpty}, nil),
		r.EXPECT().Run(gomock.Any(), LaunchCommand(testApp)).Return(&runner.Result{}, nil),
	)

	action, err := rs.Restart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionStarted, action)
	assert.Empty(t, gate.asked, "launching a stopped app is not gated")
}

func TestRestarter_KillFails(t *testing.T) {
	gate := &recordingGate{answers: []bool{true}}
	rs, r, _ := newTestRestarter(t, gate)
	killErr := &runner.CommandExecutionError{Command: KillCommand(testProcess), ExitCode: 128, Err: errors.New("exit status 128")}
	gomock.InOrder(
		r.EXPECT().Run(gomock.Any(), ListCommand(testProcess)).Return(&runner.Result{Stdout: tasklistRunning}, nil),
		r.EXPECT().Run(gomock.Any(), KillCommand(testProcess)).Return(nil, killErr),
	)

	_, err := rs.Restart(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "stopping Claude"))
}

func TestCommands(t *testing.T) {
	assert.Equal(t, `tasklist /FI "IMAGENAME eq Claude.exe"`, ListCommand("Claude.exe").String())
	assert.False(t, ListCommand("Claude.exe").Check)
	assert.Equal(t, "taskkill /IM Claude.exe /F", KillCommand("Claude.exe").String())
	assert.True(t, KillCommand("Claude.exe").Check)
	assert.Equal(t, []string{"/C", "start", "", testApp}, LaunchCommand(testApp).Args)
}
