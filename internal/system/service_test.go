package system

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrun/internal/buffer"
	"pyrun/internal/catalog"
	"pyrun/internal/config"
	"pyrun/internal/pycheck"
	"pyrun/internal/stage"
	"pyrun/internal/store"
	"pyrun/internal/tactile"
	"pyrun/internal/types"
)

type fakeRunner struct {
	mu   sync.Mutex
	cmds []tactile.Command
	err  error
}

func (f *fakeRunner) Submit(cmd tactile.Command) (*tactile.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.cmds = append(f.cmds, cmd)
	return &tactile.Handle{ID: "fake-run", Command: cmd}, nil
}

func (f *fakeRunner) Capabilities() tactile.RunnerCapabilities {
	return tactile.RunnerCapabilities{Name: "fake"}
}

func (f *fakeRunner) submitted() []tactile.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tactile.Command(nil), f.cmds...)
}

type fakeRecorder struct {
	records []store.RunRecord
	pruned  []int
}

func (f *fakeRecorder) Record(rec store.RunRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRecorder) Prune(keep int) (int64, error) {
	f.pruned = append(f.pruned, keep)
	return 0, nil
}

const tools = `import math

FACTOR = 6

def answer():
    return FACTOR * 7

def area(r=1):
    return math.pi * r * r
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := *config.DefaultConfig()
	cfg.Staging.Dir = filepath.Join(t.TempDir(), "staging")
	cfg.StateDir = t.TempDir()
	return cfg
}

func newTestService(t *testing.T, runner tactile.Runner) (*Service, config.Config) {
	t.Helper()
	cfg := testConfig(t)
	return NewService(cfg, stage.New(cfg.Staging.Dir), runner, nil), cfg
}

func toolsBuffer(t *testing.T) (*buffer.Snapshot, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.py")
	require.NoError(t, os.WriteFile(path, []byte(tools), 0644))
	acc, err := buffer.FromFile(path)
	require.NoError(t, err)
	return acc, dir
}

func lineRange(start, end int) types.SelectionRange {
	return types.SelectionRange{StartLine: start, StartColumn: 1, EndLine: end, EndColumn: buffer.EndOfLine}
}

func TestRunSelectionStagesAndSubmits(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)
	acc, dir := toolsBuffer(t)

	h, err := svc.RunSelection(context.Background(), acc.WithRange(lineRange(5, 6)))
	require.NoError(t, err)
	assert.Equal(t, "fake-run", h.ID)

	cmds := runner.submitted()
	require.Len(t, cmds, 1)
	cmd := cmds[0]
	staged := filepath.Join(cfg.Staging.Dir, "selection.py")
	assert.Equal(t, "python3", cmd.Binary)
	assert.Equal(t, []string{"-u", staged}, cmd.Arguments)
	assert.Equal(t, dir, cmd.WorkingDirectory)
	assert.Equal(t, "selection", cmd.Tags[TagKind])
	assert.Equal(t, staged, cmd.Tags[TagScript])
	assert.True(t, strings.HasSuffix(cmd.Tags[TagTarget], "tools.py:5:1-6:"+"2147483647"))

	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "import math\n\nFACTOR = 6\n"))
	assert.Contains(t, text, "    _pyrun_result = answer()\n")
}

func TestRunSelectionInputErrorsWriteNothing(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)
	acc, _ := toolsBuffer(t)

	_, err := svc.RunSelection(context.Background(), acc)
	assert.ErrorIs(t, err, types.ErrInput, "no range")

	_, err = svc.RunSelection(context.Background(), acc.WithRange(lineRange(2, 2)))
	assert.ErrorIs(t, err, types.ErrInput, "blank line selected")
	assert.Equal(t, "selection is empty", err.Error())

	_, statErr := os.Stat(cfg.Staging.Dir)
	assert.True(t, os.IsNotExist(statErr), "nothing may be written for an input error")
	assert.Empty(t, runner.submitted())
}

func TestResourceErrorPreventsExecution(t *testing.T) {
	runner := &fakeRunner{}
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	svc := NewService(cfg, stage.New(filepath.Join(blocker, "staging")), runner, nil)
	acc, _ := toolsBuffer(t)

	_, err := svc.RunSelection(context.Background(), acc.WithRange(lineRange(3, 3)))
	assert.ErrorIs(t, err, types.ErrResource)
	assert.Empty(t, runner.submitted())
}

func TestSubmitFailureIsWrapped(t *testing.T) {
	boom := errors.New("exec format error")
	svc, _ := newTestService(t, &fakeRunner{err: boom})
	acc, _ := toolsBuffer(t)

	_, err := svc.RunSelection(context.Background(), acc.WithRange(lineRange(3, 3)))
	assert.ErrorIs(t, err, boom)
}

func TestRunFunctionChooser(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)
	acc, dir := toolsBuffer(t)

	var offered []string
	chooser := catalog.ChooserFunc(func(_ context.Context, options []string, prompt string) (string, bool, error) {
		offered = options
		assert.Equal(t, cfg.Chooser.Prompt, prompt)
		return "def area()", true, nil
	})

	h, err := svc.RunFunction(context.Background(), acc, chooser, "")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, []string{"def answer()", "def area()"}, offered)

	cmds := runner.submitted()
	require.Len(t, cmds, 1)
	assert.Equal(t, "function", cmds[0].Tags[TagKind])
	assert.True(t, strings.HasSuffix(cmds[0].Tags[TagTarget], "tools.py:area"))

	data, err := os.ReadFile(filepath.Join(cfg.Staging.Dir, "function.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `sys.path.insert(0, "`+dir+`")`)
	assert.Contains(t, string(data), "_pyrun_result = tools.area()")
}

func TestRunFunctionCancelled(t *testing.T) {
	runner := &fakeRunner{}
	svc, cfg := newTestService(t, runner)
	acc, _ := toolsBuffer(t)

	cancel := catalog.ChooserFunc(func(context.Context, []string, string) (string, bool, error) {
		return "", false, nil
	})
	h, err := svc.RunFunction(context.Background(), acc, cancel, "")
	assert.NoError(t, err)
	assert.Nil(t, h)
	assert.Empty(t, runner.submitted())
	_, statErr := os.Stat(cfg.Staging.Dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunFunctionByName(t *testing.T) {
	runner := &fakeRunner{}
	svc, _ := newTestService(t, runner)
	acc, _ := toolsBuffer(t)

	_, err := svc.RunFunction(context.Background(), acc, nil, "answer")
	require.NoError(t, err)
	require.Len(t, runner.submitted(), 1)

	_, err = svc.RunFunction(context.Background(), acc, nil, "missing")
	assert.ErrorIs(t, err, types.ErrInput)
}

func TestScriptsAreCheckedOncePerRun(t *testing.T) {
	runner := &fakeRunner{}
	svc, _ := newTestService(t, runner)
	acc, _ := toolsBuffer(t)
	ctx := context.Background()

	checks := 0
	svc.check = func(ctx context.Context, src []byte) ([]pycheck.Issue, error) {
		checks++
		return []pycheck.Issue{{Line: 1, Column: 1, Node: "ERROR"}}, nil
	}

	_, err := svc.PrepareSelection(ctx, acc.WithRange(lineRange(5, 6)))
	require.NoError(t, err)
	_, _, ok, err := svc.PrepareFunction(ctx, acc, nil, "answer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, checks, "prepare leaves checking to the caller")

	script, err := svc.PrepareSelection(ctx, acc.WithRange(lineRange(5, 6)))
	require.NoError(t, err)
	assert.Len(t, svc.Check(ctx, script), 1)
	assert.Equal(t, 1, checks)

	_, err = svc.RunSelection(ctx, acc.WithRange(lineRange(5, 6)))
	require.NoError(t, err)
	_, err = svc.RunFunction(ctx, acc, nil, "answer")
	require.NoError(t, err)
	assert.Equal(t, 3, checks, "one check per launched run")
	assert.Len(t, runner.submitted(), 2, "syntax issues never block a run")
}

func TestRunFunctionInputErrors(t *testing.T) {
	runner := &fakeRunner{}
	svc, _ := newTestService(t, runner)

	noFuncs := buffer.NewSnapshot([]string{"x = 1"}, filepath.Join(t.TempDir(), "x.py"))
	_, err := svc.RunFunction(context.Background(), noFuncs, nil, "")
	require.Error(t, err)
	assert.Equal(t, "no functions found", err.Error())

	unsaved := buffer.NewSnapshot([]string{"def f():", "    pass"}, "")
	_, err = svc.RunFunction(context.Background(), unsaved, nil, "")
	assert.ErrorIs(t, err, types.ErrInput)

	assert.Empty(t, runner.submitted())
}

func TestCommandWithoutFilePath(t *testing.T) {
	svc, _ := newTestService(t, &fakeRunner{})
	cmd := svc.Command("/tmp/s/selection.py", buffer.NewSnapshot(nil, ""))
	assert.Empty(t, cmd.WorkingDirectory)
	assert.Equal(t, []string{"-u", "/tmp/s/selection.py"}, cmd.Arguments)
}

func TestConfigIsCopied(t *testing.T) {
	cfg := testConfig(t)
	svc := NewService(cfg, stage.New(cfg.Staging.Dir), &fakeRunner{}, nil)
	cfg.Python.Args[0] = "-X"
	cfg.Python.Binary = "python2"

	assert.Equal(t, "python3", svc.Config().Python.Binary)
	assert.Equal(t, []string{"-u"}, svc.Config().Python.Args)
}

func TestRecordAudit(t *testing.T) {
	rec := &fakeRecorder{}
	cfg := testConfig(t)
	cfg.History.Keep = 7
	svc := NewService(cfg, stage.New(cfg.Staging.Dir), &fakeRunner{}, rec)

	started := time.Now()
	cmd := tactile.Command{
		Binary:    "python3",
		Arguments: []string{"-u", "/s/function.py"},
		Tags:      map[string]string{TagKind: "function", TagTarget: "/src/tools.py:answer", TagScript: "/s/function.py"},
	}

	svc.RecordAudit(tactile.AuditEvent{Type: tactile.AuditEventStart, RunID: "r1", Command: cmd})
	assert.Empty(t, rec.records, "start events are not recorded")

	svc.RecordAudit(tactile.AuditEvent{
		Type:    tactile.AuditEventComplete,
		RunID:   "r1",
		Command: cmd,
		Result: &tactile.ExecutionResult{
			ExitCode:    2,
			StartedAt:   started,
			Duration:    1500 * time.Millisecond,
			StdoutBytes: 10,
			StderrBytes: 3,
		},
	})
	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, "function", got.Kind)
	assert.Equal(t, "/src/tools.py:answer", got.Target)
	assert.Equal(t, "/s/function.py", got.ScriptPath)
	assert.Equal(t, "python3 -u /s/function.py", got.Command)
	assert.Equal(t, 2, got.ExitCode)
	assert.Equal(t, int64(1500), got.DurationMs)
	assert.Equal(t, []int{7}, rec.pruned)
}

func TestBootAndClose(t *testing.T) {
	cfg := testConfig(t)
	rt, err := Boot(cfg)
	require.NoError(t, err)
	require.NotNil(t, rt.History)
	require.NotNil(t, rt.Service)
	assert.NoError(t, rt.Close())
	assert.NoError(t, rt.Close())

	cfg.History.Enabled = false
	rt, err = Boot(cfg)
	require.NoError(t, err)
	assert.Nil(t, rt.History)
	assert.NoError(t, rt.Close())

	cfg.Python.Binary = ""
	_, err = Boot(cfg)
	assert.Error(t, err)
}

func TestEndToEndWithPython(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	rt, err := Boot(testConfig(t))
	require.NoError(t, err)
	defer rt.Close()
	acc, _ := toolsBuffer(t)
	ctx := context.Background()

	// FACTOR * 7 as an expression selection.
	sel := types.SelectionRange{StartLine: 6, StartColumn: 12, EndLine: 6, EndColumn: buffer.EndOfLine}
	h, err := rt.Service.RunSelection(ctx, acc.WithRange(sel))
	require.NoError(t, err)
	res, err := h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "Result: 42")

	h, err = rt.Service.RunFunction(ctx, acc, nil, "answer")
	require.NoError(t, err)
	res, err = h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Running answer()\n42\n", res.Stdout, res.Stderr)

	// The history is written from the completion callback, after Wait returns.
	require.Eventually(t, func() bool {
		runs, err := rt.History.Recent(0)
		return err == nil && len(runs) == 2
	}, 5*time.Second, 20*time.Millisecond)
}
