package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
)

type mockPipeline struct {
	report *driving.SyncReport
	err    error
	status *driving.SyncStatus
	opts   driving.RunOptions
	calls  int
}

func (m *mockPipeline) Run(_ context.Context, opts driving.RunOptions) (*driving.SyncReport, error) {
	m.calls++
	m.opts = opts
	return m.report, m.err
}

func (m *mockPipeline) Status(_ context.Context) (*driving.SyncStatus, error) {
	if m.status == nil {
		return nil, errors.New("no status")
	}
	return m.status, nil
}

type mockScheduler struct {
	every    time.Duration
	opts     driving.RunOptions
	onResult func(*driving.SyncReport, error)
	report   *driving.SyncReport
	task     domain.ScheduledTask
}

func (m *mockScheduler) build(every time.Duration, opts driving.RunOptions,
	onResult func(*driving.SyncReport, error)) driving.Scheduler {
	m.every = every
	m.opts = opts
	m.onResult = onResult
	return m
}

// Start reports one run and then behaves as if interrupted.
func (m *mockScheduler) Start(_ context.Context) error {
	m.onResult(m.report, nil)
	m.task.Runs++
	return context.Canceled
}

func (m *mockScheduler) Stop() error { return nil }

func (m *mockScheduler) Task() domain.ScheduledTask { return m.task }

type mockSettings struct {
	settings *domain.AppSettings
	getErr   error
	set      map[string]string
	unset    []string
	setErr   error
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	return m.settings, m.getErr
}

func (m *mockSettings) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Unset(key string) error {
	if m.setErr != nil {
		return m.setErr
	}
	delete(m.set, key)
	m.unset = append(m.unset, key)
	return nil
}

func (m *mockSettings) Keys() []string { return nil }

func (m *mockSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings("/data")
}

type mockDefinitions struct {
	defs    []domain.DefinitionRecord
	applied []domain.CorrectionRecord
	result  *driving.ApplyResult
	err     error
	applies int
}

func (m *mockDefinitions) Apply(_ context.Context, c []domain.CorrectionRecord) (*driving.ApplyResult, error) {
	m.applies++
	m.applied = c
	if m.result == nil {
		return &driving.ApplyResult{Matched: len(c)}, m.err
	}
	return m.result, m.err
}

func (m *mockDefinitions) List(_ context.Context) ([]domain.DefinitionRecord, error) {
	return m.defs, m.err
}

type mockCatalog struct {
	catalog *domain.Catalog
	asked   []string
}

func (m *mockCatalog) Fetch(_ context.Context, collections ...string) *domain.Catalog {
	m.asked = collections
	return m.catalog
}

type mockQueries struct {
	export  *driving.QueryExport
	replace *driving.ReplaceResult
	req     driving.ReplaceRequest
	addReq  driving.AddColumnRequest
	err     error
}

func (m *mockQueries) Export(_ context.Context) (*driving.QueryExport, error) {
	return m.export, m.err
}

func (m *mockQueries) Replace(_ context.Context, req driving.ReplaceRequest) (*driving.ReplaceResult, error) {
	m.req = req
	return m.replace, m.err
}

func (m *mockQueries) AddColumn(_ context.Context, req driving.AddColumnRequest) (*driving.ReplaceResult, error) {
	m.addReq = req
	return m.replace, m.err
}

type mockSchema struct {
	created, dropped bool
	counts           *domain.TableCounts
	err              error
}

func (m *mockSchema) Create(_ context.Context) error {
	m.created = true
	return m.err
}

func (m *mockSchema) Drop(_ context.Context) error {
	m.dropped = true
	return m.err
}

func (m *mockSchema) Check(_ context.Context) (*domain.TableCounts, error) {
	return m.counts, m.err
}

// setup installs s for the duration of the test and resets flag state.
func setup(t *testing.T, s Services) {
	t.Helper()
	Configure(s)
	resetFlags()
	t.Cleanup(func() {
		Configure(Services{})
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
}

func resetFlags() {
	verbose = false
	syncAll = false
	syncWorkers = 0
	syncEvery = 0
	schemaDropForce = false
	replaceOut = "rewritten"
	replacePublish = false
	replaceMode = string(domain.PublishOverwrite)
	addWorkbook = ""
	tokenName = ""
}

// run executes the command line and returns everything it printed.
func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	if stdin != nil {
		rootCmd.SetIn(stdin)
	}
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
