package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"conveyor/internal/api"
	"conveyor/internal/config"
	"conveyor/internal/logging"
	"conveyor/internal/notify"
	"conveyor/internal/pipeline"
	"conveyor/internal/store"
)

type fakeBackend struct {
	startErr error
}

func (b *fakeBackend) ListConfigurations(context.Context) ([]pipeline.Configuration, error) {
	return nil, nil
}

func (b *fakeBackend) GetConfiguration(_ context.Context, configID string) (*pipeline.Configuration, error) {
	cfg := pipeline.NewDefaultConfiguration("demo")
	cfg.ID = configID
	return &cfg, nil
}

func (b *fakeBackend) CreateConfiguration(_ context.Context, draft api.ConfigurationDraft) (*pipeline.Configuration, error) {
	cfg := pipeline.Configuration{ID: "cfg-new", Name: draft.Name, Steps: draft.Steps}
	return &cfg, nil
}

func (b *fakeBackend) StartExecution(context.Context, string) (string, error) {
	if b.startErr != nil {
		return "", b.startErr
	}
	return "exec-1", nil
}

func (b *fakeBackend) PauseExecution(context.Context, string) error  { return nil }
func (b *fakeBackend) ResumeExecution(context.Context, string) error { return nil }
func (b *fakeBackend) StopExecution(context.Context, string) error   { return nil }
func (b *fakeBackend) RunStep(context.Context, string, string) error { return nil }
func (b *fakeBackend) RunFromStep(context.Context, string, string) error {
	return nil
}

func (b *fakeBackend) UpdateStepPayload(context.Context, string, string, pipeline.Payload) error {
	return nil
}

func (b *fakeBackend) SubscribeUpdates(ctx context.Context, _ string, _ func(pipeline.StepUpdate)) error {
	<-ctx.Done()
	return nil
}

type capture struct {
	mu      sync.Mutex
	notices []notify.Notification
}

func (c *capture) add(n notify.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

func (c *capture) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	titles := make([]string, len(c.notices))
	for i, n := range c.notices {
		titles[i] = n.Title
	}
	return titles
}

func (c *capture) find(title string) (notify.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.notices {
		if n.Title == title {
			return n, true
		}
	}
	return notify.Notification{}, false
}

func setup(t *testing.T, cfg *config.Config) (*store.Store, *capture) {
	t.Helper()
	backend := &fakeBackend{}
	st := store.New(backend, logging.NewNop())
	notifier := notify.NewService(cfg, logging.NewNop())
	c := &capture{}
	notifier.Subscribe(c.add)

	b := New(st, notifier, cfg, logging.NewNop())
	b.Start()
	t.Cleanup(b.Stop)
	t.Cleanup(st.DisconnectFromUpdates)

	if err := st.LoadConfiguration(context.Background(), "cfg-1"); err != nil {
		t.Fatalf("load configuration: %v", err)
	}
	return st, c
}

func TestPipelineLifecycleNotifications(t *testing.T) {
	st, c := setup(t, nil)
	ctx := context.Background()

	if err := st.StartPipeline(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	last := pipeline.DefaultStepIDs[len(pipeline.DefaultStepIDs)-1]
	st.HandleStepUpdate(pipeline.StepUpdate{StepID: last, Status: pipeline.StepSuccess})

	if _, ok := c.find("Pipeline Started"); !ok {
		t.Fatalf("missing start notification: %v", c.titles())
	}
	if _, ok := c.find("Step Complete"); !ok {
		t.Fatalf("missing step notification: %v", c.titles())
	}
	done, ok := c.find("Pipeline Complete")
	if !ok {
		t.Fatalf("missing completion notification: %v", c.titles())
	}
	if done.Type != notify.TypeSuccess || done.Category != notify.CategoryPipeline {
		t.Fatalf("unexpected completion notice: %+v", done)
	}
}

func TestStepErrorNotifications(t *testing.T) {
	st, c := setup(t, nil)
	ctx := context.Background()

	if err := st.StartPipeline(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	st.HandleStepUpdate(pipeline.StepUpdate{StepID: "analysis", Status: pipeline.StepError})

	if _, ok := c.find("Step Failed"); !ok {
		t.Fatalf("missing step failure notice: %v", c.titles())
	}
	failed, ok := c.find("Pipeline Failed")
	if !ok {
		t.Fatalf("missing pipeline failure notice: %v", c.titles())
	}
	if failed.Type != notify.TypeError || !failed.Persistent {
		t.Fatalf("pipeline failure should be a persistent error: %+v", failed)
	}
}

func TestActionFailureNotification(t *testing.T) {
	backend := &fakeBackend{startErr: errors.New("executor unavailable")}
	st := store.New(backend, logging.NewNop())
	notifier := notify.NewService(nil, logging.NewNop())
	c := &capture{}
	notifier.Subscribe(c.add)
	b := New(st, notifier, nil, logging.NewNop())
	b.Start()
	defer b.Stop()

	if err := st.LoadConfiguration(context.Background(), "cfg-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := st.StartPipeline(context.Background()); err == nil {
		t.Fatal("expected start to fail")
	}
	notice, ok := c.find("Action Failed")
	if !ok {
		t.Fatalf("missing action failure notice: %v", c.titles())
	}
	if notice.Message != "executor unavailable" {
		t.Fatalf("unexpected message %q", notice.Message)
	}
}

func TestDisabledCategoriesStaySilent(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notifications.Pipeline = false
	cfg.Notifications.Steps = false
	cfg.Notifications.Errors = true

	st, c := setup(t, cfg)
	ctx := context.Background()

	if err := st.StartPipeline(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	st.HandleStepUpdate(pipeline.StepUpdate{StepID: "extraction", Status: pipeline.StepSuccess})

	if _, ok := c.find("Pipeline Started"); ok {
		t.Fatal("pipeline notices should be disabled")
	}
	if _, ok := c.find("Step Complete"); ok {
		t.Fatal("step notices should be disabled")
	}

	st.HandleStepUpdate(pipeline.StepUpdate{StepID: "analysis", Status: pipeline.StepError})
	if _, ok := c.find("Pipeline Failed"); !ok {
		t.Fatalf("error notices should stay enabled: %v", c.titles())
	}
}

func TestStopDetachesBridge(t *testing.T) {
	st := store.New(&fakeBackend{}, logging.NewNop())
	notifier := notify.NewService(nil, logging.NewNop())
	c := &capture{}
	notifier.Subscribe(c.add)

	b := New(st, notifier, nil, logging.NewNop())
	b.Start()
	defer st.DisconnectFromUpdates()

	ctx := context.Background()
	if err := st.LoadConfiguration(ctx, "cfg-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := st.StartPipeline(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := c.find("Pipeline Started"); !ok {
		t.Fatalf("bridge not forwarding: %v", c.titles())
	}
	seen := len(c.titles())

	b.Stop()
	st.HandleStepUpdate(pipeline.StepUpdate{StepID: "extraction", Status: pipeline.StepSuccess})
	if got := len(c.titles()); got != seen {
		t.Fatalf("stopped bridge still forwarding: %d -> %d", seen, got)
	}
}
