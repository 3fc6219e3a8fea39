package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const yearly = "0 0 1 1 *"

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func waitIdle(t *testing.T, s *Scheduler, id string) *TaskInfo {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		info, err := s.GetTask(id)
		if err != nil {
			t.Fatalf("GetTask() error = %v", err)
		}
		if !info.Running && info.LastRun != nil {
			return info
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish", id)
	return nil
}

func TestRunNowSingleFlight(t *testing.T) {
	s := newTestScheduler(t)
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	err := s.RegisterTask(TaskConfig{ID: "grab", Name: "Grab", Cron: yearly, Func: func(ctx context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}})
	if err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	s.Start()

	if err := s.RunNow("grab"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	<-started
	if err := s.RunNow("grab"); !errors.Is(err, ErrTaskRunning) {
		t.Fatalf("second RunNow() = %v, want ErrTaskRunning", err)
	}
	// a scheduled tick during the run is skipped
	s.executeTask("grab")
	close(release)

	info := waitIdle(t, s, "grab")
	if info.LastError != "" {
		t.Errorf("LastError = %q", info.LastError)
	}
	if len(started) != 0 {
		t.Errorf("task started more than once")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestFailedTaskRecordsError(t *testing.T) {
	s := newTestScheduler(t)
	s.RegisterTask(TaskConfig{ID: "boom", Cron: yearly, Func: func(context.Context) error {
		return errors.New("catalog unreachable")
	}})
	s.Start()
	if err := s.RunNow("boom"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	if info := waitIdle(t, s, "boom"); info.LastError != "catalog unreachable" {
		t.Errorf("LastError = %q", info.LastError)
	}
	s.Stop()
}

func TestStopCancelsTaskContext(t *testing.T) {
	s := newTestScheduler(t)
	cancelled := make(chan struct{})
	s.RegisterTask(TaskConfig{ID: "long", Cron: yearly, RunOnStart: true, Func: func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}})
	s.Start()
	time.Sleep(20 * time.Millisecond)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Fatal("task context was not cancelled before Stop returned")
	}
}

func TestRegistryErrors(t *testing.T) {
	s := newTestScheduler(t)
	s.Start()
	defer s.Stop()

	cfg := TaskConfig{ID: "b", Cron: yearly, Func: func(context.Context) error { return nil }}
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	if err := s.RegisterTask(cfg); err == nil {
		t.Error("duplicate id accepted")
	}
	if err := s.RegisterTask(TaskConfig{ID: "bad", Cron: "not a cron", Func: cfg.Func}); err == nil {
		t.Error("invalid cron accepted")
	}
	s.RegisterTask(TaskConfig{ID: "a", Cron: yearly, Func: cfg.Func})

	if err := s.RunNow("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("RunNow(missing) = %v", err)
	}
	if _, err := s.GetTask("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("GetTask(missing) = %v", err)
	}
	tasks := s.ListTasks()
	if len(tasks) != 2 || tasks[0].ID != "a" || tasks[1].ID != "b" {
		t.Errorf("ListTasks() = %+v", tasks)
	}
}
