package tasks

import (
	"context"
	"log/slog"

	"golang.org/x/exp/slices"

	"receipts/internal/model"
	"receipts/internal/provider"
	taskprovider "receipts/internal/provider/tasks"
	"receipts/internal/state"
)

const (
	msgLoadFailed   = "failed to load tasks"
	msgGetFailed    = "failed to load task"
	msgCreateFailed = "failed to create task"
	msgUpdateFailed = "failed to update task"
	msgDeleteFailed = "failed to delete task"
)

type State struct {
	Tasks   []model.Task
	Current *model.Task
	Loading bool
	Error   string
}

type Tasks struct {
	provider taskprovider.Provider
	log      *slog.Logger
	store    *state.Store[State]
}

func NewService(p taskprovider.Provider, log *slog.Logger) *Tasks {
	return &Tasks{provider: p, log: log, store: state.New(State{})}
}

func (t *Tasks) State() State { return t.store.Get() }

func (t *Tasks) Subscribe(fn func(State)) func() { return t.store.Subscribe(fn) }

func (t *Tasks) Load(ctx context.Context) ([]model.Task, error) {
	t.begin()

	tasks, err := t.provider.List(ctx)
	if err != nil {
		t.fail(err, msgLoadFailed)
		return nil, err
	}

	t.store.Update(func(s State) State {
		s.Tasks = tasks
		s.Loading = false
		return s
	})
	return tasks, nil
}

// Get загружает задачу и делает её текущей.
func (t *Tasks) Get(ctx context.Context, id string) (*model.Task, error) {
	t.begin()

	task, err := t.provider.Get(ctx, id)
	if err != nil {
		t.fail(err, msgGetFailed)
		return nil, err
	}

	t.store.Update(func(s State) State {
		s.Current = task
		s.Tasks = replace(s.Tasks, *task)
		s.Loading = false
		return s
	})
	return task, nil
}

func (t *Tasks) SetCurrent(task *model.Task) {
	t.store.Update(func(s State) State {
		s.Current = task
		return s
	})
}

func (t *Tasks) Create(ctx context.Context, in model.CreateTaskInput) (*model.Task, error) {
	t.begin()

	task, err := t.provider.Create(ctx, in)
	if err != nil {
		t.fail(err, msgCreateFailed)
		return nil, err
	}

	t.store.Update(func(s State) State {
		s.Tasks = append(slices.Clone(s.Tasks), *task)
		s.Loading = false
		return s
	})
	return task, nil
}

func (t *Tasks) Update(ctx context.Context, id string, in model.UpdateTaskInput) (*model.Task, error) {
	t.begin()

	task, err := t.provider.Update(ctx, id, in)
	if err != nil {
		t.fail(err, msgUpdateFailed)
		return nil, err
	}

	t.store.Update(func(s State) State {
		s.Tasks = replace(s.Tasks, *task)
		if s.Current != nil && s.Current.ID == task.ID {
			s.Current = task
		}
		s.Loading = false
		return s
	})
	return task, nil
}

func (t *Tasks) Delete(ctx context.Context, id string) error {
	t.begin()

	if _, err := t.provider.Delete(ctx, id); err != nil {
		t.fail(err, msgDeleteFailed)
		return err
	}

	t.store.Update(func(s State) State {
		s.Tasks = slices.DeleteFunc(slices.Clone(s.Tasks), func(task model.Task) bool { return task.ID == id })
		if s.Current != nil && s.Current.ID == id {
			s.Current = nil
		}
		s.Loading = false
		return s
	})
	t.log.Debug("task removed from state", slog.String("task_id", id))
	return nil
}

func (t *Tasks) ClearError() {
	t.store.Update(func(s State) State {
		s.Error = ""
		return s
	})
}

func (t *Tasks) begin() {
	t.store.Update(func(s State) State {
		s.Loading = true
		s.Error = ""
		return s
	})
}

func (t *Tasks) fail(err error, fallback string) {
	msg := provider.Message(err, fallback)
	t.log.Warn("tasks operation failed", slog.String("error", err.Error()))
	t.store.Update(func(s State) State {
		s.Loading = false
		s.Error = msg
		return s
	})
}

func replace(tasks []model.Task, task model.Task) []model.Task {
	out := slices.Clone(tasks)
	i := slices.IndexFunc(out, func(t model.Task) bool { return t.ID == task.ID })
	if i < 0 {
		return out
	}
	out[i] = task
	return out
}
