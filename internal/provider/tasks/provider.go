package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"receipts/internal/httpclient"
	"receipts/internal/model"
	"receipts/internal/provider"
)

const (
	basePath = "/api/v1/main/tasks"

	msgListFailed   = "failed to load tasks"
	msgGetFailed    = "failed to load task"
	msgCreateFailed = "failed to create task"
	msgUpdateFailed = "failed to update task"
	msgDeleteFailed = "failed to delete task"
)

type Provider interface {
	List(ctx context.Context) ([]model.Task, error)
	Get(ctx context.Context, id string) (*model.Task, error)
	Create(ctx context.Context, in model.CreateTaskInput) (*model.Task, error)
	Update(ctx context.Context, id string, in model.UpdateTaskInput) (*model.Task, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type tasksProvider struct {
	client *httpclient.Client
	log    *slog.Logger
}

func NewTasksProvider(client *httpclient.Client, log *slog.Logger) Provider {
	return &tasksProvider{client: client, log: log}
}

func taskPath(id string) string {
	return fmt.Sprintf("%s/%s", basePath, url.PathEscape(id))
}

func (p *tasksProvider) List(ctx context.Context) ([]model.Task, error) {
	const op = "tasks.List"

	var env model.ListEnvelope[model.Task]
	if err := p.client.Do(ctx, http.MethodGet, basePath, nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tasks, err := env.Result(msgListFailed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p.log.Debug("tasks loaded", slog.String("op", op), slog.Int("count", len(tasks)))
	return tasks, nil
}

func (p *tasksProvider) Get(ctx context.Context, id string) (*model.Task, error) {
	const op = "tasks.Get"

	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty task id", op, provider.ErrMissingData)
	}

	var env model.Envelope[model.Task]
	if err := p.client.Do(ctx, http.MethodGet, taskPath(id), nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return provider.Single(op, env, msgGetFailed)
}

func (p *tasksProvider) Create(ctx context.Context, in model.CreateTaskInput) (*model.Task, error) {
	const op = "tasks.Create"

	if err := provider.Validate(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var env model.Envelope[model.Task]
	if err := p.client.Do(ctx, http.MethodPost, basePath, in, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	task, err := provider.Single(op, env, msgCreateFailed)
	if err != nil {
		return nil, err
	}

	p.log.Info("task created", slog.String("op", op), slog.String("task_id", task.ID))
	return task, nil
}

func (p *tasksProvider) Update(ctx context.Context, id string, in model.UpdateTaskInput) (*model.Task, error) {
	const op = "tasks.Update"

	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty task id", op, provider.ErrMissingData)
	}
	if err := provider.Validate(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var env model.Envelope[model.Task]
	if err := p.client.Do(ctx, http.MethodPut, taskPath(id), in, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return provider.Single(op, env, msgUpdateFailed)
}

func (p *tasksProvider) Delete(ctx context.Context, id string) (bool, error) {
	const op = "tasks.Delete"

	if id == "" {
		return false, fmt.Errorf("%s: %w: empty task id", op, provider.ErrMissingData)
	}

	var env model.Envelope[bool]
	if err := p.client.Do(ctx, http.MethodDelete, taskPath(id), nil, &env); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	deleted, err := env.Result(msgDeleteFailed)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	p.log.Info("task deleted", slog.String("op", op), slog.String("task_id", id), slog.Bool("deleted", deleted))
	return deleted, nil
}
