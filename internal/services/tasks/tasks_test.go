package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/model"
	"receipts/internal/tests/mock"
)

func newService(t *testing.T) (*Tasks, *mock.MockTasksProvider) {
	t.Helper()
	p := mock.NewTasksProvider()
	t.Cleanup(func() { p.AssertExpectations(t) })
	return NewService(p, slog.New(slog.NewTextHandler(io.Discard, nil))), p
}

func TestTasks_Lifecycle(t *testing.T) {
	s, p := newService(t)
	ctx := context.Background()

	name := "Groceries (renamed)"
	p.On("List", ctx).Return([]model.Task{{ID: "1", TaskName: "Trip"}}, nil).Once()
	p.On("Create", ctx, model.CreateTaskInput{TaskName: "Groceries"}).
		Return(&model.Task{ID: "2", TaskName: "Groceries"}, nil).Once()
	p.On("Update", ctx, "2", model.UpdateTaskInput{TaskName: &name}).
		Return(&model.Task{ID: "2", TaskName: name}, nil).Once()
	p.On("Delete", ctx, "1").Return(true, nil).Once()

	_, err := s.Load(ctx)
	require.NoError(t, err)

	created, err := s.Create(ctx, model.CreateTaskInput{TaskName: "Groceries"})
	require.NoError(t, err)
	s.SetCurrent(created)

	_, err = s.Update(ctx, "2", model.UpdateTaskInput{TaskName: &name})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "1"))

	st := s.State()
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, name, st.Tasks[0].TaskName)
	assert.Equal(t, name, st.Current.TaskName)
	assert.False(t, st.Loading)
}

func TestTasks_GetReplacesEntry(t *testing.T) {
	s, p := newService(t)
	ctx := context.Background()

	p.On("List", ctx).Return([]model.Task{{ID: "1", TaskName: "old"}}, nil).Once()
	p.On("Get", ctx, "1").Return(&model.Task{ID: "1", TaskName: "fresh"}, nil).Once()

	_, err := s.Load(ctx)
	require.NoError(t, err)

	_, err = s.Get(ctx, "1")
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, "fresh", st.Tasks[0].TaskName)
	assert.Equal(t, "fresh", st.Current.TaskName)
}

func TestTasks_DeleteClearsCurrent(t *testing.T) {
	s, p := newService(t)
	ctx := context.Background()

	p.On("Delete", ctx, "1").Return(true, nil).Once()

	s.SetCurrent(&model.Task{ID: "1"})
	require.NoError(t, s.Delete(ctx, "1"))
	assert.Nil(t, s.State().Current)
}

func TestTasks_ErrorsStoredAsMessages(t *testing.T) {
	s, p := newService(t)
	ctx := context.Background()

	p.On("List", ctx).Return(nil, &model.APIError{Status: 500, Message: "storage offline"}).Once()
	p.On("Delete", ctx, "1").Return(false, errors.New("dial tcp: refused")).Once()

	_, err := s.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, "storage offline", s.State().Error)

	require.Error(t, s.Delete(ctx, "1"))
	assert.Equal(t, msgDeleteFailed, s.State().Error)
	assert.False(t, s.State().Loading)
}
