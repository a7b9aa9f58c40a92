package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/storage/memory"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApp_DarkModePersisted(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	a := NewService(ctx, st, discard())
	assert.False(t, a.State().DarkMode)
	assert.True(t, a.State().SidebarOpen)

	assert.True(t, a.ToggleDarkMode(ctx))

	v, err := st.Get(ctx, DarkModeKey)
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	restored := NewService(ctx, st, discard())
	assert.True(t, restored.State().DarkMode)
}

func TestApp_InvalidDarkModeIgnored(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.Set(ctx, DarkModeKey, "maybe"))

	a := NewService(ctx, st, discard())
	assert.False(t, a.State().DarkMode)
}

func TestApp_ToggleSidebar(t *testing.T) {
	a := NewService(context.Background(), nil, discard())

	assert.False(t, a.ToggleSidebar())
	assert.True(t, a.ToggleSidebar())
}

func TestApp_Notifications(t *testing.T) {
	a := NewService(context.Background(), nil, discard())

	sticky := a.Notify(Info, "sticky", -1)
	short := a.Notify(Error, "short", 20*time.Millisecond)
	other := a.Notify(Success, "other", -1)

	assert.NotEqual(t, sticky, short)
	assert.Len(t, a.State().Notifications, 3)

	assert.Eventually(t, func() bool {
		return len(a.State().Notifications) == 2
	}, time.Second, 5*time.Millisecond)

	a.Remove(other)
	n := a.State().Notifications
	require.Len(t, n, 1)
	assert.Equal(t, sticky, n[0].ID)

	a.Clear()
	assert.Empty(t, a.State().Notifications)
}

func TestApp_DefaultTimeout(t *testing.T) {
	a := NewService(context.Background(), nil, discard())

	a.Notify(Warning, "hi", 0)
	assert.Equal(t, DefaultNotificationTimeout, a.State().Notifications[0].Timeout)
	a.Clear()
}
