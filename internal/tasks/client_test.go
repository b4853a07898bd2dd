package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	path := DBPath(filepath.Join(t.TempDir(), "librarian.db"))
	client, err := NewClient(path, config.Tasks{Workers: 1})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "librarian-tasks.db"), DBPath(filepath.Join("data", "librarian.db")))
	assert.Equal(t, "library-tasks.sqlite", DBPath("library.sqlite"))
	assert.Equal(t, "librarian-tasks.db", DBPath(":memory:"))
	assert.Equal(t, "librarian-tasks.db", DBPath(""))
}

func TestNewClient_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	path := DBPath(filepath.Join(dir, "librarian.db"))

	client, err := NewClient(path, config.Tasks{})
	require.NoError(t, err)
	defer client.Close()

	_, err = os.Stat(filepath.Join(dir, "librarian-tasks.db"))
	assert.NoError(t, err)
	assert.Equal(t, 2, client.config.Workers)
}

func TestClient_StopBeforeStart(t *testing.T) {
	client := newTestClient(t)

	assert.True(t, client.Stop(context.Background()))
}

func TestClient_StartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx))
}

type echoTask struct {
	Value string `json:"value"`
}

func (echoTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "echo",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestClient_ProcessesTask(t *testing.T) {
	client := newTestClient(t)

	executed := make(chan string, 1)
	client.Register(backlite.NewQueue(func(_ context.Context, task echoTask) error {
		executed <- task.Value
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	ids, err := client.Add(echoTask{Value: "hello"}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(config.Tasks{Workers: 4})

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}
