package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_Shutdown(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sm := NewShutdownManager(logrus.NewEntry(logger), time.Second)

	srv := httptest.NewUnstartedServer(http.NotFoundHandler())
	srv.Start()
	defer srv.Close()
	sm.RegisterServer(srv.Config)

	var calls int32
	sm.RegisterShutdownFunc("db", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	sm.RegisterShutdownFunc("redis", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "Graceful shutdown complete", hook.LastEntry().Message)
}

func TestShutdownManager_Errors(t *testing.T) {
	sm := NewShutdownManager(nil, time.Second)
	boom := errors.New("boom")
	sm.RegisterShutdownFunc("tracer", func(ctx context.Context) error { return boom })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "tracer")
}

func TestShutdownManager_Timeout(t *testing.T) {
	sm := NewShutdownManager(nil, 50*time.Millisecond)
	sm.RegisterShutdownFunc("slow", func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	assert.EqualError(t, sm.Shutdown(), "shutdown timeout reached")
}

func TestShutdownManager_WaitForShutdownOnContext(t *testing.T) {
	sm := NewShutdownManager(nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, sm.WaitForShutdown(ctx))
}
