package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWorker struct {
	name    string
	started bool
	stopped bool
	order   *[]string
}

func (w *fakeWorker) Start(ctx context.Context) error {
	w.started = true
	return nil
}

func (w *fakeWorker) Stop() {
	w.stopped = true
	*w.order = append(*w.order, w.name)
}

func (w *fakeWorker) Name() string { return w.name }

func TestManagerStartsAndStopsInReverseOrder(t *testing.T) {
	manager := NewManager(zap.NewNop())

	var stopOrder []string
	a := &fakeWorker{name: "a", order: &stopOrder}
	b := &fakeWorker{name: "b", order: &stopOrder}

	manager.Register(a)
	manager.Register(b)
	assert.Equal(t, 2, manager.Count())

	require.NoError(t, manager.StartAll(context.Background()))
	assert.True(t, a.started)
	assert.True(t, b.started)

	manager.StopAll()
	assert.True(t, a.stopped)
	assert.True(t, b.stopped)
	assert.Equal(t, []string{"b", "a"}, stopOrder)
}
