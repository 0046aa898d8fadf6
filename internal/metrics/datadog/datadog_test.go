package datadog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/internal/metrics"
)

type sent struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	sent   []sent
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.sent = append(f.sent, sent{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.sent = append(f.sent, sent{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func TestNewBackend_RequiresAddr(t *testing.T) {
	_, err := NewBackend(Config{})
	assert.Error(t, err)
}

func TestNewBackend_UDP(t *testing.T) {
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "salesdw.", GlobalTags: []string{"env:test"}})
	require.NoError(t, err)
	assert.NoError(t, b.Flush())
}

func TestBackend_Forwards(t *testing.T) {
	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RecordsTotal, 4, metrics.Labels{"kind": "loaded", "dataset": "sale"})
	b.ObserveHistogram(metrics.StepDuration, 0.5, nil)
	require.NoError(t, b.Flush())

	require.Len(t, fc.sent, 2)
	assert.Equal(t, sent{"count", metrics.RecordsTotal, 4, []string{"dataset:sale", "kind:loaded"}}, fc.sent[0])
	assert.Equal(t, sent{"histogram", metrics.StepDuration, 0.5, nil}, fc.sent[1])
	assert.True(t, fc.closed)
}
