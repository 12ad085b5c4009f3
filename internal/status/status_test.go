package status

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishInvokesSinksInOrder(t *testing.T) {
	bus := NewBus(nil)
	var order []string
	bus.Register("first", SinkFunc(func(OperationStatus) { order = append(order, "first") }))
	bus.Register("second", SinkFunc(func(OperationStatus) { order = append(order, "second") }))

	bus.Publish(OperationStatus{OperationID: "op1", Status: StatusRunning})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBus_AssignsIncreasingSequence(t *testing.T) {
	bus := NewBus(nil)
	var seqs []int64
	bus.Register("collector", SinkFunc(func(e OperationStatus) { seqs = append(seqs, e.Sequence) }))

	bus.Publish(OperationStatus{OperationID: "a"})
	bus.Publish(OperationStatus{OperationID: "b"})
	require.Len(t, seqs, 2)
	assert.Less(t, seqs[0], seqs[1])
}

func TestBus_PanickingSinkDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)
	delivered := false
	bus.Register("panicker", SinkFunc(func(OperationStatus) { panic("boom") }))
	bus.Register("survivor", SinkFunc(func(OperationStatus) { delivered = true }))

	assert.NotPanics(t, func() {
		bus.Publish(OperationStatus{OperationID: "op1"})
	})
	assert.True(t, delivered)
}

func TestBus_Unregister(t *testing.T) {
	bus := NewBus(nil)
	bus.Register("a", SinkFunc(func(OperationStatus) {}))
	assert.Equal(t, 1, bus.SinkCount())
	bus.Unregister("a")
	assert.Equal(t, 0, bus.SinkCount())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
}

func TestJSONLSink_WritesOneLinePerEvent(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir, nil)
	require.NoError(t, err)
	defer sink.Close()

	now := time.Now()
	sink.HandleStatus(OperationStatus{OperationID: "op1", Status: StatusPending, Timestamp: now})
	sink.HandleStatus(OperationStatus{OperationID: "op1", Status: StatusRunning, Timestamp: now})
	require.NoError(t, sink.Close())

	path := sink.pathFor(now.UTC().Format("2006-01-02"))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines int
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestSweepRetention_RemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "status-2000-01-01.jsonl")
	require.NoError(t, os.WriteFile(oldFile, []byte("{}\n"), 0o644))

	old := time.Now().AddDate(0, 0, -60)
	require.NoError(t, os.Chtimes(oldFile, old, old))

	newFile := filepath.Join(dir, "status-today.jsonl")
	require.NoError(t, os.WriteFile(newFile, []byte("{}\n"), 0o644))

	require.NoError(t, SweepRetention(dir, DefaultRetentionDays, nil))

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newFile)
	assert.NoError(t, err)
}
