package jsonfile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sopform/internal/core/gate"
)

func newTestLog(t *testing.T) (*GateLog, string) {
	t.Helper()
	dir := t.TempDir()
	return NewGateLog(func(id string) string {
		return filepath.Join(dir, id+".jsonl")
	}, zerolog.Nop()), dir
}

func TestGateLog_ReadMissingIsEmpty(t *testing.T) {
	log, _ := newTestLog(t)

	entries, err := log.Read(context.Background(), "add-auth")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestGateLog_AppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t)

	const n = 5
	for i := range n {
		e := gate.Entry{Timestamp: int64(100 - i), Gate: gate.Validate, ChangeID: "add-auth", Result: gate.Fail, Details: fmt.Sprint(i)}
		require.NoError(t, log.Append(ctx, "add-auth", e))
	}

	entries, err := log.Read(ctx, "add-auth")
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i, e := range entries {
		// append order wins over timestamps
		assert.Equal(t, fmt.Sprint(i), e.Details)
	}
}

func TestGateLog_AppendDoesNotRewrite(t *testing.T) {
	ctx := context.Background()
	log, dir := newTestLog(t)
	path := filepath.Join(dir, "c.jsonl")

	require.NoError(t, log.Append(ctx, "c", gate.Entry{Gate: gate.Validate, Result: gate.Pass}))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, log.Append(ctx, "c", gate.Entry{Gate: gate.Verify, Result: gate.Fail, Details: "line1\nline2 <tag>"}))
	both, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(both[:len(first)]))

	entries, err := log.Read(ctx, "c")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "line1\nline2 <tag>", entries[1].Details)
}

func TestGateLog_ReadSkipsBlankLines(t *testing.T) {
	log, dir := newTestLog(t)
	content := "\n" +
		`{"timestamp":1,"gate":"validate","changeId":"c","result":"pass","details":""}` + "\n\n  \n" +
		`{"timestamp":2,"gate":"verify","changeId":"c","result":"fail","details":"x"}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.jsonl"), []byte(content), 0o644))

	entries, err := log.Read(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, gate.Verify, entries[1].Gate)
}

func TestGateLog_MalformedLineSkipped(t *testing.T) {
	dir := t.TempDir()
	var logBuf bytes.Buffer
	log := NewGateLog(func(id string) string {
		return filepath.Join(dir, id+".jsonl")
	}, zerolog.New(&logBuf))

	content := `{"timestamp":1,"gate":"validate","changeId":"c","result":"pass","details":""}` + "\n" +
		"{not json}\n" +
		`{"timestamp":2,"gate":"verify","changeId":"c","result":"fail","details":"x"}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.jsonl"), []byte(content), 0o644))

	entries, err := log.Read(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, gate.Validate, entries[0].Gate)
	assert.Equal(t, gate.Verify, entries[1].Gate)
	assert.Contains(t, logBuf.String(), "skipping malformed gate report line")
	assert.Contains(t, logBuf.String(), `"line":2`)
}

func TestGateLog_AppendMissingDirectory(t *testing.T) {
	log := NewGateLog(func(id string) string {
		return filepath.Join(t.TempDir(), "missing", id, "gate-report.jsonl")
	}, zerolog.Nop())

	err := log.Append(context.Background(), "c", gate.Entry{Gate: gate.Validate})
	require.Error(t, err)
}

func TestGateLog_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t)

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				e := gate.Entry{Gate: gate.Validate, ChangeID: "c", Result: gate.Pass, Details: fmt.Sprintf("%d-%d", w, i)}
				assert.NoError(t, log.Append(ctx, "c", e))
			}
		}()
	}
	wg.Wait()

	entries, err := log.Read(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, entries, writers*perWriter)
}
