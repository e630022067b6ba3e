package main

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunUsage(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		nil,
		{"nap"},
		{"default", "extra"},
		{"handle", "--term-after=1"},
		{"default", "--sleep=forever"},
	} {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, run(args, &stdout, &stderr), "%v", args)
		assert.NotEmpty(t, stderr.String(), "%v", args)
	}
}

func TestRunToCompletion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"default", "--sleep=10ms"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "sleepit: ready\n")
	assert.Contains(t, stdout.String(), "sleepit: work done\n")
	assert.Empty(t, stderr.String())
}

func TestSuperviseCleansUp(t *testing.T) {
	t.Parallel()

	var out lockedBuffer
	signals := make(chan os.Signal, 1)
	signals <- os.Interrupt
	assert.Equal(t, exitCleanedUp, supervise(&out, time.Minute, 10*time.Millisecond, 0, signals))
	assert.Contains(t, out.String(), "sleepit: work canceled\n")
	assert.Contains(t, out.String(), "sleepit: cleanup done\n")
	assert.NotContains(t, out.String(), "sleepit: work done\n")
}

func TestSuperviseTerminatesAfterSignals(t *testing.T) {
	t.Parallel()

	var out lockedBuffer
	signals := make(chan os.Signal, 2)
	signals <- os.Interrupt
	signals <- os.Interrupt
	assert.Equal(t, exitTerminated, supervise(&out, time.Minute, time.Minute, 2, signals))
	assert.Contains(t, out.String(), "sleepit: got signal=interrupt count=2\n")
	assert.Contains(t, out.String(), "sleepit: cleanup canceled\n")
}
