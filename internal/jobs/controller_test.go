package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/internal/jobs"
	"github.com/go-task/shexec/internal/status"
)

func returning(st status.ExitStatus) func(context.Context) status.ExitStatus {
	return func(context.Context) status.ExitStatus { return st }
}

func blocking(release <-chan struct{}) func(context.Context) status.ExitStatus {
	return func(ctx context.Context) status.ExitStatus {
		select {
		case <-release:
			return status.OK
		case <-ctx.Done():
			return status.Signaled(int(syscall.SIGINT))
		}
	}
}

func TestLaunchAndWait(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	job := c.Launch(t.Context(), jobs.Spec{Text: "false", Background: true, Run: returning(status.Code(3))})
	assert.Equal(t, 1, job.ID)

	st := c.Wait(t.Context(), job)
	assert.Equal(t, 3, st.Int())
	assert.Equal(t, jobs.Done, job.State())
	assert.Equal(t, 0, c.Len())
}

func TestIDsIncrease(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	c := jobs.NewController()
	a := c.Launch(t.Context(), jobs.Spec{Text: "a", Run: blocking(release)})
	b := c.Launch(t.Context(), jobs.Spec{Text: "b", Run: blocking(release)})
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Text)
	assert.Equal(t, "b", list[1].Text)
}

func TestSyntheticPid(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	job := c.Launch(t.Context(), jobs.Spec{Text: "true", WaitStart: true, Run: returning(status.OK)})
	<-job.Done()

	found, err := c.Lookup(itoa(job.Pid()))
	require.NoError(t, err)
	assert.Same(t, job, found)
}

func TestNotify(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	ok := c.Launch(t.Context(), jobs.Spec{Text: "sleep 1", Background: true, Run: returning(status.OK)})
	bad := c.Launch(t.Context(), jobs.Spec{Text: "false", Background: true, Run: returning(status.Code(2))})
	<-ok.Done()
	<-bad.Done()

	lines := c.Notify()
	assert.Equal(t, []string{
		"[1]-  Done  sleep 1",
		"[2]+  Exit 2  false",
	}, lines)
	assert.Empty(t, c.Notify())
	assert.Equal(t, 0, c.Len())
}

func TestNotifySkipsRunning(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := jobs.NewController()
	job := c.Launch(t.Context(), jobs.Spec{Text: "cat", Background: true, Run: blocking(release)})
	assert.Empty(t, c.Notify())

	close(release)
	<-job.Done()
	assert.Len(t, c.Notify(), 1)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	c := jobs.NewController()
	sleep := c.Launch(t.Context(), jobs.Spec{Text: "sleep 10", Run: blocking(release)})
	cat := c.Launch(t.Context(), jobs.Spec{Text: "cat file", Run: blocking(release)})

	tests := []struct {
		spec string
		want *jobs.Job
	}{
		{"", cat},
		{"%%", cat},
		{"%+", cat},
		{"%-", sleep},
		{"%1", sleep},
		{"%2", cat},
		{"%sl", sleep},
		{"%?file", cat},
	}
	for _, test := range tests {
		got, err := c.Lookup(test.spec)
		require.NoError(t, err, test.spec)
		assert.Same(t, test.want, got, test.spec)
	}

	_, err := c.Lookup("%9")
	assert.ErrorIs(t, err, jobs.ErrNoSuchJob)
	_, err = c.Lookup("%nope")
	assert.ErrorIs(t, err, jobs.ErrNoSuchJob)

	c.Launch(t.Context(), jobs.Spec{Text: "sleep 20", Run: blocking(release)})
	_, err = c.Lookup("%sleep")
	assert.ErrorContains(t, err, "ambiguous")
}

func TestSignalWithoutProcesses(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	job := c.Launch(t.Context(), jobs.Spec{Text: "loop", Run: blocking(nil)})
	require.NoError(t, c.Signal(job, syscall.SIGTERM))

	st := c.Wait(t.Context(), job)
	sig, ok := st.Signal()
	assert.True(t, ok)
	assert.Equal(t, int(syscall.SIGINT), sig)
}

func TestWaitCancelled(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	job := c.Launch(t.Context(), jobs.Spec{Text: "loop", Run: blocking(nil)})

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	st := c.Wait(ctx, job)
	assert.False(t, st.Success())
}

func TestWaitAll(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	for range 3 {
		c.Launch(t.Context(), jobs.Spec{Text: "true", Run: returning(status.OK)})
	}
	require.NoError(t, c.WaitAll(t.Context()))
	assert.Equal(t, 0, c.Len())
}

func TestCancelAll(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	a := c.Launch(t.Context(), jobs.Spec{Text: "a", Run: blocking(nil)})
	b := c.Launch(t.Context(), jobs.Spec{Text: "b", Run: blocking(nil)})
	c.Shutdown()

	assert.Equal(t, jobs.Done, a.State())
	assert.Equal(t, jobs.Done, b.State())
}

func TestForeground(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := jobs.NewController()
	job := c.Launch(t.Context(), jobs.Spec{Text: "cat", Background: true, Run: blocking(release)})
	close(release)

	st, err := c.Foreground(t.Context(), job)
	require.NoError(t, err)
	assert.True(t, st.Success())
	assert.False(t, job.Background())
}

func TestStopWithoutProcesses(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	job := c.Launch(t.Context(), jobs.Spec{Text: "x", Run: returning(status.OK)})
	<-job.Done()

	err := c.Stop(job)
	if errors.Is(err, errors.ErrUnsupported) {
		return
	}
	require.NoError(t, err)
}

func TestFprint(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	c := jobs.NewController()
	c.Launch(t.Context(), jobs.Spec{Text: "sleep 10", Background: true, Run: blocking(release)})
	c.Launch(t.Context(), jobs.Spec{Text: "cat", Background: true, Run: blocking(release)})

	var buf bytes.Buffer
	require.NoError(t, c.Fprint(&buf, false, false))
	assert.Equal(t, "[1]-  Running  sleep 10 &\n[2]+  Running  cat &\n", buf.String())

	buf.Reset()
	require.NoError(t, c.Fprint(&buf, false, true))
	assert.Equal(t, itoa(1<<22+1)+"\n"+itoa(1<<22+2)+"\n", buf.String())
}

func TestParseSignal(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"TERM", "SIGTERM", "term", "15"} {
		sig, err := jobs.ParseSignal(s)
		require.NoError(t, err, s)
		assert.Equal(t, syscall.SIGTERM, sig, s)
	}
	_, err := jobs.ParseSignal("NOPE")
	assert.Error(t, err)
	assert.Equal(t, "KILL", jobs.SignalName(int(syscall.SIGKILL)))
}

func TestFinishedJobsAreBounded(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	var first *jobs.Job
	for i := range jobs.MaxFinishedJobs + 10 {
		job := c.Launch(t.Context(), jobs.Spec{Text: "true", Background: true, Run: returning(status.Code(i % 256))})
		<-job.Done()
		if first == nil {
			first = job
		}
	}
	last := c.Launch(t.Context(), jobs.Spec{Text: "true", Background: true, Run: returning(status.OK)})
	<-last.Done()

	assert.Equal(t, jobs.MaxFinishedJobs+1, c.Len())
	_, err := c.Lookup(itoa(first.Pid()))
	require.ErrorIs(t, err, jobs.ErrNoSuchJob)
	found, err := c.Lookup(itoa(last.Pid()))
	require.NoError(t, err)
	assert.Same(t, last, found)
}
