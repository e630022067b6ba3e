//go:build !windows

package jobs_test

import (
	"context"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/internal/jobs"
	"github.com/go-task/shexec/internal/status"
)

func TestGroupSharesProcessGroup(t *testing.T) {
	t.Parallel()

	g := jobs.NewGroup()
	a, err := g.Start(func() *exec.Cmd { return exec.Command("sleep", "10") })
	require.NoError(t, err)
	b, err := g.Start(func() *exec.Cmd { return exec.Command("sleep", "10") })
	require.NoError(t, err)

	assert.Equal(t, a.Process.Pid, g.Pgid())
	assert.ElementsMatch(t, []int{a.Process.Pid, b.Process.Pid}, g.Pids())

	require.NoError(t, g.Kill())
	for _, cmd := range []*exec.Cmd{a, b} {
		err := cmd.Wait()
		require.Error(t, err)
		ws := cmd.ProcessState.Sys().(syscall.WaitStatus)
		assert.Equal(t, syscall.SIGKILL, ws.Signal())
	}
}

func TestJobPidIsProcessGroup(t *testing.T) {
	t.Parallel()

	c := jobs.NewController()
	job := c.Launch(t.Context(), jobs.Spec{
		Text:       "sleep 10",
		Background: true,
		WaitStart:  true,
		Run: func(ctx context.Context) status.ExitStatus {
			cmd, err := jobs.GroupFrom(ctx).Start(func() *exec.Cmd { return exec.Command("sleep", "10") })
			if err != nil {
				return status.Failure
			}
			_ = cmd.Wait()
			ws := cmd.ProcessState.Sys().(syscall.WaitStatus)
			if ws.Signaled() {
				return status.Signaled(int(ws.Signal()))
			}
			return status.Code(ws.ExitStatus())
		},
	})
	pids := job.Group.Pids()
	require.Len(t, pids, 1)
	assert.Equal(t, pids[0], job.Pid())

	require.NoError(t, c.Signal(job, syscall.SIGTERM))
	st := c.Wait(t.Context(), job)
	sig, ok := st.Signal()
	assert.True(t, ok)
	assert.Equal(t, int(syscall.SIGTERM), sig)
}
