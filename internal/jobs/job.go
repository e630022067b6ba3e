package jobs

import (
	"context"
	"sync"

	"github.com/go-task/shexec/internal/status"
)

// State is the life-cycle state of a job.
type State int

const (
	Running State = iota
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "Done"
	}
}

// syntheticPidBase offsets the ids of jobs that never started a process, so
// they can still be named through $! without colliding with real pids.
const syntheticPidBase = 1 << 22

// Job is a pipeline or list started by the controller.
type Job struct {
	ID    int
	Text  string
	Group *Group

	mu         sync.Mutex
	state      State
	status     status.ExitStatus
	background bool

	done   chan struct{}
	cancel context.CancelFunc
}

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Status returns the final status. It is only meaningful once Done is closed.
func (j *Job) Status() status.ExitStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Background reports whether the job runs in the background.
func (j *Job) Background() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.background
}

// Pid returns the process group id of the job, or a synthetic id when the job
// runs without external processes.
func (j *Job) Pid() int {
	if pgid := j.Group.Pgid(); pgid != 0 {
		return pgid
	}
	return syntheticPidBase + j.ID
}

func (j *Job) hasPid(pid int) bool {
	return pid == syntheticPidBase+j.ID || pid == j.Pid() || j.Group.Has(pid)
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != Done {
		j.state = s
	}
}

func (j *Job) finish(st status.ExitStatus) {
	j.mu.Lock()
	j.state = Done
	j.status = st
	j.mu.Unlock()
	close(j.done)
}

func (j *Job) describe() string {
	switch st := j.State(); st {
	case Done:
		s := j.Status()
		if sig, ok := s.Signal(); ok {
			if name := SignalName(sig); name != "" {
				return name
			}
			return s.String()
		}
		if !s.Success() {
			return "Exit " + itoa(s.Int())
		}
		return "Done"
	default:
		return st.String()
	}
}
