package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Ladicle/tabwriter"
	"github.com/elliotchance/orderedmap/v3"

	"github.com/go-task/shexec/internal/status"
)

// startTimeout bounds how long Launch waits for a job to start its first
// process. Jobs made of builtins only may never start one.
const startTimeout = 100 * time.Millisecond

// MaxFinishedJobs is how many finished background jobs are remembered for a
// later wait. Older ones are forgotten when a new job is launched.
const MaxFinishedJobs = 32

// ErrNoSuchJob is returned by Lookup when nothing matches.
var ErrNoSuchJob = errors.New("no such job")

// Spec describes a job to launch.
type Spec struct {
	// Text is the source text shown by jobs and notifications.
	Text string
	// Background marks a job started with &.
	Background bool
	// WaitStart makes Launch block until the job started its first process,
	// finished or ran for startTimeout, so that Pid reports the process group
	// whenever the job starts one early.
	WaitStart bool
	// Run executes the job. The context carries the job's Group.
	Run func(ctx context.Context) status.ExitStatus
}

// Controller is the job table of a shell.
type Controller struct {
	mu       sync.Mutex
	jobs     *orderedmap.OrderedMap[int, *Job]
	current  int
	previous int
	wg       sync.WaitGroup
}

// NewController returns an empty job table.
func NewController() *Controller {
	return &Controller{jobs: orderedmap.NewOrderedMap[int, *Job]()}
}

// Launch starts spec.Run on its own goroutine and registers it under a new
// job id.
func (c *Controller) Launch(ctx context.Context, spec Spec) *Job {
	c.pruneFinished(MaxFinishedJobs)

	g := NewGroup()
	ctx, cancel := context.WithCancel(WithGroup(ctx, g))
	job := &Job{
		Text:       spec.Text,
		Group:      g,
		background: spec.Background,
		done:       make(chan struct{}),
		cancel:     cancel,
	}

	c.mu.Lock()
	job.ID = c.nextID()
	c.jobs.Set(job.ID, job)
	c.previous, c.current = c.current, job.ID
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		st := spec.Run(ctx)
		g.MarkStarted()
		job.finish(st)
	}()

	if spec.WaitStart {
		timer := time.NewTimer(startTimeout)
		defer timer.Stop()
		select {
		case <-g.Started():
		case <-job.done:
		case <-timer.C:
		}
	}
	return job
}

func (c *Controller) nextID() int {
	id := 1
	for k := range c.jobs.Keys() {
		if k >= id {
			id = k + 1
		}
	}
	return id
}

// pruneFinished forgets the oldest finished background jobs so that at most
// keep of them remain.
func (c *Controller) pruneFinished(keep int) {
	var finished []*Job
	for _, job := range c.List() {
		if job.Background() && job.State() == Done {
			finished = append(finished, job)
		}
	}
	for _, job := range finished[:max(0, len(finished)-keep)] {
		c.remove(job.ID)
	}
}

// Len returns the number of jobs in the table.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobs.Len()
}

// List returns the jobs ordered by id.
func (c *Controller) List() []*Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Collect(c.jobs.Values())
}

func (c *Controller) remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.jobs.Delete(id) {
		return
	}
	ids := slices.Collect(c.jobs.Keys())
	if id == c.current || id == c.previous {
		c.current, c.previous = 0, 0
		if n := len(ids); n > 0 {
			c.current = ids[n-1]
			if n > 1 {
				c.previous = ids[n-2]
			}
		}
	}
}

// Wait blocks until job finishes and removes it from the table. If ctx is
// cancelled first the job is interrupted, and its status reflects that.
func (c *Controller) Wait(ctx context.Context, job *Job) status.ExitStatus {
	select {
	case <-job.done:
	case <-ctx.Done():
		_ = c.Signal(job, syscall.SIGINT)
		<-job.done
	}
	c.remove(job.ID)
	return job.Status()
}

// WaitAll waits for every job in the table. It returns early with the
// context's error when ctx is cancelled.
func (c *Controller) WaitAll(ctx context.Context) error {
	for _, job := range c.List() {
		select {
		case <-job.done:
			c.remove(job.ID)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown cancels every job and waits for their goroutines to return.
func (c *Controller) Shutdown() {
	c.CancelAll()
	c.wg.Wait()
}

// Notify removes finished background jobs from the table and returns one
// status line for each of them.
func (c *Controller) Notify() []string {
	var lines []string
	for _, job := range c.List() {
		if job.State() != Done || !job.Background() {
			continue
		}
		lines = append(lines, c.line(job))
		c.remove(job.ID)
	}
	return lines
}

func (c *Controller) mark(id int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch id {
	case c.current:
		return "+"
	case c.previous:
		return "-"
	default:
		return " "
	}
}

func (c *Controller) line(job *Job) string {
	return fmt.Sprintf("[%d]%s  %s  %s", job.ID, c.mark(job.ID), job.describe(), job.Text)
}

// Lookup resolves a job designator: %n, %% or %+ for the current job, %-
// for the previous one, %prefix and %?substring on the job text, or a pid. An
// empty spec names the current job.
func (c *Controller) Lookup(spec string) (*Job, error) {
	c.mu.Lock()
	current, previous := c.current, c.previous
	c.mu.Unlock()

	byID := func(id int) (*Job, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if job, ok := c.jobs.Get(id); ok {
			return job, nil
		}
		return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
	}

	if !strings.HasPrefix(spec, "%") {
		if spec == "" {
			return byID(current)
		}
		pid, err := strconv.Atoi(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
		}
		for _, job := range c.List() {
			if job.hasPid(pid) {
				return job, nil
			}
		}
		return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
	}

	rest := spec[1:]
	switch rest {
	case "", "%", "+":
		return byID(current)
	case "-":
		return byID(previous)
	}
	if id, err := strconv.Atoi(rest); err == nil {
		return byID(id)
	}

	match := func(job *Job) bool { return strings.HasPrefix(job.Text, rest) }
	if sub, ok := strings.CutPrefix(rest, "?"); ok {
		match = func(job *Job) bool { return strings.Contains(job.Text, sub) }
	}
	var found *Job
	for _, job := range c.List() {
		if !match(job) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%s: ambiguous job spec", spec)
		}
		found = job
	}
	if found == nil {
		return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
	}
	return found, nil
}

// Signal sends sig to the processes of job. A job that never started a
// process can only be interrupted or killed, which cancels its context.
func (c *Controller) Signal(job *Job, sig syscall.Signal) error {
	if job.Group.Empty() {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM, syscall.SIGKILL, syscall.SIGHUP:
			job.cancel()
			return nil
		}
		return nil
	}
	if sig == syscall.SIGINT {
		return job.Group.Interrupt()
	}
	return job.Group.Signal(sig)
}

// Stop suspends job.
func (c *Controller) Stop(job *Job) error {
	if StopSignal == nil {
		return errors.ErrUnsupported
	}
	if err := job.Group.Signal(StopSignal); err != nil {
		return err
	}
	job.setState(Stopped)
	return nil
}

// Continue resumes a suspended job in the background.
func (c *Controller) Continue(job *Job) error {
	if ContinueSignal == nil {
		return errors.ErrUnsupported
	}
	if err := job.Group.Signal(ContinueSignal); err != nil {
		return err
	}
	job.setState(Running)
	return nil
}

// Foreground resumes job if needed, makes it the current job and waits for it.
func (c *Controller) Foreground(ctx context.Context, job *Job) (status.ExitStatus, error) {
	if job.State() == Stopped {
		if err := c.Continue(job); err != nil {
			return status.Failure, err
		}
	}
	job.mu.Lock()
	job.background = false
	job.mu.Unlock()

	c.mu.Lock()
	if c.current != job.ID {
		c.previous, c.current = c.current, job.ID
	}
	c.mu.Unlock()

	st := c.Wait(ctx, job)
	job.Group.Release()
	return st, nil
}

// CancelAll interrupts every live job.
func (c *Controller) CancelAll() {
	for _, job := range c.List() {
		if job.State() == Done {
			continue
		}
		_ = job.Group.Interrupt()
		job.cancel()
	}
}

// Fprint writes the job table to w. With pidsOnly, only the process ids are
// printed; long adds them as a column.
func (c *Controller) Fprint(w io.Writer, long, pidsOnly bool) error {
	jobs := c.List()
	if pidsOnly {
		for _, job := range jobs {
			if _, err := fmt.Fprintln(w, job.Pid()); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, job := range jobs {
		text := job.Text
		if job.Background() && job.State() != Done {
			text += " &"
		}
		if long {
			fmt.Fprintf(tw, "[%d]%s\t%d\t%s\t%s\n", job.ID, c.mark(job.ID), job.Pid(), job.describe(), text)
		} else {
			fmt.Fprintf(tw, "[%d]%s\t%s\t%s\n", job.ID, c.mark(job.ID), job.describe(), text)
		}
	}
	return tw.Flush()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
