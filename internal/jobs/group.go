package jobs

import (
	"context"
	"os"
	"os/exec"
	"slices"
	"sync"
)

// Group is the set of processes started for one job. On Unix they share a
// process group, so they can be signalled together.
type Group struct {
	mu    sync.Mutex
	pgids []int
	procs []*os.Process

	started   chan struct{}
	startOnce sync.Once

	// Terminal, when set, is handed to the group's leader as its controlling
	// terminal's foreground process group.
	Terminal *os.File
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{started: make(chan struct{})}
}

type groupKey struct{}

// WithGroup returns a context carrying g. Processes spawned with it join g.
func WithGroup(ctx context.Context, g *Group) context.Context {
	return context.WithValue(ctx, groupKey{}, g)
}

// GroupFrom returns the group carried by ctx, if any.
func GroupFrom(ctx context.Context) *Group {
	g, _ := ctx.Value(groupKey{}).(*Group)
	return g
}

// Start starts the command returned by build as a member of the group. The
// group lock is held while starting, so concurrent pipeline stages agree on
// the leader. If joining the existing group fails, because its leader was
// already reaped, the command is rebuilt and started as a new group leader.
func (g *Group) Start(build func() *exec.Cmd) (*exec.Cmd, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pgid := 0
	if len(g.pgids) > 0 {
		pgid = g.pgids[0]
	}
	cmd := build()
	configure(cmd, pgid, g.Terminal)
	err := cmd.Start()
	if err != nil && pgid != 0 && joinFailed(err) {
		cmd = build()
		configure(cmd, 0, nil)
		err = cmd.Start()
		pgid = 0
	}
	if err != nil {
		return nil, err
	}
	if pgid == 0 {
		g.pgids = append(g.pgids, cmd.Process.Pid)
	}
	g.procs = append(g.procs, cmd.Process)
	g.MarkStarted()
	return cmd, nil
}

// MarkStarted unblocks Started. It is called by Start, and by the job
// runner once the job finished, whether it started processes or not.
func (g *Group) MarkStarted() {
	g.startOnce.Do(func() { close(g.started) })
}

// Started is closed once the first process of the group was started.
func (g *Group) Started() <-chan struct{} {
	return g.started
}

// Pgid returns the id of the group's first process group, or 0.
func (g *Group) Pgid() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pgids) == 0 {
		return 0
	}
	return g.pgids[0]
}

// Pids returns the pids of every process started in the group.
func (g *Group) Pids() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	pids := make([]int, 0, len(g.procs))
	for _, p := range g.procs {
		pids = append(pids, p.Pid)
	}
	return pids
}

// Has reports whether pid is a member or a process group of g.
func (g *Group) Has(pid int) bool {
	return slices.Contains(g.Pids(), pid)
}

// Empty reports whether no process was started in the group.
func (g *Group) Empty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.procs) == 0
}

// Signal sends sig to every process of the group.
func (g *Group) Signal(sig os.Signal) error {
	g.mu.Lock()
	pgids := slices.Clone(g.pgids)
	procs := slices.Clone(g.procs)
	g.mu.Unlock()
	return signalGroup(pgids, procs, sig)
}

// Interrupt asks the group's processes to stop, as Ctrl-C would.
func (g *Group) Interrupt() error {
	g.mu.Lock()
	pgids := slices.Clone(g.pgids)
	procs := slices.Clone(g.procs)
	g.mu.Unlock()
	return interruptGroup(pgids, procs)
}

// Kill forcibly terminates the group's processes.
func (g *Group) Kill() error {
	return g.Signal(os.Kill)
}

// Release gives the terminal back to the shell after a foreground job.
func (g *Group) Release() {
	if g.Terminal != nil {
		reclaimTerminal(g.Terminal)
	}
}
