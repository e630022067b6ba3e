package spawn

import (
	"context"
	goerrors "errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/jobs"
	"github.com/go-task/shexec/internal/status"
)

// maxExtraFd is the highest descriptor passed on to child processes.
const maxExtraFd = 9

// Request describes a command to dispatch.
type Request struct {
	Args []string
	// Environ is the exported environment of an external command.
	Environ []string
	// Dir is the working directory.
	Dir string
	// Path is the value of $PATH used for the lookup.
	Path string
	Fds  *env.FdTable
	// Env and Shell are handed to builtins.
	Env   *env.Env
	Shell Shell
}

// Dispatch runs req.Args[0] as a builtin, in which case it finishes before
// Dispatch returns, or starts it as an external process. Errors returned
// with a nil Handle are resolution or start failures; the control values of
// builtins come back alongside a finished handle.
func (s *Spawner) Dispatch(ctx context.Context, req Request) (Handle, error) {
	if b, ok := s.Builtins.Lookup(req.Args[0]); ok {
		st, err := b.Run(ctx, &Call{Args: req.Args, Env: req.Env, Fds: req.Fds, Shell: req.Shell})
		return Done(st), err
	}
	return s.Start(ctx, req)
}

// Start resolves and starts an external command. The process joins the job
// group carried by ctx, or a new one.
func (s *Spawner) Start(ctx context.Context, req Request) (Handle, error) {
	path, err := s.LookPath(req.Args[0], req.Path, req.Dir)
	if err != nil {
		return nil, err
	}

	if err := checkDir(req.Dir); err != nil {
		return nil, err
	}

	group := jobs.GroupFrom(ctx)
	if group == nil {
		group = jobs.NewGroup()
	}
	cmd, err := group.Start(func() *exec.Cmd { return s.command(path, req) })
	if err != nil {
		return nil, startError(req.Args[0], err)
	}

	h := &procHandle{cmd: cmd, group: group, done: make(chan struct{})}
	go h.wait(ctx, s.KillTimeout)
	return h, nil
}

func (s *Spawner) command(path string, req Request) *exec.Cmd {
	cmd := exec.Command(path, req.Args[1:]...)
	cmd.Args[0] = req.Args[0]
	cmd.Env = append([]string{}, req.Environ...)
	cmd.Dir = req.Dir
	cmd.WaitDelay = s.KillTimeout

	if d, ok := req.Fds.Get(0); ok && d.Reader != nil {
		cmd.Stdin = stdinOf(d)
	}
	if d, ok := req.Fds.Get(1); ok && d.Writer != nil {
		cmd.Stdout = outputOf(d)
	}
	if d, ok := req.Fds.Get(2); ok && d.Writer != nil {
		cmd.Stderr = outputOf(d)
	}

	var extra []*os.File
	for fd := 3; fd <= maxExtraFd; fd++ {
		d, ok := req.Fds.Get(fd)
		if !ok || d.CloseOnExec {
			extra = append(extra, nil)
			continue
		}
		f, _ := d.File()
		extra = append(extra, f)
	}
	for len(extra) > 0 && extra[len(extra)-1] == nil {
		extra = extra[:len(extra)-1]
	}
	cmd.ExtraFiles = extra
	return cmd
}

func stdinOf(d env.FileDesc) io.Reader {
	if f, ok := d.File(); ok {
		return f
	}
	return d.Reader
}

func outputOf(d env.FileDesc) io.Writer {
	if f, ok := d.File(); ok {
		return f
	}
	return d.Writer
}

var errNotDirectory = errors.New("not a directory")

// checkDir reports a working directory the process could not be started in,
// which os/exec would otherwise blame on the command.
func checkDir(dir string) error {
	if dir == "" {
		return nil
	}
	fi, err := os.Stat(dir)
	if err != nil {
		var pathErr *fs.PathError
		if goerrors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return &errors.IoError{Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return &errors.IoError{Path: dir, Err: errNotDirectory}
	}
	return nil
}

func startError(name string, err error) error {
	if goerrors.Is(err, os.ErrPermission) || isExecFormat(err) {
		return &errors.NotExecutableError{Path: name, Err: err}
	}
	if goerrors.Is(err, os.ErrNotExist) {
		return &errors.CommandNotFoundError{Name: name, NoSuchFile: true}
	}
	return &errors.FatalError{Op: "start " + name, Err: err}
}

type procHandle struct {
	cmd   *exec.Cmd
	group *jobs.Group
	st    status.ExitStatus
	done  chan struct{}
}

// wait reaps the process. When ctx is cancelled first, the process is
// interrupted and, if still running after killTimeout, killed. Either way
// the command completes as signaled, whatever its own exit code.
func (h *procHandle) wait(ctx context.Context, killTimeout time.Duration) {
	defer close(h.done)

	exited := make(chan error, 1)
	go func() { exited <- h.cmd.Wait() }()

	select {
	case err := <-exited:
		h.st = exitStatus(h.cmd.ProcessState, err)
	case <-ctx.Done():
		_ = h.group.Interrupt()
		h.st = status.Signaled(int(syscall.SIGINT))
		select {
		case <-exited:
		case <-time.After(killTimeout):
			_ = h.group.Kill()
			<-exited
			h.st = status.Signaled(int(syscall.SIGKILL))
		}
	}
}

func (h *procHandle) Wait(ctx context.Context) status.ExitStatus {
	<-h.done
	return h.st
}

func (h *procHandle) Pid() int              { return h.cmd.Process.Pid }
func (h *procHandle) Done() <-chan struct{} { return h.done }
