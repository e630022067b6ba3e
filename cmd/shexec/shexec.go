package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/go-task/shexec"
	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/flags"
	_ "github.com/go-task/shexec/internal/homefix"
	"github.com/go-task/shexec/internal/logger"
	"github.com/go-task/shexec/internal/term"
	"github.com/go-task/shexec/internal/version"
	"github.com/go-task/shexec/parse"
	"github.com/go-task/shexec/shellrc"
	shellrcast "github.com/go-task/shexec/shellrc/ast"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the exit code of the process.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return errors.CodeOk
	}
	var exitErr *errors.ExitStatusError
	if !errors.As(err, &exitErr) {
		l := logger.New(stdout, stderr, false, true)
		l.Errf(logger.Red, "shexec: %v", err)
	}
	return errors.Code(err)
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var f flags.Flags
	cmd := &cobra.Command{
		Use:           "shexec [flags...] [script [args...]]",
		Short:         "A POSIX shell",
		Long:          "Usage: " + flags.Usage,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), &f, args, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &errors.UsageError{Err: err}
	})
	// Flags after the script name belong to the script.
	cmd.Flags().SetInterspersed(false)
	f.Register(cmd.Flags())
	return cmd
}

func run(ctx context.Context, f *flags.Flags, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if f.Version {
		fmt.Fprintf(stdout, "shexec version: %s\n", version.GetVersionWithBuildInfo())
		return nil
	}
	if err := f.Validate(); err != nil {
		return err
	}

	log := logger.New(stdout, stderr, f.Verbose, f.Color)
	config, err := loadConfig(afero.NewOsFs(), f, log)
	if err != nil {
		return err
	}

	var (
		script *ast.Script
		name   = "shexec"
		params []string
	)
	switch {
	case f.Command != "":
		if len(args) > 0 {
			name, params = args[0], args[1:]
		}
		if script, err = parse.String(f.Command, "-c"); err != nil {
			return err
		}
	case len(args) > 0:
		name, params = args[0], args[1:]
		if script, err = readScript(name); err != nil {
			return err
		}
	}
	_, tty := term.TerminalFile(stdin)
	interactive := script == nil && tty

	opts := []shexec.RunnerOption{
		shexec.WithStdIO(stdin, stdout, stderr),
		shexec.WithLogger(log),
		shexec.WithName(name),
		shexec.WithParams(params...),
		shexec.WithInteractive(interactive),
	}
	opts = append(opts, shellrc.RunnerOptions(config)...)
	opts = append(opts, f.RunnerOptions()...)
	r, err := shexec.New(opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	if interactive {
		return repl(ctx, r, stdin, log)
	}
	if script == nil {
		if script, err = parse.Parse(stdin, name); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.InterceptInterruptSignals(cancel)
	return r.Run(ctx, script)
}

func readScript(path string) (*ast.Script, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &errors.CommandNotFoundError{Name: path, NoSuchFile: true}
	}
	if err != nil {
		return nil, &errors.IoError{Path: path, Err: err}
	}
	defer file.Close()
	return parse.Parse(file, path)
}

// loadConfig reads the configuration files, or the one given with --config,
// and applies the SHEXEC_ variables of the process on top of them.
func loadConfig(fsys afero.Fs, f *flags.Flags, log *logger.Logger) (*shellrcast.ShellRC, error) {
	debug := shellrc.WithDebugFunc(func(s string) {
		log.VerboseErrf(logger.Magenta, "%s", s)
	})
	var (
		config *shellrcast.ShellRC
		err    error
	)
	if f.Config != "" {
		config, err = shellrc.GetConfigFile(fsys, f.Config, debug)
	} else {
		config, err = shellrc.GetConfig(fsys, f.Dir, debug)
	}
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &shellrcast.ShellRC{}
	}
	config.Merge(shellrc.FromEnv())
	return config, nil
}
