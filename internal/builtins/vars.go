package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/pborman/getopt/v2"

	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// Export marks variables for the environment of spawned commands. With -p
// or no operands it lists the exported variables.
func Export(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	return declare(call, "export", func(e *env.Env, name string) { e.Export(name) }, func(v env.Variable) bool { return v.Exported })
}

// Readonly marks variables as immutable.
func Readonly(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	return declare(call, "readonly", func(e *env.Env, name string) { e.SetReadonly(name) }, func(v env.Variable) bool { return v.ReadOnly })
}

func declare(call *spawn.Call, verb string, mark func(*env.Env, string), listed func(env.Variable) bool) (status.ExitStatus, error) {
	set := getopt.New()
	list := set.Bool('p', "list the variables")
	args, st, ok := parseFlags(call, set)
	if !ok {
		return st, nil
	}

	e := call.Env
	if *list || len(args) == 0 {
		w := call.Stdout()
		e.Each(func(name string, v env.Variable) bool {
			if listed(v) {
				fmt.Fprintf(w, "%s %s=%s\n", verb, name, Quote(v.Value))
			}
			return true
		})
		return status.OK, nil
	}

	st = status.OK
	for _, arg := range args {
		name, value, assign := strings.Cut(arg, "=")
		if !env.ValidName(name) {
			st = call.Errorf("`%s': not a valid identifier", arg)
			continue
		}
		if assign {
			if err := e.Set(name, value, false); err != nil {
				st = call.Errorf("%v", err)
				continue
			}
		}
		mark(e, name)
	}
	return st, nil
}

// Unset removes variables, or functions with -f. Without -v or -f a name
// that is not a variable is removed as a function.
func Unset(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	set := getopt.New()
	vars := set.Bool('v', "treat each name as a variable")
	funcs := set.Bool('f', "treat each name as a function")
	args, st, ok := parseFlags(call, set)
	if !ok {
		return st, nil
	}
	if *vars && *funcs {
		return call.Errorf("cannot simultaneously unset a function and a variable"), nil
	}

	e := call.Env
	st = status.OK
	for _, name := range args {
		if *funcs {
			e.UnsetFunc(name)
			continue
		}
		if !env.ValidName(name) {
			st = call.Errorf("`%s': not a valid identifier", name)
			continue
		}
		if _, ok := e.Get(name); !ok && !*vars {
			e.UnsetFunc(name)
			continue
		}
		if err := e.Unset(name); err != nil {
			st = call.Errorf("%v", err)
		}
	}
	return st, nil
}

// Local declares variables that live until the current function returns.
func Local(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	if !call.Shell.InFunction() {
		return call.Errorf("can only be used in a function"), nil
	}
	st := status.OK
	for _, arg := range call.Args[1:] {
		name, value, assign := strings.Cut(arg, "=")
		if !env.ValidName(name) {
			st = call.Errorf("`%s': not a valid identifier", arg)
			continue
		}
		var v *string
		if assign {
			v = &value
		}
		if err := call.Env.Local(name, v); err != nil {
			st = call.Errorf("%v", err)
		}
	}
	return st, nil
}

// Shift drops positional parameters. Shifting more than there are is an
// error and changes nothing.
func Shift(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	n, ok := count(call, call.Args[1:], 1)
	if !ok {
		return status.Failure, nil
	}
	if err := call.Env.Shift(n); err != nil {
		return call.Errorf("%d: %v", n, err), nil
	}
	return status.OK, nil
}

// Set changes shell options, replaces the positional parameters after --,
// or lists the variables when called without arguments.
func Set(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	e := call.Env
	args := call.Args[1:]
	if len(args) == 0 {
		w := call.Stdout()
		e.Each(func(name string, v env.Variable) bool {
			fmt.Fprintf(w, "%s=%s\n", name, Quote(v.Value))
			return true
		})
		return status.OK, nil
	}

	opts := e.Options()
	for len(args) > 0 {
		arg := args[0]
		if arg == "--" {
			e.SetParams(args[1:])
			return status.OK, nil
		}
		if arg == "-" || arg == "+" {
			args = args[1:]
			break
		}
		if len(arg) < 2 || (arg[0] != '-' && arg[0] != '+') {
			break
		}
		on := arg[0] == '-'
		args = args[1:]
		for i := 1; i < len(arg); i++ {
			if arg[i] != 'o' {
				if err := opts.SetByLetter(arg[i], on); err != nil {
					return call.Usage("%c: invalid option", arg[i]), nil
				}
				continue
			}
			if len(args) == 0 {
				listOptions(call, opts, on)
				continue
			}
			if err := opts.SetByName(args[0], on); err != nil {
				return call.Usage("%s: invalid option name", args[0]), nil
			}
			args = args[1:]
		}
	}
	if len(args) > 0 {
		e.SetParams(args)
	}
	return status.OK, nil
}

// listOptions prints the options for set -o, or as commands for set +o.
func listOptions(call *spawn.Call, opts *env.Options, human bool) {
	w := call.Stdout()
	for _, name := range opts.Names() {
		on, _ := opts.Get(name)
		if human {
			state := "off"
			if on {
				state = "on"
			}
			fmt.Fprintf(w, "%-15s\t%s\n", name, state)
			continue
		}
		sign := "+"
		if on {
			sign = "-"
		}
		fmt.Fprintf(w, "set %so %s\n", sign, name)
	}
}
