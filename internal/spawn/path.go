package spawn

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/sajari/fuzzy"
	"github.com/zeebo/xxh3"

	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/filepathext"
)

// DefaultKillTimeout is how long a process gets to exit after being
// interrupted before it is killed.
const DefaultKillTimeout = 2 * time.Second

type hashEntry struct {
	pathKey uint64
	path    string
}

// Spawner runs commands. It remembers where external commands were found
// until $PATH changes or the cache is cleared.
type Spawner struct {
	Builtins    *Registry
	KillTimeout time.Duration

	cache *xsync.Map[string, hashEntry]

	mu       sync.Mutex
	model    *fuzzy.Model
	modelKey uint64
}

// New returns a spawner dispatching to builtins first.
func New(builtins *Registry) *Spawner {
	if builtins == nil {
		builtins = NewRegistry()
	}
	return &Spawner{
		Builtins:    builtins,
		KillTimeout: DefaultKillTimeout,
		cache:       xsync.NewMap[string, hashEntry](),
	}
}

// LookPath finds the executable for name. Names containing a slash are taken
// relative to dir; others are searched in path.
func (s *Spawner) LookPath(name, path, dir string) (string, error) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return checkExecutable(name, filepathext.SmartJoin(dir, name))
	}

	key := xxh3.HashString(path)
	if e, ok := s.cache.Load(name); ok && e.pathKey == key {
		if _, err := os.Stat(e.path); err == nil {
			return e.path, nil
		}
	}

	var denied string
	for _, d := range filepath.SplitList(path) {
		if d == "" {
			d = "."
		}
		candidate := filepathext.SmartJoin(dir, filepath.Join(d, name))
		found, err := exec.LookPath(candidate)
		if err == nil {
			s.cache.Store(name, hashEntry{pathKey: key, path: found})
			return found, nil
		}
		if denied == "" {
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				denied = candidate
			}
		}
	}
	if denied != "" {
		return "", &errors.NotExecutableError{Path: denied, Err: os.ErrPermission}
	}
	return "", &errors.CommandNotFoundError{Name: name}
}

var errIsDirectory = errors.New("is a directory")

func checkExecutable(name, path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if found, err := exec.LookPath(path); err == nil {
			return found, nil
		}
		return "", &errors.CommandNotFoundError{Name: name, NoSuchFile: true}
	}
	if fi.IsDir() {
		return "", &errors.NotExecutableError{Path: name, Err: errIsDirectory}
	}
	if _, err := exec.LookPath(path); err != nil {
		return "", &errors.NotExecutableError{Path: name, Err: os.ErrPermission}
	}
	return path, nil
}

// Hashed returns the remembered command paths that are still valid for path,
// sorted by name.
func (s *Spawner) Hashed(path string) [][2]string {
	key := xxh3.HashString(path)
	var out [][2]string
	s.cache.Range(func(name string, e hashEntry) bool {
		if e.pathKey == key {
			out = append(out, [2]string{name, e.path})
		}
		return true
	})
	slices.SortFunc(out, func(a, b [2]string) int { return strings.Compare(a[0], b[0]) })
	return out
}

// Forget clears the remembered command paths.
func (s *Spawner) Forget() {
	s.cache.Clear()
}

// Suggest returns the known command name closest to name, or "". Builtins,
// the executables in path and extra are candidates.
func (s *Spawner) Suggest(name, path string, extra []string) string {
	key := xxh3.HashString(path + "\x00" + strings.Join(extra, "\x00"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil || s.modelKey != key {
		s.model = s.train(path, extra)
		s.modelKey = key
	}
	suggestion := s.model.SpellCheck(name)
	if suggestion == name {
		return ""
	}
	return suggestion
}

func (s *Spawner) train(path string, extra []string) *fuzzy.Model {
	model := fuzzy.NewModel()
	model.SetThreshold(1)

	words := slices.Clone(extra)
	words = append(words, s.Builtins.Names()...)
	for _, d := range filepath.SplitList(path) {
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				words = append(words, e.Name())
			}
		}
	}
	model.Train(words)
	return model
}
