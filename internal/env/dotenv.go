package env

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/go-task/shexec/internal/filepathext"
)

// LoadDotenv reads .env files relative to the working directory and exports
// their entries. Variables that are already set win, as do entries of
// earlier files. Missing files are skipped.
func (e *Env) LoadDotenv(fs afero.Fs, paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		path = filepathext.SmartJoin(e.Dir(), path)

		f, err := fs.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		envs, err := godotenv.Parse(f)
		f.Close()
		if err != nil {
			return err
		}
		for key, value := range envs {
			if _, ok := e.Get(key); ok {
				continue
			}
			if err := e.Set(key, value, true); err != nil {
				return err
			}
		}
	}
	return nil
}
