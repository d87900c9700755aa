package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are loaded from the source root. godotenv never overrides a
// variable that is already set, so the first file to define a key wins.
var envFiles = []string{".env.local", ".env"}

func loadEnvFiles(root string) error {
	var errs []error
	for _, name := range envFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
