package elvis

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/lasselehtinen/elvis/internal/common/uuid"
)

const zipNameLength = 40

// zipStore hands out uniquely named archive files in one scratch directory.
// The directory is created on first use, once per store.
type zipStore struct {
	dir  string
	once sync.Once
	err  error
}

func newZipStore(dir string) *zipStore {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "elvis")
	}
	return &zipStore{dir: dir}
}

func (z *zipStore) ensureDir() error {
	z.once.Do(func() {
		z.err = os.MkdirAll(z.dir, 0o755)
	})
	return z.err
}

// create opens a new archive file for writing. The caller owns the file.
func (z *zipStore) create() (*os.File, error) {
	if err := z.ensureDir(); err != nil {
		return nil, err
	}
	name, err := uuid.RandomName(zipNameLength)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(z.dir, name+".zip"), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}
