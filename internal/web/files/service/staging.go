package service

import (
	"io"
	"path/filepath"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/Laisky/fingenius-compliance/library/assets"
)

// Stager writes uploads to a scratch directory before they go to the asset store.
type Stager struct {
	fs  afero.Fs
	dir string
}

// NewStager creates a stager rooted at dir on fs.
func NewStager(fs afero.Fs, dir string) (*Stager, error) {
	if dir == "" {
		dir = afero.GetTempDir(fs, "compliance-staging")
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create staging dir %q", dir)
	}

	return &Stager{fs: fs, dir: dir}, nil
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage copies at most limit+1 bytes of r into a new staged file named after filename.
// The returned size exceeding limit means the payload is too large.
func (s *Stager) Stage(r io.Reader, filename string, limit int64) (path string, size int64, err error) {
	path = filepath.Join(s.dir, uuid.NewString()+"_"+assets.SanitizeName(filename))
	fp, err := s.fs.Create(path)
	if err != nil {
		return "", 0, errors.Wrapf(err, "create staged file %q", path)
	}

	size, err = io.Copy(fp, io.LimitReader(r, limit+1))
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(path)
		return "", 0, errors.Wrapf(err, "write staged file %q", path)
	}

	return path, size, nil
}

// Open opens a staged file for reading.
func (s *Stager) Open(path string) (afero.File, error) {
	fp, err := s.fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open staged file %q", path)
	}

	return fp, nil
}

// Remove deletes a staged file, a missing file is not an error.
func (s *Stager) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil {
		if exists, _ := afero.Exists(s.fs, path); !exists {
			return nil
		}
		return errors.Wrapf(err, "remove staged file %q", path)
	}

	return nil
}
