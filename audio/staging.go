package audio

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Stage writes data to a uniquely named file under dir (the OS temp directory
// when dir is empty) and returns its path. The caller owns the file and must
// Remove it.
func Stage(dir string, data []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "upload-"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrap(err, "stage audio")
	}
	return path, nil
}

// Load opens a staged file for reading.
func Load(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load audio")
	}
	return f, nil
}

// ReadAll returns the full contents of a staged file.
func ReadAll(path string) ([]byte, error) {
	rc, err := Load(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, "read audio")
	}
	return data, nil
}

// Duration reads the container header of the file at path and returns the
// length of its audio. It fails with a format_error when the file is not a
// WAV container this package understands.
func Duration(path string) (time.Duration, error) {
	rc, err := Load(path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	h, err := ReadHeader(rc)
	if err != nil {
		return 0, err
	}
	return h.Duration(), nil
}

// Remove deletes a staged file. A file that is already gone is not an error.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove staged audio")
	}
	return nil
}
