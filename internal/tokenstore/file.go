package tokenstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filippo.io/age"
	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// File stores tokens as a JSON object in a single file. Writes go through a
// temporary file and a rename, and every access holds an advisory lock so
// several CLI processes can share one token file. One flock handle is not
// reentrant across goroutines, so mu serialises access within the process.
type File struct {
	mu         sync.Mutex
	path       string
	lock       *flock.Flock
	passphrase string
	workFactor int
}

// FileOption customises a File store.
type FileOption func(*File)

// WithPassphrase encrypts the file with an age scrypt recipient.
func WithPassphrase(passphrase string) FileOption {
	return func(f *File) {
		f.passphrase = passphrase
	}
}

// NewFile returns a File store at path. The parent directory is created on
// first write.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{
		path: path,
		lock: flock.New(path + ".lock"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the location of the token file.
func (f *File) Path() string {
	return f.path
}

// Get returns the value stored under key.
func (f *File) Get(ctx context.Context, key string) (string, error) {
	if err := f.ensureDir(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return "", fmt.Errorf("lock token file: %w", err)
	}
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set merges values into the file.
func (f *File) Set(ctx context.Context, values map[string]string) error {
	return f.update(ctx, func(current map[string]string) {
		for k, v := range values {
			current[k] = v
		}
	})
}

// Delete removes the keys from the file.
func (f *File) Delete(ctx context.Context, keys ...string) error {
	return f.update(ctx, func(current map[string]string) {
		for _, k := range keys {
			delete(current, k)
		}
	})
}

func (f *File) update(ctx context.Context, mutate func(map[string]string)) error {
	if err := f.ensureDir(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	mutate(values)
	return f.write(values)
}

func (f *File) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	return nil
}

func (f *File) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	if f.passphrase != "" {
		raw, err = f.decrypt(raw)
		if err != nil {
			return nil, err
		}
	}

	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return values, nil
}

func (f *File) write(values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	if f.passphrase != "" {
		raw, err = f.encrypt(raw)
		if err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (f *File) encrypt(plain []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(f.passphrase)
	if err != nil {
		return nil, fmt.Errorf("create age recipient: %w", err)
	}
	if f.workFactor > 0 {
		recipient.SetWorkFactor(f.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("encrypt token file: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return nil, fmt.Errorf("encrypt token file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encrypt token file: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *File) decrypt(sealed []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(f.passphrase)
	if err != nil {
		return nil, fmt.Errorf("create age identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypt token file: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decrypt token file: %w", err)
	}
	return plain, nil
}
