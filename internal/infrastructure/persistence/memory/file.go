package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
	"github.com/campus-careers/placement-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILE-BACKED STORE
// A Store kept as one JSON document between processes. Opening takes an
// exclusive lock file next to the document, so processes sharing the file
// run one at a time and the in-process Locker is enough inside each.
// ══════════════════════════════════════════════════════════════════════════════

// StaleLockAge is how old a lock file must be before it is treated as left
// behind by a crashed process.
const StaleLockAge = 2 * time.Minute

// FileStore is a Store loaded from path and written back by Save.
type FileStore struct {
	*Store

	path     string
	lockPath string
	released bool
}

type document struct {
	Users        []*user.User               `json:"users"`
	Companies    []*company.Company         `json:"companies"`
	Internships  []*internship.Internship   `json:"internships"`
	Applications []*application.Application `json:"applications"`
}

// OpenFile locks path and loads it. A missing file yields an empty store.
// Waiting for another process is retried with retrier; nil means
// retry.LockRetrier.
func OpenFile(ctx context.Context, path string, retrier *retry.Retrier) (*FileStore, error) {
	if retrier == nil {
		retrier = retry.LockRetrier()
	}
	f := &FileStore{Store: NewStore(), path: path, lockPath: path + ".lock"}

	err := retrier.Do(ctx, func(context.Context) error { return f.lock() })
	if err != nil {
		return nil, shared.WrapError("store", "Open", shared.ErrLockNotAcquired,
			"store file "+path+" is in use", err)
	}

	if err := f.load(ctx); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

var errLockHeld = errors.New("lock file exists")

func (f *FileStore) lock() error {
	lf, err := os.OpenFile(f.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err == nil {
		_, _ = fmt.Fprintf(lf, "%d\n", os.Getpid())
		return lf.Close()
	}
	if !errors.Is(err, fs.ErrExist) {
		return retry.Permanent(err)
	}
	if info, statErr := os.Stat(f.lockPath); statErr == nil && time.Since(info.ModTime()) > StaleLockAge {
		_ = os.Remove(f.lockPath)
	}
	return retry.Retryable(errLockHeld)
}

func (f *FileStore) load(ctx context.Context) error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode store file %s: %w", f.path, err)
	}
	for _, u := range doc.Users {
		if err := f.Users.Save(ctx, u); err != nil {
			return fmt.Errorf("restore user %s: %w", u.ID, err)
		}
	}
	for _, c := range doc.Companies {
		if err := f.Companies.Save(ctx, c); err != nil {
			return fmt.Errorf("restore company %s: %w", c.Name, err)
		}
	}
	for _, i := range doc.Internships {
		if err := f.Internships.Save(ctx, i); err != nil {
			return fmt.Errorf("restore internship %s: %w", i.ID, err)
		}
	}
	for _, a := range doc.Applications {
		if err := f.Applications.Save(ctx, a); err != nil {
			return fmt.Errorf("restore application %s: %w", a.ID, err)
		}
	}
	return nil
}

// Save writes the store back, replacing the file atomically.
func (f *FileStore) Save(ctx context.Context) error {
	if f.released {
		return shared.NewDomainError("store", "Save", shared.ErrInvalidState, "store file already closed")
	}

	doc := document{Users: f.allUsers()}
	var err error
	if doc.Companies, err = f.Companies.FindAll(ctx); err != nil {
		return err
	}
	if doc.Internships, err = f.Internships.FindAll(ctx); err != nil {
		return err
	}
	if doc.Applications, err = f.Applications.FindAll(ctx); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (f *FileStore) allUsers() []*user.User {
	f.Users.mu.RLock()
	defer f.Users.mu.RUnlock()

	out := make([]*user.User, 0, len(f.Users.byID))
	for _, u := range f.Users.byID {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close releases the lock file without saving. Later calls are no-ops.
func (f *FileStore) Close() {
	if f.released {
		return
	}
	f.released = true
	_ = os.Remove(f.lockPath)
}
