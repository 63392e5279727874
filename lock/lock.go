// Package lock provides a file-backed, named mutual-exclusion primitive.
// Exclusivity holds across independent processes: acquisition is an atomic
// create-if-absent on a well-known path, and the file embeds the holder's
// identity so a lock abandoned by a dead process can be reclaimed.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// ErrBusy means another holder currently owns the lock. It is an expected
// outcome, not a failure.
var ErrBusy = errors.New("lock held by another process")

// holder is the metadata written into the lock file.
type holder struct {
	PID        int32     `json:"pid"`
	Hostname   string    `json:"hostname"`
	Job        string    `json:"job"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Manager acquires and releases named locks under one directory. With
// single=true every name maps to the same file, serializing all jobs.
type Manager struct {
	dir        string
	single     bool
	staleAfter time.Duration
	log        zerolog.Logger

	now      func() time.Time
	pidAlive func(pid int32) bool
}

func NewManager(dir string, single bool, staleAfter time.Duration, log zerolog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir %s: %w", dir, err)
	}
	return &Manager{
		dir:        dir,
		single:     single,
		staleAfter: staleAfter,
		log:        log.With().Str("component", "lock").Logger(),
		now:        time.Now,
		pidAlive:   pidAlive,
	}, nil
}

func pidAlive(pid int32) bool {
	ok, err := process.PidExists(pid)
	return err == nil && ok
}

// Handle is an acquired lock. Release is idempotent and never removes a
// lock file this handle did not create.
type Handle struct {
	mu       sync.Mutex
	path     string
	pid      int32
	hostname string
	acquired time.Time
	released bool
}

func (m *Manager) path(name string) string {
	if m.single {
		name = "traderd"
	}
	return filepath.Join(m.dir, name+".lock")
}

// Acquire takes the lock for name. It returns ErrBusy when a live holder
// owns it, reclaiming first if the holder is stale (dead PID on this host,
// or a liveness timestamp older than the staleness threshold).
func (m *Manager) Acquire(name string) (*Handle, error) {
	path := m.path(name)

	h, err := m.tryCreate(path, name)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}

	if !m.stale(path) {
		return nil, ErrBusy
	}
	return m.reclaim(path, name)
}

// reclaim removes a stale lock and takes it. Competing reclaimers are
// serialized through an O_EXCL sentinel file, and staleness is re-checked
// under the sentinel: between the caller's stale decision and this point,
// another process may have already reclaimed and written a fresh lock, which
// must never be removed.
func (m *Manager) reclaim(path, name string) (*Handle, error) {
	sentinel := path + ".reclaim"
	sf, err := os.OpenFile(sentinel, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		// Another reclaimer is in progress. A sentinel left behind by a
		// crashed reclaimer is cleared by age so reclamation cannot wedge
		// forever; this attempt still reports busy either way.
		if info, statErr := os.Stat(sentinel); statErr == nil && m.now().Sub(info.ModTime()) > m.staleAfter {
			os.Remove(sentinel)
		}
		return nil, ErrBusy
	}
	if err != nil {
		return nil, fmt.Errorf("reclaim %s: %w", name, err)
	}
	sf.Close()
	defer os.Remove(sentinel)

	if !m.stale(path) {
		// Lost the reclaim race: a fresh holder exists now.
		return nil, ErrBusy
	}

	m.log.Warn().Str("job", name).Str("path", path).Msg("reclaiming stale lock")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reclaim %s: %w", name, err)
	}

	h, err := m.tryCreate(path, name)
	if err == nil {
		return h, nil
	}
	if errors.Is(err, fs.ErrExist) {
		return nil, ErrBusy
	}
	return nil, fmt.Errorf("acquire %s: %w", name, err)
}

func (m *Manager) tryCreate(path, name string) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	meta := holder{
		PID:        int32(os.Getpid()),
		Hostname:   hostname,
		Job:        name,
		AcquiredAt: m.now(),
	}
	if err := json.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write lock metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}

	return &Handle{path: path, pid: meta.PID, hostname: meta.Hostname, acquired: meta.AcquiredAt}, nil
}

// stale reports whether the lock file at path belongs to an abandoned
// holder. Unreadable metadata falls back to the file's age.
func (m *Manager) stale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		// Possibly released between our create attempt and now.
		return os.IsNotExist(err)
	}

	var h holder
	if err := json.Unmarshal(data, &h); err != nil {
		info, statErr := os.Stat(path)
		return statErr == nil && m.now().Sub(info.ModTime()) > m.staleAfter
	}

	if m.now().Sub(h.AcquiredAt) > m.staleAfter {
		return true
	}
	hostname, _ := os.Hostname()
	if h.Hostname == hostname && !m.pidAlive(h.PID) {
		return true
	}
	return false
}

// Release removes the lock file if this handle still owns it. Releasing an
// already-released or reclaimed lock is a no-op.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true

	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil // already gone
	}
	var meta holder
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	if meta.PID != h.pid || meta.Hostname != h.hostname || !meta.AcquiredAt.Equal(h.acquired) {
		return nil // reclaimed by someone else, not ours to remove
	}

	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
