package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
)

const (
	HistoryDir       = "history"
	latestSuffix     = "_latest.json"
	snapshotLayout   = "20060102T150405Z"
	maxSnapshotTries = 100
)

// FileStore keeps one manifest per network under the deployments directory:
// <network>_latest.json plus immutable snapshots in history/.
type FileStore struct {
	dir    string
	dryRun bool
	now    func() time.Time
	log    *slog.Logger
	mu     sync.RWMutex
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string, dryRun bool, log *slog.Logger) *FileStore {
	return &FileStore{
		dir:    dir,
		dryRun: dryRun,
		now:    time.Now,
		log:    log.With("component", "ledger"),
	}
}

// NewFileStoreFromConfig creates a FileStore from RuntimeConfig
func NewFileStoreFromConfig(cfg *config.RuntimeConfig, log *slog.Logger) *FileStore {
	return NewFileStore(cfg.DeploymentsDir, cfg.DryRun, log)
}

// LatestPath returns the manifest path for network
func (s *FileStore) LatestPath(network models.Network) string {
	return filepath.Join(s.dir, string(network)+latestSuffix)
}

// Load reads the latest manifest. A missing file, or reset, yields an empty ledger.
// A file that exists but does not parse is an error, never an empty ledger.
func (s *FileStore) Load(ctx context.Context, network models.Network, reset bool) (*models.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if reset {
		s.log.Debug("reset requested, starting from an empty ledger", "network", network)
		return models.NewLedger(network), nil
	}

	path := s.LatestPath(network)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewLedger(network), nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var l models.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, &domain.CorruptLedgerError{Path: path, Err: err}
	}
	if l.Network != network {
		return nil, &domain.CorruptLedgerError{
			Path: path,
			Err:  fmt.Errorf("manifest is for network %q", l.Network),
		}
	}
	s.log.Debug("loaded ledger", "network", network, "contracts", l.Len())
	return &l, nil
}

// Export writes the latest manifest atomically and, when the ledger changed,
// a new history snapshot. Export does nothing in dry-run mode.
func (s *FileStore) Export(ctx context.Context, l *models.Ledger) (*models.ExportResult, error) {
	if s.dryRun {
		s.log.Info("dry run, ledger not written", "network", l.Network)
		return &models.ExportResult{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(s.dir, HistoryDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create deployments directory: %w", err)
	}

	now := s.now().UTC()
	dirty := l.IsDirty()
	if dirty || l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger: %w", err)
	}
	data = append(data, '\n')

	result := &models.ExportResult{LatestPath: s.LatestPath(l.Network)}
	if err := writeAtomic(result.LatestPath, data); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", result.LatestPath, err)
	}

	if dirty {
		snapshot, err := s.writeSnapshot(l.Network, now, data)
		if err != nil {
			return nil, err
		}
		result.SnapshotPath = snapshot
		l.MarkClean()
	}

	s.log.Info("exported ledger", "network", l.Network, "latest", result.LatestPath, "snapshot", result.SnapshotPath)
	return result, nil
}

// writeSnapshot creates a new history file; existing snapshots are never overwritten
func (s *FileStore) writeSnapshot(network models.Network, at time.Time, data []byte) (string, error) {
	base := fmt.Sprintf("%s_%s", network, at.Format(snapshotLayout))
	for i := 0; i < maxSnapshotTries; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(s.dir, HistoryDir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create snapshot: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write snapshot: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to sync snapshot: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to allocate snapshot name for %s", base)
}

// writeAtomic writes to a temp file in the same directory, fsyncs and renames
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpPath, path)
}

var _ usecase.LedgerStore = (*FileStore)(nil)
