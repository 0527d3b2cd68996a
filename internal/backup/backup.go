// Package backup snapshots the live database into standalone sqlite files and
// restores it from them. Snapshots are database-agnostic: a postgres deployment
// is backed up into the same sqlite layout.
package backup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"teachereval/internal/config"
	"teachereval/internal/database"
	"teachereval/internal/models"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("backup not found")
	ErrInvalidBackup = errors.New("not a valid backup file")
)

const (
	timeLayout = "20060102_150405"
	batchSize  = 500
)

var namePattern = regexp.MustCompile(`^backup_(\d{8}_\d{6})_[0-9a-f]{8}\.db(\.gz)?$`)

// File describes a backup on disk.
type File struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type Manager struct {
	db        *gorm.DB
	dir       string
	retention int
	compress  bool
	now       func() time.Time

	mu sync.Mutex
}

func NewManager(db *gorm.DB, cfg config.BackupConfig) *Manager {
	return &Manager{
		db:        db,
		dir:       cfg.Dir,
		retention: cfg.Retention,
		compress:  cfg.Compress,
		now:       time.Now,
	}
}

// Create writes a snapshot of every table and prunes old backups.
func (m *Manager) Create(ctx context.Context) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	created := m.now().UTC()
	name := fmt.Sprintf("backup_%s_%s.db", created.Format(timeLayout), uuid.NewString()[:8])
	staged := filepath.Join(m.dir, ".staging-"+uuid.NewString()+".db")
	defer os.Remove(staged)

	if err := m.snapshot(ctx, staged); err != nil {
		return nil, err
	}

	if m.compress {
		name += ".gz"
		if err := gzipFile(staged, filepath.Join(m.dir, name)); err != nil {
			return nil, err
		}
	} else if err := os.Rename(staged, filepath.Join(m.dir, name)); err != nil {
		return nil, fmt.Errorf("move backup: %w", err)
	}

	info, err := os.Stat(filepath.Join(m.dir, name))
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}
	log.Printf("Backup created: %s (%d bytes)", name, info.Size())

	if _, err := m.prune(); err != nil {
		log.Printf("Warning: backup cleanup failed: %v", err)
	}
	return &File{Name: name, Size: info.Size(), CreatedAt: created}, nil
}

func (m *Manager) snapshot(ctx context.Context, path string) error {
	snap, err := database.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer database.Close(snap)

	if err := database.Migrate(snap); err != nil {
		return fmt.Errorf("prepare snapshot: %w", err)
	}
	// A single read transaction keeps the copy consistent across tables.
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return copyAll(ctx, tx, snap)
	})
}

// List returns the backups in the directory, newest first.
func (m *Manager) List() ([]File, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		match := namePattern.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		created, err := time.Parse(timeLayout, match[1])
		if err != nil {
			created = info.ModTime().UTC()
		}
		files = append(files, File{Name: e.Name(), Size: info.Size(), CreatedAt: created})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].Name > files[j].Name
	})
	return files, nil
}

// Path resolves a backup name to its file, rejecting anything that is not a
// backup file name.
func (m *Manager) Path(name string) (string, error) {
	if !namePattern.MatchString(name) {
		return "", ErrNotFound
	}
	path := filepath.Join(m.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// Prune deletes all but the newest retention backups and returns how many were removed.
func (m *Manager) Prune() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prune()
}

func (m *Manager) prune() (int, error) {
	if m.retention <= 0 {
		return 0, nil
	}
	files, err := m.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files[min(m.retention, len(files)):] {
		if err := os.Remove(filepath.Join(m.dir, f.Name)); err != nil {
			return removed, fmt.Errorf("remove %s: %w", f.Name, err)
		}
		removed++
	}
	if removed > 0 {
		log.Printf("Removed %d old backup(s)", removed)
	}
	return removed, nil
}

// Restore replaces every row of the live database with the contents of the
// uploaded snapshot. Gzipped uploads are detected by their header. The live
// data is untouched unless the whole copy succeeds.
func (m *Manager) Restore(ctx context.Context, r io.Reader, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	staged := filepath.Join(m.dir, ".restore-"+uuid.NewString()+".db")
	defer os.Remove(staged)

	if err := stage(r, staged); err != nil {
		return err
	}

	snap, err := database.OpenSQLite(staged)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	defer database.Close(snap)

	for _, model := range models.All() {
		if !snap.Migrator().HasTable(model) {
			return fmt.Errorf("%w: missing table for %T", ErrInvalidBackup, model)
		}
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := models.All()
		for i := len(all) - 1; i >= 0; i-- {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
				return fmt.Errorf("clear %T: %w", all[i], err)
			}
		}
		if err := copyAll(ctx, snap, tx); err != nil {
			return err
		}
		return resetSequences(tx)
	})
	if err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	log.Printf("Database restored from %s", name)
	return nil
}

// Schedule runs Create on the given cron spec until the returned cron is stopped.
func (m *Manager) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		f, err := m.Create(context.Background())
		if err != nil {
			log.Printf("Scheduled backup failed: %v", err)
			return
		}
		log.Printf("Scheduled backup done: %s", f.Name)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

// stage writes r to path, gunzipping it when it starts with the gzip magic.
func stage(r io.Reader, path string) error {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		defer zr.Close()
		src = zr
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		if errors.Is(err, gzip.ErrChecksum) || errors.Is(err, gzip.ErrHeader) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		return fmt.Errorf("stage upload: %w", err)
	}
	return out.Close()
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	zw, err := gzip.NewWriterLevel(out, gzip.BestCompression)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("compress backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("compress backup: %w", err)
	}
	return out.Close()
}
