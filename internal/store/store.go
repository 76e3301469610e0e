package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/pavelanni/coursework/internal/model"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername is returned when an account name is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

// usersDoc is the on-disk layout of the accounts collection.
type usersDoc struct {
	Users []model.Account `json:"users"`
}

// homeworksDoc is the on-disk layout of the assignments collection.
type homeworksDoc struct {
	Homeworks []model.Assignment `json:"homeworks"`
}

// collection guards one JSON document. The mutex is held for a whole
// load-modify-save cycle so concurrent requests never lose updates.
type collection struct {
	mu   sync.Mutex
	path string
	name string
}

// Store persists accounts and assignments as two JSON documents.
type Store struct {
	fs          afero.Fs
	log         *slog.Logger
	accounts    collection
	assignments collection
}

// New opens the two collections on the OS filesystem, creating any missing
// file. A new accounts file is seeded with the demo accounts.
func New(usersPath, homeworksPath string, log *slog.Logger) (*Store, error) {
	return NewWithFs(afero.NewOsFs(), usersPath, homeworksPath, log)
}

// NewWithFs is New on an arbitrary filesystem.
func NewWithFs(fs afero.Fs, usersPath, homeworksPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		fs:          fs,
		log:         log,
		accounts:    collection{path: usersPath, name: "users"},
		assignments: collection{path: homeworksPath, name: "homeworks"},
	}
	if err := s.initAccounts(); err != nil {
		return nil, fmt.Errorf("init %s: %w", usersPath, err)
	}
	if err := s.initAssignments(); err != nil {
		return nil, fmt.Errorf("init %s: %w", homeworksPath, err)
	}
	return s, nil
}

// seedAccounts are created the first time the accounts file is written.
var seedAccounts = []struct {
	username string
	role     model.UserRole
}{
	{"admin", model.UserRoleAdmin},
	{"teacher1", model.UserRoleTeacher},
	{"student1", model.UserRoleStudent},
	{"student2", model.UserRoleStudent},
}

const seedPassword = "123456"

func (s *Store) initAccounts() error {
	exists, err := fileExists(s.fs, s.accounts.path)
	if err != nil || exists {
		return err
	}
	s.log.Info("accounts file missing, creating", "path", s.accounts.path)

	doc := usersDoc{Users: []model.Account{}}
	if err := writeDocument(s.fs, s.accounts.path, doc); err != nil {
		return err
	}

	now := model.Now()
	for i, seed := range seedAccounts {
		doc.Users = append(doc.Users, model.Account{
			ID:        int64(i + 1),
			Username:  seed.username,
			Password:  seedPassword,
			Role:      seed.role,
			Status:    model.StatusActive,
			CreatedAt: now,
		})
		s.log.Info("seeded account", "username", seed.username, "role", seed.role)
	}
	return writeDocument(s.fs, s.accounts.path, doc)
}

func (s *Store) initAssignments() error {
	exists, err := fileExists(s.fs, s.assignments.path)
	if err != nil || exists {
		return err
	}
	s.log.Info("assignments file missing, creating", "path", s.assignments.path)
	return writeDocument(s.fs, s.assignments.path, homeworksDoc{Homeworks: []model.Assignment{}})
}

// loadAccounts reads the accounts document. An unreadable or invalid file
// yields an empty collection. Callers must hold s.accounts.mu.
func (s *Store) loadAccounts() usersDoc {
	var doc usersDoc
	if err := readDocument(s.fs, s.accounts.path, &doc); err != nil {
		s.log.Error("failed to load collection", "collection", s.accounts.name, "path", s.accounts.path, "error", err)
		return usersDoc{}
	}
	return doc
}

func (s *Store) saveAccounts(doc usersDoc) error {
	if doc.Users == nil {
		doc.Users = []model.Account{}
	}
	if err := writeDocument(s.fs, s.accounts.path, doc); err != nil {
		s.log.Error("failed to save collection", "collection", s.accounts.name, "path", s.accounts.path, "error", err)
		return fmt.Errorf("save %s: %w", s.accounts.name, err)
	}
	return nil
}

// loadAssignments reads the assignments document. Callers must hold
// s.assignments.mu.
func (s *Store) loadAssignments() homeworksDoc {
	var doc homeworksDoc
	if err := readDocument(s.fs, s.assignments.path, &doc); err != nil {
		s.log.Error("failed to load collection", "collection", s.assignments.name, "path", s.assignments.path, "error", err)
		return homeworksDoc{}
	}
	return doc
}

func (s *Store) saveAssignments(doc homeworksDoc) error {
	if doc.Homeworks == nil {
		doc.Homeworks = []model.Assignment{}
	}
	for i := range doc.Homeworks {
		if doc.Homeworks[i].Submissions == nil {
			doc.Homeworks[i].Submissions = []model.Submission{}
		}
	}
	if err := writeDocument(s.fs, s.assignments.path, doc); err != nil {
		s.log.Error("failed to save collection", "collection", s.assignments.name, "path", s.assignments.path, "error", err)
		return fmt.Errorf("save %s: %w", s.assignments.name, err)
	}
	return nil
}

func fileExists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func readDocument(fs afero.Fs, path string, v any) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

// writeDocument replaces path atomically: the document is written to a
// temporary file in the same directory, synced, then renamed over path.
func writeDocument(fs afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer fs.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := fs.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
