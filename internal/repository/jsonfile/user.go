package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"qrbot/internal/domain"

	"go.uber.org/zap"
)

// document is the on-disk layout: {"users": [...]}
type document struct {
	Users []json.RawMessage `json:"users"`
}

type storedDocument struct {
	Users []domain.User `json:"users"`
}

// record is decoded per entry so one bad entry does not poison the file.
// Only id is required; the other fields fall back to zero values when they
// are missing or of the wrong type.
type record struct {
	ID        *int64          `json:"id"`
	Username  json.RawMessage `json:"username"`
	IsPremium json.RawMessage `json:"is_premium"`
}

func (rec record) user() domain.User {
	u := domain.User{ID: *rec.ID}
	_ = json.Unmarshal(rec.Username, &u.Username)
	_ = json.Unmarshal(rec.IsPremium, &u.IsPremium)
	return u
}

// UserRepo implements repository.UserRepository on a single JSON file.
// Every call reads the whole file and every mutation rewrites it, all under
// one mutex.
type UserRepo struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// NewUserRepo creates a file-backed user registry
func NewUserRepo(path string, logger *zap.Logger) *UserRepo {
	return &UserRepo{
		path:   path,
		logger: logger,
	}
}

// AddUser inserts the user unless the id is already registered
func (r *UserRepo) AddUser(userID int64, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.load()
	for _, u := range users {
		if u.ID == userID {
			return false, nil
		}
	}

	users = append(users, domain.User{ID: userID, Username: username})
	if err := r.save(users); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteUser removes the user if present
func (r *UserRepo) DeleteUser(userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.load()
	kept := users[:0]
	for _, u := range users {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	return r.save(kept)
}

// GetUserByID returns the user or nil when absent
func (r *UserRepo) GetUserByID(userID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.load() {
		if u.ID == userID {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

// GetUserByUsername returns the first user with the given username or nil
func (r *UserRepo) GetUserByUsername(username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.load() {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

// Count returns the number of registered users
func (r *UserRepo) Count() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.load()), nil
}

// ListUserIDs returns ids in insertion order
func (r *UserRepo) ListUserIDs() ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.load()
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// IsPremium reports the premium flag, false for unknown users
func (r *UserRepo) IsPremium(userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.load() {
		if u.ID == userID {
			return u.IsPremium, nil
		}
	}
	return false, nil
}

// SetPremium marks the user as premium; unknown users are ignored
func (r *UserRepo) SetPremium(userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.load()
	for i := range users {
		if users[i].ID == userID {
			if users[i].IsPremium {
				return nil
			}
			users[i].IsPremium = true
			return r.save(users)
		}
	}
	return nil
}

// load reads the registry. Missing, empty or corrupt files are replaced
// with an empty registry. Malformed and duplicate entries are skipped.
// Caller must hold r.mu.
func (r *UserRepo) load() []domain.User {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		r.logger.Info("Registry file not found, creating", zap.String("path", r.path))
		r.reset()
		return nil
	}
	if err != nil {
		r.logger.Error("Failed to read registry, reinitializing",
			zap.String("path", r.path),
			zap.Error(err),
		)
		r.reset()
		return nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		r.reset()
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		r.logger.Error("Registry file is corrupt, reinitializing",
			zap.String("path", r.path),
			zap.Error(err),
		)
		r.reset()
		return nil
	}

	users := make([]domain.User, 0, len(doc.Users))
	seen := make(map[int64]struct{}, len(doc.Users))
	for i, raw := range doc.Users {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == nil {
			r.logger.Warn("Skipping malformed registry entry",
				zap.Int("index", i),
				zap.ByteString("entry", raw),
			)
			continue
		}
		if _, dup := seen[*rec.ID]; dup {
			r.logger.Warn("Skipping duplicate registry entry", zap.Int64("user_id", *rec.ID))
			continue
		}
		seen[*rec.ID] = struct{}{}
		users = append(users, rec.user())
	}

	return users
}

// reset rewrites the file as an empty registry. A failed write is logged
// only; the next mutation will surface it.
func (r *UserRepo) reset() {
	if err := r.save(nil); err != nil {
		r.logger.Error("Failed to reinitialize registry",
			zap.String("path", r.path),
			zap.Error(err),
		)
	}
}

// save replaces the registry file atomically via a temp file and rename
func (r *UserRepo) save(users []domain.User) error {
	if users == nil {
		users = []domain.User{}
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(storedDocument{Users: users}); err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush registry: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp registry file: %w", err)
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("replace registry file: %w", err)
	}
	success = true
	return nil
}
