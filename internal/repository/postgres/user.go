package postgres

import (
	"database/sql"

	"qrbot/internal/domain"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// AddUser registers user if not exists, reports whether a row was inserted
func (r *UserRepo) AddUser(userID int64, username string) (bool, error) {
	query := `
		INSERT INTO users (user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	res, err := r.db.Exec(query, userID, username)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeleteUser removes user if exists
func (r *UserRepo) DeleteUser(userID int64) error {
	_, err := r.db.Exec(`DELETE FROM users WHERE user_id = $1`, userID)
	return err
}

// GetUserByID returns user or nil if not found
func (r *UserRepo) GetUserByID(userID int64) (*domain.User, error) {
	query := `SELECT user_id, username, is_premium FROM users WHERE user_id = $1`
	return r.scanUser(r.db.QueryRow(query, userID))
}

// GetUserByUsername returns the earliest registered user with username
func (r *UserRepo) GetUserByUsername(username string) (*domain.User, error) {
	query := `
		SELECT user_id, username, is_premium
		FROM users
		WHERE username = $1
		ORDER BY created_at, user_id
		LIMIT 1
	`
	return r.scanUser(r.db.QueryRow(query, username))
}

// Count returns total number of users
func (r *UserRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// ListUserIDs returns ids in registration order
func (r *UserRepo) ListUserIDs() ([]int64, error) {
	rows, err := r.db.Query(`SELECT user_id FROM users ORDER BY created_at, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// IsPremium checks premium flag
func (r *UserRepo) IsPremium(userID int64) (bool, error) {
	var premium bool
	query := `SELECT is_premium FROM users WHERE user_id = $1`
	err := r.db.QueryRow(query, userID).Scan(&premium)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return premium, nil
}

// SetPremium marks user as premium, no-op for unknown users
func (r *UserRepo) SetPremium(userID int64) error {
	_, err := r.db.Exec(`UPDATE users SET is_premium = TRUE WHERE user_id = $1`, userID)
	return err
}

func (r *UserRepo) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.IsPremium)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}
