package repository

import "qrbot/internal/domain"

// UserRepository defines registry operations. Implementations must
// serialize mutations so concurrent calls never corrupt the store.
type UserRepository interface {
	AddUser(userID int64, username string) (bool, error)
	DeleteUser(userID int64) error
	GetUserByID(userID int64) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	Count() (int, error)
	ListUserIDs() ([]int64, error)
	IsPremium(userID int64) (bool, error)
	SetPremium(userID int64) error
}
