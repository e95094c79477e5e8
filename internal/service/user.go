package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"qrbot/internal/domain"
	"qrbot/internal/repository"
)

// ErrInvalidUserRef is returned for references that are neither an id nor
// an @username
var ErrInvalidUserRef = errors.New("invalid user reference")

// UserService handles the user registry
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register adds the sender to the registry. It reports whether the user is
// new and, for new users, the registry size after insertion.
func (s *UserService) Register(sender domain.Sender) (bool, int, error) {
	inserted, err := s.userRepo.AddUser(sender.ID, sender.Username)
	if err != nil {
		return false, 0, fmt.Errorf("add user %d: %w", sender.ID, err)
	}
	if !inserted {
		return false, 0, nil
	}

	count, err := s.userRepo.Count()
	if err != nil {
		return true, 0, fmt.Errorf("count users: %w", err)
	}
	return true, count, nil
}

// Count returns the number of registered users
func (s *UserService) Count() (int, error) {
	return s.userRepo.Count()
}

// Get returns a user or nil when unknown
func (s *UserService) Get(userID int64) (*domain.User, error) {
	return s.userRepo.GetUserByID(userID)
}

// IsPremium checks premium flag
func (s *UserService) IsPremium(userID int64) (bool, error) {
	return s.userRepo.IsPremium(userID)
}

// GrantPremium sets the premium flag. The second return value is false when
// the user is not registered.
func (s *UserService) GrantPremium(userID int64) (bool, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return true, s.userRepo.SetPremium(userID)
}

// Forget removes the user from the registry. The second return value is
// false when the user was not registered.
func (s *UserService) Forget(userID int64) (bool, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return true, s.userRepo.DeleteUser(userID)
}

// ResolveID turns "12345" or "@name" into a user id. A username must belong
// to a registered user; the second return value is false otherwise.
func (s *UserService) ResolveID(ref string) (int64, bool, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, true, nil
	}

	name, ok := strings.CutPrefix(ref, "@")
	if !ok || name == "" || strings.ContainsAny(name, " \t\n") {
		return 0, false, ErrInvalidUserRef
	}

	user, err := s.userRepo.GetUserByUsername(name)
	if err != nil {
		return 0, false, fmt.Errorf("find user @%s: %w", name, err)
	}
	if user == nil {
		return 0, false, nil
	}
	return user.ID, true, nil
}
