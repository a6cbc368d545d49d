package realtycms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const userKind Kind = "user"

// UserService manages the user profiles that back admin checks.
type UserService struct {
	users UserRepository
	now   func() time.Time
}

// NewUserService creates a user service.
func NewUserService(users UserRepository) (*UserService, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &UserService{users: users, now: time.Now}, nil
}

// Register creates a non-admin profile. Admin rights are only granted through
// CreateUser or SetAdmin.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest) (*User, error) {
	return s.CreateUser(ctx, CreateUserRequest{RegisterUserRequest: req})
}

// CreateUser creates a user, optionally with admin rights.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	const op = "create"
	if err := validateStruct(req); err != nil {
		return nil, newError(userKind, op, err, validationMessage(err))
	}
	if _, err := s.users.GetUserByUID(ctx, req.UID); err == nil {
		return nil, newError(userKind, op, ErrDuplicateUser, "User already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, newError(userKind, op, err, "")
	}

	now := s.now().UTC()
	user := &User{
		ID:          uuid.New(),
		UID:         req.UID,
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		ProviderID:  req.ProviderID,
		IsAdmin:     req.IsAdmin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, newError(userKind, op, err, "User already exists")
		}
		return nil, newError(userKind, op, err, "")
	}
	return user, nil
}

// UpsertProviderUser creates or refreshes the profile of a user signing in
// through an identity provider.
func (s *UserService) UpsertProviderUser(ctx context.Context, req RegisterUserRequest) (*User, error) {
	const op = "upsert"
	if err := validateStruct(req); err != nil {
		return nil, newError(userKind, op, err, validationMessage(err))
	}
	user, err := s.users.GetUserByUID(ctx, req.UID)
	if errors.Is(err, ErrNotFound) {
		return s.CreateUser(ctx, CreateUserRequest{RegisterUserRequest: req})
	}
	if err != nil {
		return nil, newError(userKind, op, err, "")
	}

	user.Email = req.Email
	user.DisplayName = firstNonEmpty(req.DisplayName, user.DisplayName)
	user.PhotoURL = firstNonEmpty(req.PhotoURL, user.PhotoURL)
	user.ProviderID = firstNonEmpty(req.ProviderID, user.ProviderID)
	user.UpdatedAt = s.now().UTC()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, newError(userKind, op, err, "")
	}
	return user, nil
}

// GetByUID returns the user with the given external id.
func (s *UserService) GetByUID(ctx context.Context, uid string) (*User, error) {
	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(userKind, "get", err, "User not found")
		}
		return nil, newError(userKind, "get", err, "")
	}
	return user, nil
}

// GetByUsername returns the user with the given username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(userKind, "get", err, "User not found")
		}
		return nil, newError(userKind, "get", err, "")
	}
	return user, nil
}

// SetAdmin grants or revokes admin rights.
func (s *UserService) SetAdmin(ctx context.Context, username string, admin bool) (*User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	user.IsAdmin = admin
	user.UpdatedAt = s.now().UTC()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, newError(userKind, "set_admin", err, "")
	}
	return user, nil
}
