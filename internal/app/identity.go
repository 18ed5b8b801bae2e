package app

import (
	"context"
	"errors"
	"strings"

	"asaa-quiz-service/internal/domain"
)

// ErrUsernameRequired rejects blank registrations before touching the store.
var ErrUsernameRequired = errors.New("username is required")

// reservedAdminName may never be registered as a regular user; authenticating
// it requires the shared access code and always yields the admin role.
const reservedAdminName = "admin"

// IdentityService manages the user directory and the current-session-user
// pointer. Lookups and uniqueness are case-insensitive; stored casing is
// preserved.
type IdentityService struct {
	store       Store
	adminSecret string
}

func NewIdentityService(store Store, adminSecret string) *IdentityService {
	return &IdentityService{store: store, adminSecret: adminSecret}
}

// Register creates a new USER entry and makes it the current session user.
func (s *IdentityService) Register(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, ErrUsernameRequired
	}
	if strings.EqualFold(username, reservedAdminName) {
		return domain.User{}, domain.ErrReservedUsername
	}

	users, err := s.users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if _, ok := findUser(users, username); ok {
		return domain.User{}, domain.ErrDuplicateUsername
	}

	user := domain.User{Username: username, Role: domain.RoleUser}
	users = append(users, user)
	if err := s.store.Set(ctx, KeyUsers, users); err != nil {
		return domain.User{}, err
	}
	if err := s.SetCurrentUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Authenticate signs a user in and makes them the current session user.
// The reserved admin identity is validated against the shared access code and
// granted ADMIN regardless of directory contents; everyone else is looked up
// by name. Directory entries holding the ADMIN role cannot use the plain path.
func (s *IdentityService) Authenticate(ctx context.Context, username, credential string) (domain.User, error) {
	username = strings.TrimSpace(username)

	if strings.EqualFold(username, reservedAdminName) {
		if credential != s.adminSecret {
			return domain.User{}, domain.ErrInvalidCredential
		}
		admin := domain.User{Username: "Admin", Role: domain.RoleAdmin}
		if err := s.saveUser(ctx, admin); err != nil {
			return domain.User{}, err
		}
		if err := s.SetCurrentUser(ctx, admin); err != nil {
			return domain.User{}, err
		}
		return admin, nil
	}

	users, err := s.users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	user, ok := findUser(users, username)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	if user.Role == domain.RoleAdmin {
		return domain.User{}, domain.ErrInvalidCredential
	}
	if err := s.SetCurrentUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// CurrentUser returns the session user, or nil when nobody is signed in.
func (s *IdentityService) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	found, err := s.store.Get(ctx, KeyCurrentUser, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (s *IdentityService) SetCurrentUser(ctx context.Context, user domain.User) error {
	return s.store.Set(ctx, KeyCurrentUser, user)
}

// ClearCurrentUser signs the session out.
func (s *IdentityService) ClearCurrentUser(ctx context.Context) error {
	return s.store.Remove(ctx, KeyCurrentUser)
}

// Lookup finds a directory entry by name, case-insensitively.
func (s *IdentityService) Lookup(ctx context.Context, username string) (domain.User, error) {
	users, err := s.users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	user, ok := findUser(users, username)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// MarkPlayed stamps the user's last-played date. Quiz completion is the only
// caller; the current-user pointer is refreshed when it names the same user.
func (s *IdentityService) MarkPlayed(ctx context.Context, username, date string) error {
	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	user, ok := findUser(users, username)
	if !ok {
		return domain.ErrUserNotFound
	}
	user.LastPlayedDate = date
	if err := s.saveUser(ctx, user); err != nil {
		return err
	}

	current, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if current != nil && strings.EqualFold(current.Username, username) {
		return s.SetCurrentUser(ctx, user)
	}
	return nil
}

func (s *IdentityService) users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if _, err := s.store.Get(ctx, KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// saveUser upserts a directory entry, matching case-insensitively.
func (s *IdentityService) saveUser(ctx context.Context, user domain.User) error {
	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range users {
		if strings.EqualFold(users[i].Username, user.Username) {
			users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, user)
	}
	return s.store.Set(ctx, KeyUsers, users)
}

func findUser(users []domain.User, username string) (domain.User, bool) {
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return domain.User{}, false
}
