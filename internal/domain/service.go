package domain

import (
	"context"
	"strings"

	"github.com/juju/errors"
)

const (
	// ErrIdentityTaken is returned when another owner already registered the key.
	ErrIdentityTaken = errors.ConstError("identity already registered by another owner")
	// ErrIdentityNotFound is returned when an owner has no registered identity.
	ErrIdentityNotFound = errors.ConstError("identity not found")
	// ErrInvalidIdentity is returned for empty keys or owner ids.
	ErrInvalidIdentity = errors.ConstError("invalid identity")
)

// Registration links an owner (the chat user who registered) to a tracked identity.
type Registration struct {
	OwnerID  int64
	Identity Identity
}

// RosterAdmin captures the roster mutations driven by registration front ends.
type RosterAdmin interface {
	Register(ctx context.Context, ownerID int64, key string) error
	Toggle(ctx context.Context, ownerID int64) (bool, error)
	ListRegistrations(ctx context.Context) ([]Registration, error)
}

// Service validates roster administration requests before they reach the store.
type Service struct {
	repo RosterAdmin
}

// NewService constructs a Service.
func NewService(repo RosterAdmin) *Service {
	return &Service{repo: repo}
}

// Register tracks key for ownerID, replacing any identity the owner had before.
// Keys are stored lowercase so lookups are case-insensitive.
func (s *Service) Register(ctx context.Context, ownerID int64, key string) (string, error) {
	normalized := NormalizeKey(key)
	if ownerID <= 0 || normalized == "" {
		return "", errors.Annotatef(ErrInvalidIdentity, "owner %d, key %q", ownerID, key)
	}
	if err := s.repo.Register(ctx, ownerID, normalized); err != nil {
		return "", errors.Trace(err)
	}
	return normalized, nil
}

// Toggle flips whether the owner's matches are announced and returns the new state.
func (s *Service) Toggle(ctx context.Context, ownerID int64) (bool, error) {
	if ownerID <= 0 {
		return false, errors.Annotatef(ErrInvalidIdentity, "owner %d", ownerID)
	}
	enabled, err := s.repo.Toggle(ctx, ownerID)
	if err != nil {
		return false, errors.Trace(err)
	}
	return enabled, nil
}

// List returns every registration.
func (s *Service) List(ctx context.Context) ([]Registration, error) {
	regs, err := s.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return regs, nil
}

// ToggleMessage renders the confirmation shown to an owner after Toggle.
func ToggleMessage(enabled bool) string {
	if enabled {
		return "Your matches will now be shown again"
	}
	return "You will no longer see your matches"
}

// RegisterMessage renders the confirmation shown after a successful Register.
func RegisterMessage(key string) string {
	return "Registered " + strings.TrimSpace(key)
}
