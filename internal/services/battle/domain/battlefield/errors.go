package battlefield

import (
	"errors"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
)

var (
	// ErrEntityNotFound indicates an entity that is not on the battlefield.
	ErrEntityNotFound = apperrors.New(apperrors.CodeEntityNotFound, "entity not found")
	// ErrDuplicate indicates a team, force or entity id that is already in use.
	ErrDuplicate = apperrors.New(apperrors.CodeEntityDuplicate, "id already in use")
	// ErrVictorAlreadySet indicates a second attempt to decide the battle.
	ErrVictorAlreadySet = apperrors.New(apperrors.CodeVictorAlreadySet, "battle is already decided")
	// ErrIDRequired indicates a missing id.
	ErrIDRequired = errors.New("id is required")
	// ErrUnknownTeam indicates a team id with no registered team.
	ErrUnknownTeam = errors.New("unknown team")
	// ErrNoHealth indicates an entity placed with zero or negative health.
	ErrNoHealth = errors.New("entity has no health")
	// ErrMembership indicates an entity whose force or team cannot be resolved.
	ErrMembership = errors.New("entity membership is inconsistent")
)
