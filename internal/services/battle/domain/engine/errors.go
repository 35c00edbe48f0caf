package engine

import (
	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/phase"
)

var (
	// ErrConfiguration indicates a battlefield that cannot start a battle.
	ErrConfiguration = apperrors.New(apperrors.CodeBattleConfiguration, "battle configuration is invalid")
	// ErrFatal indicates a run aborted by an unrecoverable phase failure.
	ErrFatal = apperrors.New(apperrors.CodeBattleFatal, "battle run aborted")
)

// IsFatal reports whether err aborted a run. Configuration errors are not
// fatal; they prevent the run from starting.
func IsFatal(err error) bool {
	return phase.IsFatal(err)
}

func configurationError(message string, metadata map[string]string, cause error) error {
	return apperrors.WrapWithMetadata(apperrors.CodeBattleConfiguration, message, metadata, cause)
}
