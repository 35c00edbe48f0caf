// Package errors defines coded errors shared by the battle engine, the
// scenario loader, storage and the HTTP API.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown marks errors that carry no code; the API reports them as 500.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Scenario errors
	CodeScenarioInvalid Code = "SCENARIO_INVALID"

	// Battle errors
	CodeBattleConfiguration Code = "BATTLE_CONFIGURATION"
	CodeBattleFatal         Code = "BATTLE_FATAL"
	CodeEntityNotFound      Code = "ENTITY_NOT_FOUND"
	CodeEntityDuplicate     Code = "ENTITY_DUPLICATE"
	CodeVictorAlreadySet    Code = "VICTOR_ALREADY_SET"

	// Dice errors
	CodeDiceInvalidExpr Code = "DICE_INVALID_EXPR"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidRequest,
		CodeScenarioInvalid,
		CodeBattleConfiguration,
		CodeDiceInvalidExpr:
		return http.StatusBadRequest
	case CodeEntityDuplicate,
		CodeVictorAlreadySet:
		return http.StatusConflict
	case CodeNotFound,
		CodeEntityNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
