package game

import "errors"

var (
	// ErrNotYourTurn is returned when a player acts out of turn.
	ErrNotYourTurn = errors.New("it is not your turn")
	// ErrNotInGame is returned for identities that are not seated.
	ErrNotInGame = errors.New("player is not in this game")
	// ErrAlreadyJoined is returned when a seated player joins again.
	ErrAlreadyJoined = errors.New("player already joined this game")
	// ErrNotMultiplayer is returned when a single-player game is asked to
	// seat someone.
	ErrNotMultiplayer = errors.New("game is not multiplayer")
	// ErrNotOwner is returned for owner-only operations.
	ErrNotOwner = errors.New("only the owner can do that")
	ErrTableFull = errors.New("table is full")
	// ErrRoundInProgress is returned for lobby operations attempted while a
	// round is being played.
	ErrRoundInProgress = errors.New("round already in progress")
	// ErrRoundNotStarted is returned by Hit and Stay before the deal.
	ErrRoundNotStarted = errors.New("round has not started")
	// ErrGameOver is returned once a game has finished or been closed.
	ErrGameOver = errors.New("game is over")
	// ErrSettlementPending is returned while a round waits for Settle.
	ErrSettlementPending = errors.New("previous round is waiting to be settled")
	// ErrSettlementFailed wraps the ledger error that stopped a settlement.
	ErrSettlementFailed = errors.New("settlement failed")
	// ErrNothingToSettle is returned by Settle when no round is pending.
	ErrNothingToSettle = errors.New("nothing to settle")
	ErrTurnOutOfRange  = errors.New("turn index out of range")
)
