package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameNotFinished  = errors.New("game is not finished yet")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")

	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyInRoom   = errors.New("player is already in another room")
	ErrNotInRoom       = errors.New("player is not in this room")
	ErrEmptyRoomName   = errors.New("room name is empty")
	ErrEmptyPlayerName = errors.New("player name is empty")

	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
)
