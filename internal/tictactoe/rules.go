package tictactoe

// WinCombos lists the eight winning lines in scan order: rows, columns, diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Winner returns the mark of the first complete line, or EmptyCell.
func Winner(board Board) Mark {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	return EmptyCell
}

// IsOver reports whether the board holds a winner or is a draw.
func IsOver(board Board) bool {
	return Winner(board) != EmptyCell || board.IsFull()
}

// Status is the human-readable state of a board:
// "Winner: X", "Draw" or "Next player: O".
func Status(board Board, turn Mark) string {
	if winner := Winner(board); winner != EmptyCell {
		return "Winner: " + string(winner)
	}

	if board.IsFull() {
		return "Draw"
	}

	return "Next player: " + string(turn)
}
