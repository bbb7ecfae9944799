package game

const (
	// MinPlayers is the minimum number of players required to start a round
	MinPlayers = 3

	// MinRoundSeconds and MaxRoundSeconds bound the round duration hint
	MinRoundSeconds = 30
	MaxRoundSeconds = 600

	// MinLocationPool is the smallest location pool a room may cycle through
	MinLocationPool = 1

	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 4

	// RoomCodeChars are the characters used for generating room codes
	RoomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultEventBuffer is the per-room event bus capacity
	DefaultEventBuffer = 32
)
