package game

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
	"strings"

	"github.com/aaronzipp/sus-server/internal/catalog"
	"github.com/aaronzipp/sus-server/internal/models"
)

// GenerateRoomCode creates a random room code
func GenerateRoomCode() string {
	code := make([]byte, RoomCodeLength)
	for i := range RoomCodeLength {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(RoomCodeChars))))
		if err != nil {
			// fallback to math/rand if crypto fails
			code[i] = RoomCodeChars[rand.IntN(len(RoomCodeChars))]
			continue
		}
		code[i] = RoomCodeChars[n.Int64()]
	}
	return string(code)
}

// UniqueRoomCode generates codes until one is not taken
func UniqueRoomCode(taken func(code string) bool) string {
	for {
		code := GenerateRoomCode()
		if !taken(code) {
			return code
		}
	}
}

// ParseRoomCode validates a caller-supplied room code and upper-cases it
func ParseRoomCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if len(code) != RoomCodeLength {
		return "", Validation("room codes are %d alphanumeric characters", RoomCodeLength)
	}
	for _, c := range code {
		if !isAlphanumeric(c) {
			return "", Validation("room codes are %d alphanumeric characters", RoomCodeLength)
		}
	}
	return strings.ToUpper(code), nil
}

func isAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// NormalizeRules clamps rules to what the catalog can support. Zero values
// fall back to the defaults before clamping.
func NormalizeRules(in models.GameRules, cat *catalog.Catalog) models.GameRules {
	def := models.DefaultRules()
	out := in.Clone()

	if out.MaxPlayers == 0 {
		out.MaxPlayers = def.MaxPlayers
	}
	out.MaxPlayers = clamp(out.MaxPlayers, MinPlayers, max(MinPlayers, cat.MaxCapacity()))

	if out.RoundTimeSeconds == 0 {
		out.RoundTimeSeconds = def.RoundTimeSeconds
	}
	out.RoundTimeSeconds = clamp(out.RoundTimeSeconds, MinRoundSeconds, MaxRoundSeconds)

	if out.LocationPoolSize == 0 {
		out.LocationPoolSize = def.LocationPoolSize
	}
	out.LocationPoolSize = clamp(out.LocationPoolSize, MinLocationPool, max(MinLocationPool, cat.Size()))

	out.QuestionCategories = cat.NormalizeCategories(out.QuestionCategories)
	return out
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// cleanName trims a display name and rejects blank ones
func cleanName(name, what string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Validation("%s is required", what)
	}
	return name, nil
}
