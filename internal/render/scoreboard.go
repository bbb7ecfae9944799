package render

import (
	"sort"
	"strings"

	"github.com/aaronzipp/sus-server/internal/models"
)

// Scoreboard orders players by total wins descending, then name ascending
func Scoreboard(players []*models.Player) []models.ScoreEntry {
	entries := make([]models.ScoreEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, models.ScoreEntry{
			PlayerID:     p.ID,
			Name:         p.Name,
			CrewWins:     p.CrewWins,
			ImpostorWins: p.ImpostorWins,
			TotalWins:    p.TotalWins(),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalWins != entries[j].TotalWins {
			return entries[i].TotalWins > entries[j].TotalWins
		}
		ni, nj := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if ni != nj {
			return ni < nj
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	return entries
}
