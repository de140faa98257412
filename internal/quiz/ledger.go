package quiz

import (
	"context"

	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

// LeaderboardEntry is one ranked leaderboard row.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	TeamID         int64  `json:"team_id"`
	TeamName       string `json:"team_name"`
	ProfilePicture string `json:"profile_picture"`
	Slogan         string `json:"slogan"`
	Points         int    `json:"points"`
}

// Ledger is the authority on points. Awards go through the store's
// transactional dual increment so room and global totals move together.
type Ledger struct {
	store store.Store
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// Award adds points to the team's room score and global total atomically,
// returning the new values.
func (l *Ledger) Award(ctx context.Context, teamID int64, roomID string, points int) (roomPoints, totalPoints int, err error) {
	return l.store.AwardPoints(ctx, teamID, roomID, points)
}

// Leaderboard ranks the room's teams by points descending, team id ascending.
// Ranks are sequential even across ties, matching how clients already render
// the board; with unchanged points two calls return identical output.
func (l *Ledger) Leaderboard(ctx context.Context, roomID string) ([]LeaderboardEntry, error) {
	standings, err := l.store.RoomStandings(ctx, roomID)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(standings))
	for i, s := range standings {
		entries = append(entries, LeaderboardEntry{
			Rank:           i + 1,
			TeamID:         s.TeamID,
			TeamName:       s.TeamName,
			ProfilePicture: s.ProfilePicture,
			Slogan:         s.Slogan,
			Points:         s.Points,
		})
	}
	return entries, nil
}
