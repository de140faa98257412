package store

import "time"

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionText           QuestionType = "TEXT"
)

// Room ids are chosen by the admin (or generated) and handed out to teams,
// so they are strings rather than serials.
type Room struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	IsActive  bool   `gorm:"default:true"`
	CreatedAt time.Time
}

type Team struct {
	ID             int64  `gorm:"primaryKey"`
	Name           string `gorm:"uniqueIndex"`
	PasswordHash   string
	ProfilePicture string
	Slogan         string
	TotalPoints    int `gorm:"default:0"`
	CreatedAt      time.Time
}

// Participation binds a team to a room with a room-scoped point total.
// One row per (team, room).
type Participation struct {
	ID       int64  `gorm:"primaryKey"`
	TeamID   int64  `gorm:"uniqueIndex:idx_team_room"`
	RoomID   string `gorm:"uniqueIndex:idx_team_room"`
	Points   int    `gorm:"default:0"`
	JoinedAt time.Time
}

type Question struct {
	ID            int64  `gorm:"primaryKey"`
	RoomID        string `gorm:"index"`
	Text          string
	QuestionType  QuestionType
	CorrectAnswer string
	Points        int `gorm:"default:1"`
	TimeLimit     *int
	IsActive      bool `gorm:"default:false;index"`
	CreatedAt     time.Time

	Options []QuestionOption `gorm:"foreignKey:QuestionID"`
}

type QuestionOption struct {
	ID           int64  `gorm:"primaryKey"`
	QuestionID   int64  `gorm:"index"`
	OptionLetter string `gorm:"size:1"`
	OptionText   string
}

// Answer holds a team's latest submission for a question. One row per
// (team, question); resubmission overwrites text and verdict.
type Answer struct {
	ID          int64  `gorm:"primaryKey"`
	TeamID      int64  `gorm:"uniqueIndex:idx_team_question"`
	QuestionID  int64  `gorm:"uniqueIndex:idx_team_question"`
	Text        string
	IsCorrect   bool
	SubmittedAt time.Time
}

// Standing is one leaderboard row before rank assignment: the
// participation points joined with the team's display attributes.
type Standing struct {
	TeamID         int64
	TeamName       string
	ProfilePicture string
	Slogan         string
	Points         int
}
