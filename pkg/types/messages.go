// Package types defines the wire shapes exchanged with quiz clients over the
// room websocket. Field names are part of the client contract.
package types

import (
	"github.com/DoyleJ11/pubquiz-backend/internal/quiz"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

// Client -> Server
//
// chat:
//   message: string
//
// answer:
//   question_id: number
//   answer: string
//
// Anything that does not parse as one of the above is treated as a plain
// chat message containing the raw payload.
type ClientMessage struct {
	Type       string `json:"type"`
	Message    string `json:"message,omitempty"`
	QuestionID int64  `json:"question_id,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

// TeamInfo is sent privately to a session right after it connects.
type TeamInfo struct {
	Type           string `json:"type"` // "team_info"
	TeamID         int64  `json:"team_id"`
	TeamName       string `json:"team_name"`
	ProfilePicture string `json:"profile_picture"`
	Slogan         string `json:"slogan"`
	RoomPoints     int    `json:"room_points"`
	TotalPoints    int    `json:"total_points"`
}

// SystemMessage announces joins and leaves to the whole room.
type SystemMessage struct {
	Type    string `json:"type"` // "system_message"
	Message string `json:"message"`
}

// Chat carries a team's chat line to the whole room.
type Chat struct {
	Type           string `json:"type"` // "chat"
	TeamID         int64  `json:"team_id"`
	TeamName       string `json:"team_name"`
	ProfilePicture string `json:"profile_picture"`
	Message        string `json:"message"`
}

// Leaderboard is the ranked board; "leaderboard" when sent privately on
// connect, "leaderboard_update" when broadcast after a score change.
type Leaderboard struct {
	Type        string                  `json:"type"`
	Leaderboard []quiz.LeaderboardEntry `json:"leaderboard"`
}

type QuestionOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question presents an open question to clients. The correct answer is never
// included; options only appear for multiple-choice.
type Question struct {
	Type         string           `json:"type"` // "question"
	ID           int64            `json:"id"`
	Text         string           `json:"text"`
	QuestionType string           `json:"question_type"`
	Points       int              `json:"points"`
	TimeLimit    *int             `json:"time_limit"`
	Options      []QuestionOption `json:"options,omitempty"`
}

// NewQuestion builds the client payload for a question from its stored form.
// Pass the question's options for multiple-choice; they are ignored for
// free-text.
func NewQuestion(q *store.Question, options []store.QuestionOption) Question {
	msg := Question{
		Type:         "question",
		ID:           q.ID,
		Text:         q.Text,
		QuestionType: string(q.QuestionType),
		Points:       q.Points,
		TimeLimit:    q.TimeLimit,
	}
	if q.QuestionType == store.QuestionMultipleChoice {
		for _, opt := range options {
			msg.Options = append(msg.Options, QuestionOption{
				Letter: opt.OptionLetter,
				Text:   opt.OptionText,
			})
		}
	}
	return msg
}

// AnswerResult is the private verdict on a submission. Correct results carry
// points_earned and the new room total; incorrect ones carry the correct
// answer's text instead.
type AnswerResult struct {
	Type          string `json:"type"` // "answer_result"
	Correct       bool   `json:"correct"`
	PointsEarned  int    `json:"points_earned,omitempty"`
	TotalPoints   int    `json:"total_points,omitempty"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}
