// Package store is the durable side of the backend: rooms, teams,
// participations, questions and answers, plus the handful of multi-row
// operations the session engine needs to be atomic.
package store

import "context"

// TeamUpdate enumerates the team fields a caller may change. Nil fields are
// left untouched.
type TeamUpdate struct {
	Slogan         *string
	ProfilePicture *string
}

// QuestionUpdate enumerates the question fields a caller may change. Nil
// fields are left untouched; Options non-nil replaces the full option set.
type QuestionUpdate struct {
	Text          *string
	QuestionType  *QuestionType
	CorrectAnswer *string
	Points        *int
	TimeLimit     *int
	Options       []QuestionOption
}

type Store interface {
	// Rooms.
	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	UpdateRoom(ctx context.Context, id string, name string, isActive bool) (*Room, error)
	DeleteRoom(ctx context.Context, id string) error

	// Teams.
	CreateTeam(ctx context.Context, team *Team) error
	GetTeam(ctx context.Context, id int64) (*Team, error)
	GetTeamByName(ctx context.Context, name string) (*Team, error)
	UpdateTeam(ctx context.Context, id int64, upd TeamUpdate) (*Team, error)

	// Participations.
	GetParticipation(ctx context.Context, teamID int64, roomID string) (*Participation, error)
	CreateParticipation(ctx context.Context, p *Participation) error

	// Questions.
	CreateQuestion(ctx context.Context, q *Question) error
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	ListQuestions(ctx context.Context, roomID string) ([]Question, error)
	UpdateQuestion(ctx context.Context, id int64, upd QuestionUpdate) (*Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	Options(ctx context.Context, questionID int64) ([]QuestionOption, error)

	// SetQuestionActive flips the question's activity flag. Activating also
	// deactivates every sibling question in the same room, in the same
	// transaction, so at most one question per room is ever active.
	SetQuestionActive(ctx context.Context, id int64, active bool) (*Question, error)

	// ActiveQuestion returns the room's active question, or nil if none.
	ActiveQuestion(ctx context.Context, roomID string) (*Question, error)

	// UpsertAnswer records a team's submission, overwriting any previous
	// answer for the same (team, question) pair.
	UpsertAnswer(ctx context.Context, a *Answer) error

	// AwardPoints increments the team's room points and global total by the
	// same delta in one transaction, returning the new values.
	AwardPoints(ctx context.Context, teamID int64, roomID string, points int) (roomPoints, totalPoints int, err error)

	// RoomStandings returns the room's participations joined with team
	// display attributes, ordered by points descending then team id
	// ascending.
	RoomStandings(ctx context.Context, roomID string) ([]Standing, error)
}
