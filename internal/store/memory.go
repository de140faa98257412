package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DoyleJ11/pubquiz-backend/internal/apperr"
)

// MemStore is an in-memory Store. It backs the server when no DATABASE_URL
// is configured and is the fixture for engine tests. A single mutex guards
// every map, so each Store call is atomic, including the multi-row award,
// activate and upsert operations.
type MemStore struct {
	mu             sync.Mutex
	nextTeamID     int64
	nextQuestionID int64
	nextOptionID   int64
	nextAnswerID   int64
	nextPartID     int64

	rooms          map[string]*Room
	teams          map[int64]*Team
	participations map[int64]*Participation
	questions      map[int64]*Question
	options        map[int64]*QuestionOption
	answers        map[int64]*Answer
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		nextTeamID:     1,
		nextQuestionID: 1,
		nextOptionID:   1,
		nextAnswerID:   1,
		nextPartID:     1,
		rooms:          make(map[string]*Room),
		teams:          make(map[int64]*Team),
		participations: make(map[int64]*Participation),
		questions:      make(map[int64]*Question),
		options:        make(map[int64]*QuestionOption),
		answers:        make(map[int64]*Answer),
	}
}

func (s *MemStore) CreateRoom(_ context.Context, room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return apperr.New(apperr.CodeConflict, "room %q already exists", room.ID)
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *MemStore) GetRoom(_ context.Context, id string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "room %q not found", id)
	}
	cp := *room
	return &cp, nil
}

func (s *MemStore) ListRooms(_ context.Context) ([]Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, *r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	return rooms, nil
}

func (s *MemStore) UpdateRoom(_ context.Context, id string, name string, isActive bool) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "room %q not found", id)
	}
	room.Name = name
	room.IsActive = isActive
	cp := *room
	return &cp, nil
}

func (s *MemStore) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return apperr.New(apperr.CodeNotFound, "room %q not found", id)
	}
	delete(s.rooms, id)
	return nil
}

func (s *MemStore) CreateTeam(_ context.Context, team *Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.Name == team.Name {
			return apperr.New(apperr.CodeConflict, "team %q already exists", team.Name)
		}
	}
	team.ID = s.nextTeamID
	s.nextTeamID++
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}
	cp := *team
	s.teams[team.ID] = &cp
	return nil
}

func (s *MemStore) GetTeam(_ context.Context, id int64) (*Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "team %d not found", id)
	}
	cp := *team
	return &cp, nil
}

func (s *MemStore) GetTeamByName(_ context.Context, name string) (*Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "team %q not found", name)
}

func (s *MemStore) UpdateTeam(_ context.Context, id int64, upd TeamUpdate) (*Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "team %d not found", id)
	}
	if upd.Slogan != nil {
		team.Slogan = *upd.Slogan
	}
	if upd.ProfilePicture != nil {
		team.ProfilePicture = *upd.ProfilePicture
	}
	cp := *team
	return &cp, nil
}

func (s *MemStore) GetParticipation(_ context.Context, teamID int64, roomID string) (*Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.findParticipation(teamID, roomID); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, apperr.New(apperr.CodeNotFound, "team %d is not a participant of room %q", teamID, roomID)
}

func (s *MemStore) findParticipation(teamID int64, roomID string) *Participation {
	for _, p := range s.participations {
		if p.TeamID == teamID && p.RoomID == roomID {
			return p
		}
	}
	return nil
}

func (s *MemStore) CreateParticipation(_ context.Context, p *Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findParticipation(p.TeamID, p.RoomID) != nil {
		return apperr.New(apperr.CodeConflict, "team %d already participates in room %q", p.TeamID, p.RoomID)
	}
	p.ID = s.nextPartID
	s.nextPartID++
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	cp := *p
	s.participations[p.ID] = &cp
	return nil
}

func (s *MemStore) CreateQuestion(_ context.Context, q *Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.nextQuestionID
	s.nextQuestionID++
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	for i := range q.Options {
		q.Options[i].ID = s.nextOptionID
		s.nextOptionID++
		q.Options[i].QuestionID = q.ID
		opt := q.Options[i]
		s.options[opt.ID] = &opt
	}
	cp := *q
	cp.Options = nil
	s.questions[q.ID] = &cp
	return nil
}

func (s *MemStore) GetQuestion(_ context.Context, id int64) (*Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "question %d not found", id)
	}
	cp := *q
	return &cp, nil
}

func (s *MemStore) ListQuestions(_ context.Context, roomID string) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var qs []Question
	for _, q := range s.questions {
		if roomID == "" || q.RoomID == roomID {
			qs = append(qs, *q)
		}
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs, nil
}

func (s *MemStore) UpdateQuestion(_ context.Context, id int64, upd QuestionUpdate) (*Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "question %d not found", id)
	}
	if upd.Text != nil {
		q.Text = *upd.Text
	}
	if upd.QuestionType != nil {
		q.QuestionType = *upd.QuestionType
	}
	if upd.CorrectAnswer != nil {
		q.CorrectAnswer = *upd.CorrectAnswer
	}
	if upd.Points != nil {
		q.Points = *upd.Points
	}
	if upd.TimeLimit != nil {
		q.TimeLimit = upd.TimeLimit
	}
	if upd.Options != nil && q.QuestionType == QuestionMultipleChoice {
		for oid, opt := range s.options {
			if opt.QuestionID == id {
				delete(s.options, oid)
			}
		}
		for i := range upd.Options {
			opt := upd.Options[i]
			opt.ID = s.nextOptionID
			s.nextOptionID++
			opt.QuestionID = id
			s.options[opt.ID] = &opt
		}
	}
	cp := *q
	return &cp, nil
}

func (s *MemStore) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return apperr.New(apperr.CodeNotFound, "question %d not found", id)
	}
	delete(s.questions, id)
	for oid, opt := range s.options {
		if opt.QuestionID == id {
			delete(s.options, oid)
		}
	}
	return nil
}

func (s *MemStore) Options(_ context.Context, questionID int64) ([]QuestionOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var opts []QuestionOption
	for _, opt := range s.options {
		if opt.QuestionID == questionID {
			opts = append(opts, *opt)
		}
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].OptionLetter < opts[j].OptionLetter })
	return opts, nil
}

func (s *MemStore) SetQuestionActive(_ context.Context, id int64, active bool) (*Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "question %d not found", id)
	}
	if active {
		for _, other := range s.questions {
			if other.RoomID == q.RoomID && other.ID != id {
				other.IsActive = false
			}
		}
	}
	q.IsActive = active
	cp := *q
	return &cp, nil
}

func (s *MemStore) ActiveQuestion(_ context.Context, roomID string) (*Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questions {
		if q.RoomID == roomID && q.IsActive {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemStore) UpsertAnswer(_ context.Context, a *Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.answers {
		if existing.TeamID == a.TeamID && existing.QuestionID == a.QuestionID {
			existing.Text = a.Text
			existing.IsCorrect = a.IsCorrect
			existing.SubmittedAt = a.SubmittedAt
			*a = *existing
			return nil
		}
	}
	a.ID = s.nextAnswerID
	s.nextAnswerID++
	cp := *a
	s.answers[a.ID] = &cp
	return nil
}

func (s *MemStore) AwardPoints(_ context.Context, teamID int64, roomID string, points int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findParticipation(teamID, roomID)
	if p == nil {
		return 0, 0, apperr.New(apperr.CodeNotFound, "team %d is not a participant of room %q", teamID, roomID)
	}
	team, ok := s.teams[teamID]
	if !ok {
		return 0, 0, apperr.New(apperr.CodeNotFound, "team %d not found", teamID)
	}
	p.Points += points
	team.TotalPoints += points
	return p.Points, team.TotalPoints, nil
}

func (s *MemStore) RoomStandings(_ context.Context, roomID string) ([]Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var standings []Standing
	for _, p := range s.participations {
		if p.RoomID != roomID {
			continue
		}
		team, ok := s.teams[p.TeamID]
		if !ok {
			continue
		}
		standings = append(standings, Standing{
			TeamID:         team.ID,
			TeamName:       team.Name,
			ProfilePicture: team.ProfilePicture,
			Slogan:         team.Slogan,
			Points:         p.Points,
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].TeamID < standings[j].TeamID
	})
	return standings, nil
}

// Answers returns every stored answer for a question, for tests and admin
// inspection.
func (s *MemStore) Answers(questionID int64) []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Answer
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
