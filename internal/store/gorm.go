package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/DoyleJ11/pubquiz-backend/internal/apperr"
)

type gormStore struct {
	db *gorm.DB
}

// Open connects to Postgres with the given DSN and runs auto-migrations for
// the core tables.
func Open(dsn string) (Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&Room{},
		&Team{},
		&Participation{},
		&Question{},
		&QuestionOption{},
		&Answer{},
	); err != nil {
		return nil, err
	}
	return &gormStore{db: db}, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.CodeNotFound, format, args...)
	}
	return err
}

func (s *gormStore) CreateRoom(ctx context.Context, room *Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	var existing Room
	err := s.db.WithContext(ctx).First(&existing, "id = ?", room.ID).Error
	if err == nil {
		return apperr.New(apperr.CodeConflict, "room %q already exists", room.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Create(room).Error
}

func (s *gormStore) GetRoom(ctx context.Context, id string) (*Room, error) {
	var room Room
	if err := s.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "room %q not found", id)
	}
	return &room, nil
}

func (s *gormStore) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *gormStore) UpdateRoom(ctx context.Context, id string, name string, isActive bool) (*Room, error) {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	room.Name = name
	room.IsActive = isActive
	if err := s.db.WithContext(ctx).Save(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

func (s *gormStore) DeleteRoom(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Room{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, "room %q not found", id)
	}
	return nil
}

func (s *gormStore) CreateTeam(ctx context.Context, team *Team) error {
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(team).Error
}

func (s *gormStore) GetTeam(ctx context.Context, id int64) (*Team, error) {
	var team Team
	if err := s.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return nil, notFound(err, "team %d not found", id)
	}
	return &team, nil
}

func (s *gormStore) GetTeamByName(ctx context.Context, name string) (*Team, error) {
	var team Team
	if err := s.db.WithContext(ctx).First(&team, "name = ?", name).Error; err != nil {
		return nil, notFound(err, "team %q not found", name)
	}
	return &team, nil
}

func (s *gormStore) UpdateTeam(ctx context.Context, id int64, upd TeamUpdate) (*Team, error) {
	team, err := s.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Slogan != nil {
		team.Slogan = *upd.Slogan
	}
	if upd.ProfilePicture != nil {
		team.ProfilePicture = *upd.ProfilePicture
	}
	if err := s.db.WithContext(ctx).Save(team).Error; err != nil {
		return nil, err
	}
	return team, nil
}

func (s *gormStore) GetParticipation(ctx context.Context, teamID int64, roomID string) (*Participation, error) {
	var p Participation
	err := s.db.WithContext(ctx).
		First(&p, "team_id = ? AND room_id = ?", teamID, roomID).Error
	if err != nil {
		return nil, notFound(err, "team %d is not a participant of room %q", teamID, roomID)
	}
	return &p, nil
}

func (s *gormStore) CreateParticipation(ctx context.Context, p *Participation) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormStore) CreateQuestion(ctx context.Context, q *Question) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(q).Error
}

func (s *gormStore) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	var q Question
	if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, notFound(err, "question %d not found", id)
	}
	return &q, nil
}

func (s *gormStore) ListQuestions(ctx context.Context, roomID string) ([]Question, error) {
	var qs []Question
	tx := s.db.WithContext(ctx).Order("id")
	if roomID != "" {
		tx = tx.Where("room_id = ?", roomID)
	}
	if err := tx.Find(&qs).Error; err != nil {
		return nil, err
	}
	return qs, nil
}

func (s *gormStore) UpdateQuestion(ctx context.Context, id int64, upd QuestionUpdate) (*Question, error) {
	var updated *Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q Question
		if err := tx.First(&q, id).Error; err != nil {
			return notFound(err, "question %d not found", id)
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
		if err := tx.Save(&q).Error; err != nil {
			return err
		}
		if upd.Options != nil && q.QuestionType == QuestionMultipleChoice {
			if err := tx.Delete(&QuestionOption{}, "question_id = ?", id).Error; err != nil {
				return err
			}
			for i := range upd.Options {
				upd.Options[i].ID = 0
				upd.Options[i].QuestionID = id
			}
			if err := tx.Create(&upd.Options).Error; err != nil {
				return err
			}
		}
		updated = &q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *gormStore) DeleteQuestion(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&Question{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.CodeNotFound, "question %d not found", id)
		}
		return tx.Delete(&QuestionOption{}, "question_id = ?", id).Error
	})
}

func (s *gormStore) Options(ctx context.Context, questionID int64) ([]QuestionOption, error) {
	var opts []QuestionOption
	err := s.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("option_letter").
		Find(&opts).Error
	if err != nil {
		return nil, err
	}
	return opts, nil
}

func (s *gormStore) SetQuestionActive(ctx context.Context, id int64, active bool) (*Question, error) {
	var updated *Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q Question
		if err := tx.First(&q, id).Error; err != nil {
			return notFound(err, "question %d not found", id)
		}
		if active {
			// Deactivating the siblings in the same transaction keeps the
			// one-active-question-per-room invariant under concurrent calls.
			err := tx.Model(&Question{}).
				Where("room_id = ? AND id <> ?", q.RoomID, id).
				Update("is_active", false).Error
			if err != nil {
				return err
			}
		}
		q.IsActive = active
		if err := tx.Save(&q).Error; err != nil {
			return err
		}
		updated = &q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *gormStore) ActiveQuestion(ctx context.Context, roomID string) (*Question, error) {
	var q Question
	err := s.db.WithContext(ctx).
		First(&q, "room_id = ? AND is_active = ?", roomID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *gormStore) UpsertAnswer(ctx context.Context, a *Answer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Answer
		err := tx.First(&existing, "team_id = ? AND question_id = ?", a.TeamID, a.QuestionID).Error
		if err == nil {
			existing.Text = a.Text
			existing.IsCorrect = a.IsCorrect
			existing.SubmittedAt = a.SubmittedAt
			*a = existing
			return tx.Save(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(a).Error
	})
}

func (s *gormStore) AwardPoints(ctx context.Context, teamID int64, roomID string, points int) (int, int, error) {
	var roomPoints, totalPoints int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// In-place increments so concurrent awards to the same team
		// serialize at row level instead of losing updates.
		res := tx.Model(&Participation{}).
			Where("team_id = ? AND room_id = ?", teamID, roomID).
			Update("points", gorm.Expr("points + ?", points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.CodeNotFound, "team %d is not a participant of room %q", teamID, roomID)
		}
		res = tx.Model(&Team{}).
			Where("id = ?", teamID).
			Update("total_points", gorm.Expr("total_points + ?", points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.CodeNotFound, "team %d not found", teamID)
		}
		var p Participation
		if err := tx.First(&p, "team_id = ? AND room_id = ?", teamID, roomID).Error; err != nil {
			return err
		}
		var team Team
		if err := tx.First(&team, teamID).Error; err != nil {
			return err
		}
		roomPoints = p.Points
		totalPoints = team.TotalPoints
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return roomPoints, totalPoints, nil
}

func (s *gormStore) RoomStandings(ctx context.Context, roomID string) ([]Standing, error) {
	var standings []Standing
	err := s.db.WithContext(ctx).
		Table("participations").
		Select("teams.id AS team_id, teams.name AS team_name, teams.profile_picture, teams.slogan, participations.points").
		Joins("JOIN teams ON teams.id = participations.team_id").
		Where("participations.room_id = ?", roomID).
		Order("participations.points DESC, teams.id ASC").
		Scan(&standings).Error
	if err != nil {
		return nil, err
	}
	return standings, nil
}
