package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pubquiz-backend/internal/apperr"
	"github.com/DoyleJ11/pubquiz-backend/internal/auth"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
	"github.com/DoyleJ11/pubquiz-backend/pkg/types"
)

type roomView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type teamView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	Slogan         string `json:"slogan"`
	TotalPoints    int    `json:"total_points"`
}

type optionView struct {
	OptionLetter string `json:"option_letter"`
	OptionText   string `json:"option_text"`
}

type questionView struct {
	ID            int64        `json:"id"`
	RoomID        string       `json:"room_id"`
	Text          string       `json:"text"`
	QuestionType  string       `json:"question_type"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
	TimeLimit     *int         `json:"time_limit"`
	IsActive      bool         `json:"is_active"`
	Options       []optionView `json:"options,omitempty"`
}

func newRoomView(r *store.Room) roomView {
	return roomView{
		ID:        r.ID,
		Name:      r.Name,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func newTeamView(t *store.Team) teamView {
	return teamView{
		ID:             t.ID,
		Name:           t.Name,
		ProfilePicture: t.ProfilePicture,
		Slogan:         t.Slogan,
		TotalPoints:    t.TotalPoints,
	}
}

func newQuestionView(q *store.Question, options []store.QuestionOption) questionView {
	view := questionView{
		ID:            q.ID,
		RoomID:        q.RoomID,
		Text:          q.Text,
		QuestionType:  string(q.QuestionType),
		CorrectAnswer: q.CorrectAnswer,
		Points:        q.Points,
		TimeLimit:     q.TimeLimit,
		IsActive:      q.IsActive,
	}
	for _, opt := range options {
		view.Options = append(view.Options, optionView{
			OptionLetter: opt.OptionLetter,
			OptionText:   opt.OptionText,
		})
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		writeJSON(w, apperr.HTTPStatus(err), map[string]string{"error": e.Message})
		return
	}
	a.Log.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// Login admits a team to a room: the room must exist, a known team name must
// present the right password, and an unknown name registers a new team. The
// first login to a room creates the team's participation there.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   string `json:"room_id"`
		TeamName string `json:"team_name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperr.New(apperr.CodeInvalid, "invalid request body"))
		return
	}
	if req.RoomID == "" || req.TeamName == "" || req.Password == "" {
		a.writeError(w, apperr.New(apperr.CodeInvalid, "room_id, team_name and password are required"))
		return
	}
	ctx := r.Context()

	room, err := a.Store.GetRoom(ctx, req.RoomID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	team, err := a.Store.GetTeamByName(ctx, req.TeamName)
	switch {
	case err == nil:
		if !auth.CheckPassword(team.PasswordHash, req.Password) {
			a.writeError(w, apperr.New(apperr.CodeUnauthorized, "invalid password for the existing team"))
			return
		}
	case apperr.IsNotFound(err):
		hash, hashErr := auth.HashPassword(req.Password)
		if hashErr != nil {
			a.writeError(w, hashErr)
			return
		}
		team = &store.Team{Name: req.TeamName, PasswordHash: hash}
		if err := a.Store.CreateTeam(ctx, team); err != nil {
			a.writeError(w, err)
			return
		}
	default:
		a.writeError(w, err)
		return
	}

	if _, err := a.Store.GetParticipation(ctx, team.ID, room.ID); apperr.IsNotFound(err) {
		p := &store.Participation{TeamID: team.ID, RoomID: room.ID}
		if err := a.Store.CreateParticipation(ctx, p); err != nil && !apperr.IsConflict(err) {
			a.writeError(w, err)
			return
		}
	} else if err != nil {
		a.writeError(w, err)
		return
	}

	token, err := a.Auth.Issue(team.ID, team.Name, room.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"team":         newTeamView(team),
		"room":         newRoomView(room),
	})
}

// bearerTeamID authenticates the request's bearer token and returns the team
// it was issued to.
func (a *API) bearerTeamID(r *http.Request) (int64, error) {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return 0, apperr.New(apperr.CodeUnauthorized, "missing bearer token")
	}
	return a.Auth.Verify(tokenString)
}

func (a *API) UpdateTeamProfile(w http.ResponseWriter, r *http.Request) {
	teamID, err := a.bearerTeamID(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	var req struct {
		Slogan *string `json:"slogan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperr.New(apperr.CodeInvalid, "invalid request body"))
		return
	}
	team, err := a.Store.UpdateTeam(r.Context(), teamID, store.TeamUpdate{Slogan: req.Slogan})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTeamView(team))
}

func (a *API) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.Store.ListRooms(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	views := make([]roomView, 0, len(rooms))
	for i := range rooms {
		views = append(views, newRoomView(&rooms[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := a.Store.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room))
}

func (a *API) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsActive *bool  `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperr.New(apperr.CodeInvalid, "invalid request body"))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	room := &store.Room{ID: req.ID, Name: req.Name, IsActive: true}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	if err := a.Store.CreateRoom(r.Context(), room); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRoomView(room))
}

func (a *API) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		IsActive bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperr.New(apperr.CodeInvalid, "invalid request body"))
		return
	}
	room, err := a.Store.UpdateRoom(r.Context(), chi.URLParam(r, "roomID"), req.Name, req.IsActive)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room))
}

func (a *API) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.DeleteRoom(r.Context(), chi.URLParam(r, "roomID")); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "room deleted"})
}

func questionIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.CodeInvalid, "invalid question id")
	}
	return id, nil
}

func (a *API) ListQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questions, err := a.Store.ListQuestions(ctx, r.URL.Query().Get("room_id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	views := make([]questionView, 0, len(questions))
	for i := range questions {
		options, err := a.Store.Options(ctx, questions[i].ID)
		if err != nil {
			a.writeError(w, err)
			return
		}
		views = append(views, newQuestionView(&questions[i], options))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := questionIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	question, err := a.Store.GetQuestion(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	options, err := a.Store.Options(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuestionView(question, options))
}

func (a *API) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID        string       `json:"room_id"`
		Text          string       `json:"text"`
		QuestionType  string       `json:"question_type"`
		CorrectAnswer string       `json:"correct_answer"`
		Points        int          `json:"points"`
		TimeLimit     *int         `json:"time_limit"`
		IsActive      bool         `json:"is_active"`
		Options       []optionView `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperr.New(apperr.CodeInvalid, "invalid request body"))
		return
	}
	ctx := r.Context()
	if _, err := a.Store.GetRoom(ctx, req.RoomID); err != nil {
		a.writeError(w, err)
		return
	}
	qt := store.QuestionType(req.QuestionType)
	if qt != store.QuestionMultipleChoice && qt != store.QuestionText {
		a.writeError(w, apperr.New(apperr.CodeInvalid, "question_type must be MULTIPLE_CHOICE or TEXT"))
		return
	}
	if req.Points <= 0 {
		req.Points = 1
	}
	question := &store.Question{
		RoomID:        req.RoomID,
		Text:          req.Text,
		QuestionType:  qt,
		CorrectAnswer: req.CorrectAnswer,
		Points:        req.Points,
		TimeLimit:     req.TimeLimit,
	}
	if qt == store.QuestionMultipleChoice {
		for _, opt := range req.Options {
			question.Options = append(question.Options, store.QuestionOption{
				OptionLetter: opt.OptionLetter,
				OptionText:   opt.OptionText,
			})
		}
	}
	if err := a.Store.CreateQuestion(ctx, question); err != nil {
		a.writeError(w, err)
		return
	}
	if req.IsActive {
		// Route through the director so creation-as-active still keeps a
		// single question open per room.
		updated, err := a.Director.Activate(ctx, question.ID)
		if err != nil {
			a.writeError(w, err)
			return
		}
		question = updated
	}
	options, err := a.Store.Options(ctx, question.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuestionView(question, options))
}

func (a *API) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := questionIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	var req struct {
		Text          *string      `json:"text"`
		QuestionType  *string      `json:"question_type"`
		CorrectAnswer *string      `json:"correct_answer"`
		Points        *int         `json:"points"`
		TimeLimit     *int         `json:"time_limit"`
		Options       []optionView `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperr.New(apperr.CodeInvalid, "invalid request body"))
		return
	}
	upd := store.QuestionUpdate{
		Text:          req.Text,
		CorrectAnswer: req.CorrectAnswer,
		Points:        req.Points,
		TimeLimit:     req.TimeLimit,
	}
	if req.QuestionType != nil {
		qt := store.QuestionType(*req.QuestionType)
		if qt != store.QuestionMultipleChoice && qt != store.QuestionText {
			a.writeError(w, apperr.New(apperr.CodeInvalid, "question_type must be MULTIPLE_CHOICE or TEXT"))
			return
		}
		upd.QuestionType = &qt
	}
	if req.Options != nil {
		upd.Options = make([]store.QuestionOption, 0, len(req.Options))
		for _, opt := range req.Options {
			upd.Options = append(upd.Options, store.QuestionOption{
				OptionLetter: opt.OptionLetter,
				OptionText:   opt.OptionText,
			})
		}
	}
	question, err := a.Store.UpdateQuestion(r.Context(), id, upd)
	if err != nil {
		a.writeError(w, err)
		return
	}
	options, err := a.Store.Options(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuestionView(question, options))
}

func (a *API) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := questionIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.Store.DeleteQuestion(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateQuestion opens the question for answers and pushes it to every
// session in its room.
func (a *API) ActivateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := questionIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	ctx := r.Context()
	question, err := a.Director.Activate(ctx, id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	options, err := a.Store.Options(ctx, id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.Registry.Broadcast(question.RoomID, types.NewQuestion(question, options))
	writeJSON(w, http.StatusOK, newQuestionView(question, options))
}

func (a *API) DeactivateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := questionIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	question, err := a.Director.Deactivate(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	options, err := a.Store.Options(r.Context(), question.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuestionView(question, options))
}
