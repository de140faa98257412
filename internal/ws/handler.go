package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pubquiz-backend/internal/auth"
	"github.com/DoyleJ11/pubquiz-backend/internal/quiz"
	"github.com/DoyleJ11/pubquiz-backend/internal/registry"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
	"github.com/DoyleJ11/pubquiz-backend/pkg/types"
)

const writeTimeout = 3 * time.Second

// Deps is everything a room session needs: durable state, live membership,
// the scoring core and token verification.
type Deps struct {
	Store    store.Store
	Registry *registry.Registry
	Director *quiz.Director
	Ledger   *quiz.Ledger
	Auth     *auth.TokenIssuer
	Log      *zap.Logger
}

// Handler runs one team's room session: admission checks, initial sync,
// then the chat/answer loop until the connection drops.
func Handler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		teamID, err := strconv.ParseInt(chi.URLParam(r, "teamID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid team id", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx := r.Context()

		// Admission: token must belong to the claimed team, the room must
		// exist, and the team must participate in it. Any failure closes
		// with a policy violation before any state changes.
		tokenTeamID, err := d.Auth.Verify(r.URL.Query().Get("token"))
		if err != nil || tokenTeamID != teamID {
			conn.Close(websocket.StatusPolicyViolation, "")
			return
		}
		team, err := d.Store.GetTeam(ctx, teamID)
		if err != nil {
			conn.Close(websocket.StatusPolicyViolation, "")
			return
		}
		participation, err := d.Store.GetParticipation(ctx, teamID, roomID)
		if err != nil {
			conn.Close(websocket.StatusPolicyViolation, "")
			return
		}

		sess := registry.NewSession(team)
		handle, err := d.Registry.Connect(ctx, roomID, sess)
		if err != nil {
			conn.Close(websocket.StatusPolicyViolation, "")
			return
		}
		defer func() {
			// Runs on any exit path: deregister first so the leaver is not
			// in the fan-out, then tell the room once.
			d.Registry.Disconnect(handle)
			d.Registry.Broadcast(roomID, types.SystemMessage{
				Type:    "system_message",
				Message: fmt.Sprintf("Team %s left the room!", team.Name),
			})
		}()

		// Writer goroutine: drains the session outbox into the socket so a
		// slow socket never blocks the room. When the outbox closes (drop or
		// eviction) the connection is torn down, which ends the read loop.
		writeCtx, writeCancel := context.WithCancel(ctx)
		defer writeCancel()
		go func() {
			for payload := range sess.Outbox() {
				wctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err := conn.Write(wctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					break
				}
			}
			conn.Close(websocket.StatusNormalClosure, "")
		}()

		if err := d.syncSession(ctx, sess, team, participation, roomID); err != nil {
			d.Log.Warn("initial sync failed",
				zap.String("room_id", roomID),
				zap.Int64("team_id", teamID),
				zap.Error(err))
			return
		}

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			d.handleMessage(ctx, sess, roomID, data)
		}
	}
}

// syncSession sends the connecting team its private snapshot, announces the
// join, and catches it up on the leaderboard and any open question.
func (d Deps) syncSession(ctx context.Context, sess *registry.Session, team *store.Team, participation *store.Participation, roomID string) error {
	err := sess.Send(types.TeamInfo{
		Type:           "team_info",
		TeamID:         team.ID,
		TeamName:       team.Name,
		ProfilePicture: team.ProfilePicture,
		Slogan:         team.Slogan,
		RoomPoints:     participation.Points,
		TotalPoints:    team.TotalPoints,
	})
	if err != nil {
		return err
	}

	d.Registry.Broadcast(roomID, types.SystemMessage{
		Type:    "system_message",
		Message: fmt.Sprintf("Team %s joined the room!", team.Name),
	})

	board, err := d.Ledger.Leaderboard(ctx, roomID)
	if err != nil {
		return err
	}
	if err := sess.Send(types.Leaderboard{Type: "leaderboard", Leaderboard: board}); err != nil {
		return err
	}

	active, err := d.Director.Current(ctx, roomID)
	if err != nil {
		return err
	}
	if active != nil {
		msg, err := d.QuestionMessage(ctx, active)
		if err != nil {
			return err
		}
		if err := sess.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (d Deps) handleMessage(ctx context.Context, sess *registry.Session, roomID string, data []byte) {
	var msg types.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// Not JSON: degrade to a chat line carrying the raw payload.
		d.broadcastChat(sess, roomID, string(data))
		return
	}

	switch msg.Type {
	case "chat":
		d.broadcastChat(sess, roomID, msg.Message)
	case "answer":
		d.processAnswer(ctx, sess, roomID, msg)
	}
}

func (d Deps) broadcastChat(sess *registry.Session, roomID, message string) {
	d.Registry.Broadcast(roomID, types.Chat{
		Type:           "chat",
		TeamID:         sess.TeamID,
		TeamName:       sess.TeamName,
		ProfilePicture: sess.ProfilePicture,
		Message:        message,
	})
}

// processAnswer judges a submission against the room's open question. A
// submission for a question that is no longer open (or never belonged to
// this room) is dropped without a reply: the question moved on while the
// answer was in flight.
func (d Deps) processAnswer(ctx context.Context, sess *registry.Session, roomID string, msg types.ClientMessage) {
	question, err := d.Director.Current(ctx, roomID)
	if err != nil {
		d.answerFailed(sess, roomID, err)
		return
	}
	if question == nil || question.ID != msg.QuestionID {
		return
	}

	correct := quiz.Judge(question, msg.Answer)
	answer := &store.Answer{
		TeamID:      sess.TeamID,
		QuestionID:  question.ID,
		Text:        msg.Answer,
		IsCorrect:   correct,
		SubmittedAt: time.Now().UTC(),
	}
	if err := d.Store.UpsertAnswer(ctx, answer); err != nil {
		d.answerFailed(sess, roomID, err)
		return
	}

	if !correct {
		_ = sess.Send(types.AnswerResult{
			Type:          "answer_result",
			Correct:       false,
			CorrectAnswer: d.correctAnswerText(ctx, question),
		})
		return
	}

	roomPoints, _, err := d.Ledger.Award(ctx, sess.TeamID, roomID, question.Points)
	if err != nil {
		d.answerFailed(sess, roomID, err)
		return
	}
	_ = sess.Send(types.AnswerResult{
		Type:         "answer_result",
		Correct:      true,
		PointsEarned: question.Points,
		TotalPoints:  roomPoints,
	})

	board, err := d.Ledger.Leaderboard(ctx, roomID)
	if err != nil {
		d.Log.Error("leaderboard query failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	d.Registry.Broadcast(roomID, types.Leaderboard{Type: "leaderboard_update", Leaderboard: board})
}

func (d Deps) answerFailed(sess *registry.Session, roomID string, err error) {
	d.Log.Error("answer processing failed",
		zap.String("room_id", roomID),
		zap.Int64("team_id", sess.TeamID),
		zap.Error(err))
	_ = sess.Send(types.SystemMessage{
		Type:    "system_message",
		Message: "Could not process your answer, please try again.",
	})
}

// correctAnswerText renders the correct answer for an incorrect result. For
// multiple-choice it expands the letter to "B: option text" when the option
// is on record.
func (d Deps) correctAnswerText(ctx context.Context, question *store.Question) string {
	if question.QuestionType != store.QuestionMultipleChoice {
		return question.CorrectAnswer
	}
	options, err := d.Store.Options(ctx, question.ID)
	if err == nil {
		for _, opt := range options {
			if opt.OptionLetter == question.CorrectAnswer {
				return fmt.Sprintf("%s: %s", opt.OptionLetter, opt.OptionText)
			}
		}
	}
	return question.CorrectAnswer
}

// QuestionMessage builds the client-facing payload for a question: options
// fetched and included for multiple-choice, the correct answer never.
func (d Deps) QuestionMessage(ctx context.Context, question *store.Question) (types.Question, error) {
	var options []store.QuestionOption
	if question.QuestionType == store.QuestionMultipleChoice {
		var err error
		options, err = d.Store.Options(ctx, question.ID)
		if err != nil {
			return types.Question{}, err
		}
	}
	return types.NewQuestion(question, options), nil
}
