package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/exam"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
	"github.com/dmitrijs2005/licensegate/internal/server/router"
	"github.com/dmitrijs2005/licensegate/internal/server/services"
	"github.com/google/uuid"
)

// Acknowledgement bodies.
const (
	MsgFizzReceived       = "Fizz: Instruction Received!"
	MsgBuzzReceived       = "Buzz: Instruction Received!"
	MsgOtherReceived      = "Instruction Received for Rescheduling"
	MsgAlreadyLicensed    = "License Exam already passed!"
	MsgChallengeNotFound  = "Unknown instruction"
	MsgMalformedChallenge = "Invalid instruction token"
)

type ExamService interface {
	RequestChallenge(ctx context.Context, account *models.Account) (*services.Issued, error)
	Acknowledge(ctx context.Context, userID, token string, channel exam.Channel) error
}

// InstructionResponse is a freshly issued challenge. ID is the number the
// client must classify.
type InstructionResponse struct {
	ID     uint16 `json:"id"`
	Token  string `json:"token"`
	Streak int    `json:"streak"`
}

type AckRequest struct {
	Token string `json:"token"`
}

// GameRoutes serves the license exam.
type GameRoutes struct {
	exam     ExamService
	sessions SessionResolver
	log      logging.Logger
}

func NewGameRoutes(exam ExamService, sessions SessionResolver, log logging.Logger) *GameRoutes {
	return &GameRoutes{exam: exam, sessions: sessions, log: log.With("module", "rest.game")}
}

func (h *GameRoutes) Routes() []router.Route {
	return []router.Route{
		{Method: http.MethodPost, Path: "/next_instruction", Handler: h.NextInstruction},
		{Method: http.MethodPost, Path: "/fizz", Handler: h.acknowledge(exam.ChannelFizz, MsgFizzReceived)},
		{Method: http.MethodPost, Path: "/buzz", Handler: h.acknowledge(exam.ChannelBuzz, MsgBuzzReceived)},
		{Method: http.MethodPost, Path: "/instructions", Handler: h.acknowledge(exam.ChannelOther, MsgOtherReceived)},
	}
}

// NextInstruction grades the previous challenge and issues the next one.
// Licensed accounts get 204 with no body.
func (h *GameRoutes) NextInstruction(w http.ResponseWriter, r *http.Request) {
	account, ok := authenticate(w, r, h.sessions, h.log)
	if !ok {
		return
	}

	issued, err := h.exam.RequestChallenge(r.Context(), account)
	if err != nil {
		writeText(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	if issued.AlreadyLicensed {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, InstructionResponse{ID: issued.N, Token: issued.Token, Streak: issued.Streak})
}

func (h *GameRoutes) acknowledge(channel exam.Channel, received string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := authenticate(w, r, h.sessions, h.log)
		if !ok {
			return
		}

		var req AckRequest
		if err := readJSON(r, &req); err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
		token, err := uuid.Parse(req.Token)
		if err != nil {
			writeText(w, http.StatusBadRequest, MsgMalformedChallenge)
			return
		}

		err = h.exam.Acknowledge(r.Context(), account.ID, token.String(), channel)
		switch {
		case err == nil:
			writeText(w, http.StatusOK, received)
		case errors.Is(err, common.ErrChallengeNotFound):
			writeText(w, http.StatusNotFound, MsgChallengeNotFound)
		default:
			writeText(w, http.StatusInternalServerError, MsgInternal)
		}
	}
}
