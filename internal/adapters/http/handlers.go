package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/peerchess/internal/app/orch"
	"github.com/dkeye/peerchess/internal/core"
	"github.com/dkeye/peerchess/internal/domain"
)

type DescriptorRequest struct {
	Descriptor string `json:"descriptor"`
}

type DescriptorResponse struct {
	Descriptor string `json:"descriptor"`
}

type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type LocatorRequest struct {
	Locator string `json:"locator"`
}

type PGNRequest struct {
	PGN string `json:"pgn"`
}

type handlers struct {
	sess *orch.Session
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrMalformedDescriptor),
		errors.Is(err, core.ErrIllegalMove),
		errors.Is(err, core.ErrInvalidLocator),
		errors.Is(err, core.ErrInvalidPGN),
		errors.Is(err, core.ErrReservedText),
		errors.Is(err, domain.ErrBadSquare):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidHandshakeState),
		errors.Is(err, core.ErrNotConnected),
		errors.Is(err, core.ErrOutOfTurn):
		return http.StatusConflict
	case errors.Is(err, core.ErrChannelClosed):
		return http.StatusGone
	case errors.Is(err, orch.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (h *handlers) state(c *gin.Context) {
	v, err := h.sess.State(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) offer(c *gin.Context) {
	text, err := h.sess.Offer(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, DescriptorResponse{Descriptor: text})
}

func (h *handlers) answer(c *gin.Context) {
	var req DescriptorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Descriptor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid descriptor"})
		return
	}
	text, err := h.sess.Answer(c.Request.Context(), req.Descriptor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, DescriptorResponse{Descriptor: text})
}

func (h *handlers) complete(c *gin.Context) {
	var req DescriptorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Descriptor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid descriptor"})
		return
	}
	if err := h.sess.Complete(c.Request.Context(), req.Descriptor); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

func (h *handlers) reset(c *gin.Context) {
	if err := h.sess.Reset(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

func (h *handlers) move(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid move"})
		return
	}
	from, err := domain.ParseSquare(req.From)
	if err != nil {
		fail(c, err)
		return
	}
	to, err := domain.ParseSquare(req.To)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.sess.Move(c.Request.Context(), domain.MoveRequest{
		From:      from,
		To:        to,
		Promotion: domain.ParsePieceKind(req.Promotion),
	})
	if err != nil && res.Record == nil {
		fail(c, err)
		return
	}
	// a move applied locally but not delivered is still a 200; the chat log says why
	c.JSON(http.StatusOK, res)
}

func (h *handlers) chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid text"})
		return
	}
	if err := h.sess.Chat(c.Request.Context(), req.Text); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) locator(c *gin.Context) {
	var req LocatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid locator"})
		return
	}
	if err := h.sess.LoadLocator(c.Request.Context(), req.Locator); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

func (h *handlers) pgn(c *gin.Context) {
	var req PGNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid pgn"})
		return
	}
	if err := h.sess.LoadPGN(c.Request.Context(), req.PGN); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

func (h *handlers) back(c *gin.Context)    { h.navigate(c, h.sess.Back) }
func (h *handlers) forward(c *gin.Context) { h.navigate(c, h.sess.Forward) }

func (h *handlers) navigate(c *gin.Context, step func(context.Context) (bool, error)) {
	moved, err := step(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved})
}

func (h *handlers) newGame(c *gin.Context) {
	if err := h.sess.NewGame(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

func (h *handlers) undo(c *gin.Context) {
	undone, err := h.sess.Undo(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"undone": undone})
}
