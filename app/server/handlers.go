package server

import (
	"log/slog"

	"runcoach/app/util/apperr"

	"github.com/gofiber/fiber/v2"
)

type chatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type resetRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type healthResponse struct {
	Status       string `json:"status"`
	Sessions     int    `json:"sessions"`
	Index        string `json:"index"`
	IndexEntries int    `json:"index_entries"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, "message is required")
	}

	reply, err := s.conv.Answer(c.UserContext(), req.SessionID, req.Message)
	if err != nil {
		slog.Error("Chat request failed",
			"session_id", req.SessionID,
			"code", apperr.CodeOf(err),
			"error", err,
		)

		// User-facing failure: apologetic message plus an opaque code,
		// never a raw error chain.
		status := fiber.StatusInternalServerError
		code := apperr.CodeOf(err)
		if code == "" {
			code = "internal"
		}
		if apperr.IsTransient(err) {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(errorResponse{Error: errorBody{
			Code:    code,
			Message: "I apologize, but I encountered an error processing your request. Please try again.",
		}})
	}

	return c.JSON(chatResponse{
		Response:  reply.Text,
		SessionID: reply.SessionID,
	})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, "session_id is required")
	}

	if !s.sessions.Reset(req.SessionID) {
		return c.JSON(statusResponse{Status: "not_found"})
	}

	return c.JSON(statusResponse{Status: "success"})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	indexStatus := "available"
	if !s.indexSvc.Ready() {
		indexStatus = "unavailable"
	}

	return c.JSON(healthResponse{
		Status:       "healthy",
		Sessions:     s.sessions.Count(),
		Index:        indexStatus,
		IndexEntries: s.indexSvc.Count(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: errorBody{
		Code:    "bad_request",
		Message: msg,
	}})
}
