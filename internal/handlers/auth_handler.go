package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/middleware/auth"
	"github.com/gravadigital/wishdraw-api/internal/response"
	"github.com/gravadigital/wishdraw-api/internal/services"
)

type AuthHandler struct {
	participants *services.ParticipantService
	log          *log.Logger
}

func NewAuthHandler(participants *services.ParticipantService) *AuthHandler {
	return &AuthHandler{
		participants: participants,
		log:          logger.Handler("auth"),
	}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload")
		return
	}

	p, err := h.participants.Signup(c.Request.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrEmailTaken):
		response.ConflictError(c, "Email is already registered")
		return
	case errors.Is(err, draw.ErrInvalidInput):
		response.BadRequestError(c, err.Error())
		return
	default:
		h.log.Error("Signup failed", "error", err)
		response.InternalServerError(c, "Failed to create account")
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Account created", gin.H{
		"id":    p.ID,
		"name":  p.Name,
		"email": p.Email,
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload")
		return
	}

	session, err := h.participants.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.UnauthorizedError(c, "Invalid email or password")
			return
		}
		h.log.Error("Login failed", "error", err)
		response.InternalServerError(c, "Failed to log in")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Logged in", session)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	participantID, ok := auth.ParticipantID(c)
	if !ok {
		response.UnauthorizedError(c, "Access denied")
		return
	}

	profile, err := h.participants.Profile(c.Request.Context(), participantID)
	if err != nil {
		if errors.Is(err, draw.ErrParticipantNotFound) {
			response.NotFoundError(c, "Participant not found")
			return
		}
		h.log.Error("Profile lookup failed", "error", err)
		response.InternalServerError(c, "Failed to load profile")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", profile)
}
