package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/wishdraw-api/internal/auth"
	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/domain/participant"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = auth.ErrInvalidCredentials
)

// ParticipantService handles signup, login and profile lookups
type ParticipantService struct {
	repos      draw.Repositories
	tokens     *auth.TokenIssuer
	bcryptCost int
	validator  validation.ParticipantValidation
	log        *log.Logger
}

// NewParticipantService creates a new participant service
func NewParticipantService(repos draw.Repositories, tokens *auth.TokenIssuer, bcryptCost int) *ParticipantService {
	return &ParticipantService{
		repos:      repos,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		validator:  validation.ParticipantValidation{},
		log:        logger.Service("participant"),
	}
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is an issued bearer token
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile is what a participant sees about themselves
type Profile struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	State       participant.State `json:"state"`
	HasPicked   bool              `json:"has_picked"`
	HasWishlist bool              `json:"has_wishlist"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Signup registers a new participant
func (s *ParticipantService) Signup(ctx context.Context, req SignupRequest) (*participant.Participant, error) {
	if err := s.validator.ValidateName(req.Name); err != nil {
		return nil, fmt.Errorf("%w: %w", draw.ErrInvalidInput, err)
	}
	if err := s.validator.ValidateEmail(req.Email); err != nil {
		return nil, fmt.Errorf("%w: %w", draw.ErrInvalidInput, err)
	}
	if err := s.validator.ValidatePassword(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", draw.ErrInvalidInput, err)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	p := participant.New(req.Name, req.Email, hash)
	if err := s.repos.Participants().Create(ctx, p); err != nil {
		if errors.Is(err, draw.ErrDuplicateRecord) {
			return nil, ErrEmailTaken
		}
		s.log.Error("Failed to create participant", "error", err)
		return nil, fmt.Errorf("create participant: %w: %w", draw.ErrStoreUnavailable, err)
	}

	s.log.Info("Participant signed up", "id", p.ID)
	return p, nil
}

// Login checks credentials and issues a token
func (s *ParticipantService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	p, err := s.repos.Participants().GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, draw.ErrRecordNotFound) {
			s.log.Debug("Login for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load participant: %w: %w", draw.ErrStoreUnavailable, err)
	}

	if err := auth.CheckPassword(p.PasswordHash, req.Password); err != nil {
		s.log.Debug("Login with wrong password", "id", p.ID)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(p.ID, p.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info("Participant logged in", "id", p.ID)
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// Profile returns the participant's own view of their account
func (s *ParticipantService) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.repos.Participants().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, draw.ErrRecordNotFound) {
			return nil, draw.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("load participant: %w: %w", draw.ErrStoreUnavailable, err)
	}

	hasWishlist, err := s.repos.Wishlists().ExistsForOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check wishlist: %w: %w", draw.ErrStoreUnavailable, err)
	}

	return &Profile{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		State:       p.State(),
		HasPicked:   p.HasPicked,
		HasWishlist: hasWishlist,
		CreatedAt:   p.CreatedAt,
	}, nil
}
