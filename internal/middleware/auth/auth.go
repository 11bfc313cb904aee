// Package auth authenticates requests with bearer tokens
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	tokens "github.com/gravadigital/wishdraw-api/internal/auth"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/response"
)

// ParticipantIDKey is the gin context key holding the authenticated participant id
const ParticipantIDKey = "participant_id"

// RequireParticipant rejects requests without a valid bearer token and
// stores the token subject under ParticipantIDKey
func RequireParticipant(issuer *tokens.TokenIssuer) gin.HandlerFunc {
	l := logger.Auth()
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if header == "" || !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "Access denied")
			return
		}

		participantID, _, err := issuer.Verify(strings.TrimSpace(token))
		if err != nil {
			l.Debug("Rejected token", "path", c.Request.URL.Path, "error", err)
			response.AbortWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(ParticipantIDKey, participantID)
		c.Next()
	}
}

// ParticipantID returns the authenticated participant id
func ParticipantID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(ParticipantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
