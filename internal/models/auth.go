package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload identifying a learner.
type JWTClaims struct {
	LearnerID   string `json:"learner_id"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}
