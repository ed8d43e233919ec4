package models

import "github.com/golang-jwt/jwt/v5"

// TutorClaims are the token claims identifying the authenticated tutor.
// The tutor id is passed explicitly into every service and repository call;
// nothing below the handler layer reads ambient identity.
type TutorClaims struct {
	TutorID string `json:"tutor_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}
