package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AdminTokenClaims represents the typed JWT issued to administrators.
type AdminTokenClaims struct {
	AdminID uuid.UUID `json:"admin_id"`
	Email   string    `json:"email"`
	jwt.RegisteredClaims
}

// ActivationTokenClaims represents the credential handed to a POS install on
// successful activation. Expiry tracks the license expiry (or grace end).
type ActivationTokenClaims struct {
	LicenseID  uuid.UUID `json:"license_id"`
	HardwareID string    `json:"hardware_id"`
	jwt.RegisteredClaims
}
