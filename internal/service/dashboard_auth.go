package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// DashboardClaims are the claims of a dashboard session token. The company
// may be carried at the top level or in app_metadata.
type DashboardClaims struct {
	CompanyID   string `json:"company_id,omitempty"`
	Role        string `json:"role,omitempty"`
	AppMetadata struct {
		CompanyID string `json:"company_id,omitempty"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// Company returns the company the token is scoped to.
func (c *DashboardClaims) Company() string {
	if c.CompanyID != "" {
		return c.CompanyID
	}
	return c.AppMetadata.CompanyID
}

// AuthVerifier verifies HS256 dashboard tokens. Tokens are issued by the
// external auth system; Sign exists for operators and tests.
type AuthVerifier struct {
	secret []byte
}

// NewAuthVerifier creates a verifier for secret.
func NewAuthVerifier(secret string) *AuthVerifier {
	return &AuthVerifier{secret: []byte(secret)}
}

// Verify parses and validates tokenString.
func (v *AuthVerifier) Verify(tokenString string) (*DashboardClaims, error) {
	if len(v.secret) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "Autenticação do painel não configurada"}
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token de autenticação não fornecido"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &DashboardClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*DashboardClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Company() == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token sem empresa associada"}
	}
	return claims, nil
}

// Authorize verifies the token and checks it is scoped to companyID.
func (v *AuthVerifier) Authorize(tokenString, companyID string) (*DashboardClaims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Company() != companyID {
		return nil, &domain.ErrForbidden{Action: "access another company"}
	}
	return claims, nil
}

// Sign issues a token scoped to companyID.
func (v *AuthVerifier) Sign(subject, companyID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := DashboardClaims{
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "tapcard",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
