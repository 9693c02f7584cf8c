package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/immxrtalbeast/medsignal/internal/domain"
)

// Close reasons sent to the client when authentication fails.
const (
	ReasonTokenRequired    = "JWT token required"
	ReasonInvalidToken     = "Invalid token"
	ReasonInvalidTokenType = "Invalid token type"
	ReasonMissingClaim     = "Missing required claim"
	ReasonMisconfigured    = "Server misconfigured"
)

var (
	ErrTokenRequired       = errors.New("token required")
	ErrSecretNotConfigured = errors.New("signing secret not configured")
	ErrUnknownTokenType    = errors.New("unknown token type")
	ErrMissingClaim        = errors.New("missing required claim")
)

// AuthError is fatal for the connection that produced it. Reason is safe to
// send to the client.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + e.Reason
	}
	return "auth: " + e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Misconfigured reports whether the failure is on the server side.
func (e *AuthError) Misconfigured() bool {
	return errors.Is(e.Err, ErrSecretNotConfigured)
}

func authError(reason string, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

// Token type claim values.
const (
	TokenTypeDoctor  = "doctor"
	TokenTypePatient = "patient"
	TokenTypeVisitor = "visitor"
)

// ClaimID accepts ids encoded as JSON strings or numbers.
type ClaimID string

func (c *ClaimID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = ""
		return nil
	}
	id := domain.IDFromJSON(b)
	if id == "" && len(b) > 0 && b[0] != '"' {
		return fmt.Errorf("id must be a string or number, got %s", string(b))
	}
	*c = ClaimID(id)
	return nil
}

// TokenClaims is the payload of a consultation token.
type TokenClaims struct {
	Type           string  `json:"type"`
	Role           string  `json:"role,omitempty"`
	DoctorID       ClaimID `json:"doctorId,omitempty"`
	PatientID      ClaimID `json:"patientId,omitempty"`
	ConsultationID ClaimID `json:"consultationId,omitempty"`
	VisitorID      ClaimID `json:"visitorId,omitempty"`
	UserID         ClaimID `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// TokenService verifies bearer tokens and classifies the caller.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

// Validate verifies token and derives the session identity. Every failure
// is an *AuthError.
func (s *TokenService) Validate(token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, authError(ReasonTokenRequired, ErrTokenRequired)
	}
	if s.cfg.Secret == "" {
		return domain.Identity{}, authError(ReasonMisconfigured, ErrSecretNotConfigured)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.cfg.Leeway),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience))
	}

	var claims TokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, authError(ReasonInvalidToken, err)
	}

	return classify(&claims)
}

func classify(c *TokenClaims) (domain.Identity, error) {
	switch c.Type {
	case TokenTypeDoctor:
		if c.DoctorID == "" {
			return domain.Identity{}, missingClaim("doctorId")
		}
		role := domain.RoleDoctor
		if c.Role == string(domain.RoleAdmin) {
			role = domain.RoleAdmin
		}
		return domain.Identity{SubjectID: string(c.DoctorID), Role: role}, nil

	case TokenTypePatient:
		if c.PatientID == "" {
			return domain.Identity{}, missingClaim("patientId")
		}
		if c.ConsultationID == "" {
			return domain.Identity{}, missingClaim("consultationId")
		}
		return domain.Identity{
			SubjectID:      string(c.PatientID),
			Role:           domain.RolePatient,
			ConsultationID: string(c.ConsultationID),
		}, nil

	case TokenTypeVisitor:
		id := c.VisitorID
		if id == "" {
			id = c.UserID
		}
		if id == "" {
			return domain.Identity{}, missingClaim("visitorId")
		}
		return domain.Identity{SubjectID: string(id), Role: domain.RoleVisitor}, nil
	}
	return domain.Identity{}, authError(ReasonInvalidTokenType, fmt.Errorf("%w: %q", ErrUnknownTokenType, c.Type))
}

func missingClaim(name string) *AuthError {
	return authError(ReasonMissingClaim, fmt.Errorf("%w: %s", ErrMissingClaim, name))
}

// Issue signs claims with the configured secret, filling issuer and
// audience when they are unset. It backs the development token tool.
func (s *TokenService) Issue(claims TokenClaims, ttl time.Duration) (string, error) {
	if s.cfg.Secret == "" {
		return "", ErrSecretNotConfigured
	}
	now := s.now()
	if claims.Issuer == "" {
		claims.Issuer = s.cfg.Issuer
	}
	if len(claims.Audience) == 0 && s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}
