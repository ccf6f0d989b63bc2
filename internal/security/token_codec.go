package security

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"saas-auth-server/config"
	"saas-auth-server/internal/model"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ReasonMalformed         = "Malformed token"
	ReasonSignatureMismatch = "Signature mismatch"
	ReasonExpired           = "Token expired"

	refreshAudience = "refresh"

	// expiryLeeway : how long past exp a token still passes Verify
	expiryLeeway = 24 * time.Hour
)

var encoding = base64.RawURLEncoding

type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// TokenCodec : stateless HS256 signer/verifier for access and refresh tokens
type TokenCodec struct {
	secret         []byte
	issuer         string
	accessAudience string
	accessTTL      time.Duration
	refreshTTL     time.Duration
	now            func() time.Time
	encodedHeader  string
}

func NewTokenCodec(cfg *config.JWTConfig) *TokenCodec {
	header, _ := json.Marshal(tokenHeader{Alg: jwt.SigningMethodHS256.Alg(), Typ: "JWT"})

	return &TokenCodec{
		secret:         []byte(cfg.SecretKey),
		issuer:         cfg.Issuer,
		accessAudience: cfg.AccessAudience,
		accessTTL:      ParseTTL(cfg.AccessTokenTTL),
		refreshTTL:     ParseTTL(cfg.RefreshTokenTTL),
		now:            time.Now,
		encodedHeader:  encoding.EncodeToString(header),
	}
}

// WithClock replaces the time source; used by tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

func (c *TokenCodec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// SignAccess : access token bound to the refresh session in subject.SessionID (when set)
func (c *TokenCodec) SignAccess(subject model.TokenSubject) (*model.SignedToken, error) {
	return c.sign(subject, model.TokenTypeAccess, c.accessAudience, c.accessTTL)
}

func (c *TokenCodec) SignRefresh(subject model.TokenSubject) (*model.SignedToken, error) {
	subject.SessionID = 0
	return c.sign(subject, model.TokenTypeRefresh, refreshAudience, c.refreshTTL)
}

func (c *TokenCodec) sign(subject model.TokenSubject, tokenType model.TokenType, audience string, ttl time.Duration) (*model.SignedToken, error) {
	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	payload := model.TokenPayload{
		Sub:       strconv.FormatInt(subject.UserID, 10),
		Type:      tokenType,
		Aud:       audience,
		Iss:       c.issuer,
		Iat:       issuedAt.Unix(),
		Exp:       expiresAt.Unix(),
		Vendor:    subject.Vendor,
		DeviceID:  subject.DeviceID,
		SessionID: subject.SessionID,
		JTI:       uuid.NewString(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload encoding failed: %w", err)
	}

	signingString := c.encodedHeader + "." + encoding.EncodeToString(body)
	signature, err := c.signature(signingString)
	if err != nil {
		return nil, err
	}

	return &model.SignedToken{
		Token:     signingString + "." + signature,
		ExpiresAt: expiresAt,
	}, nil
}

func (c *TokenCodec) signature(signingString string) (string, error) {
	raw, err := jwt.SigningMethodHS256.Sign(signingString, c.secret)
	if err != nil {
		return "", fmt.Errorf("token signing failed: %w", err)
	}
	return encoding.EncodeToString(raw), nil
}

// Verify : checks framing, signature, type and expiry (with leeway); failures are reported in the result, never as errors
func (c *TokenCodec) Verify(token string, expectedType model.TokenType) model.VerifyResult {
	segments := strings.Split(token, ".")
	if len(segments) != 3 || segments[0] == "" || segments[1] == "" || segments[2] == "" {
		return model.VerifyResult{Reason: ReasonMalformed}
	}

	expected, err := c.signature(segments[0] + "." + segments[1])
	if err != nil {
		return model.VerifyResult{Reason: ReasonSignatureMismatch}
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(segments[2])) != 1 {
		return model.VerifyResult{Reason: ReasonSignatureMismatch}
	}

	body, err := encoding.DecodeString(segments[1])
	if err != nil {
		return model.VerifyResult{Reason: ReasonMalformed}
	}
	var payload model.TokenPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.VerifyResult{Reason: ReasonMalformed}
	}

	if expectedType != "" && payload.Type != expectedType {
		return model.VerifyResult{Reason: fmt.Sprintf("Expected %s token", expectedType), Payload: &payload}
	}

	if c.now().After(time.Unix(payload.Exp, 0).Add(expiryLeeway)) {
		return model.VerifyResult{Reason: ReasonExpired, Payload: &payload}
	}

	return model.VerifyResult{Valid: true, Payload: &payload}
}

// Expired reports whether exp itself has passed, without the verification leeway.
func (c *TokenCodec) Expired(payload *model.TokenPayload) bool {
	return !c.now().Before(time.Unix(payload.Exp, 0))
}
