package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of both access and refresh credentials. The
// capability flag rides inside the access token so callers can branch
// without another identity lookup.
type Claims struct {
	UserID         int64  `json:"user_id"`
	IsPsychologist bool   `json:"is_psychologist"`
	TokenType      string `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is a refresh/access credential pair as returned by login.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Issuer signs and parses HS256 credential pairs.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (i *Issuer) sign(userID int64, isPsychologist bool, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:         userID,
		IsPsychologist: isPsychologist,
		TokenType:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// IssuePair issues a fresh refresh/access credential pair for the identity
func (i *Issuer) IssuePair(userID int64, isPsychologist bool) (Pair, error) {
	access, err := i.sign(userID, isPsychologist, tokenTypeAccess, i.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(userID, isPsychologist, tokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) parse(raw, tokenType string) (Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TokenType != tokenType {
		return Claims{}, ErrInvalidToken
	}

	return *claims, nil
}

// ParseAccess validates an access credential and returns its claims
func (i *Issuer) ParseAccess(raw string) (Claims, error) {
	return i.parse(raw, tokenTypeAccess)
}

// ParseRefresh validates a refresh credential and returns its claims
func (i *Issuer) ParseRefresh(raw string) (Claims, error) {
	return i.parse(raw, tokenTypeRefresh)
}
