// Package auth implements wallet-based login: a one-time nonce is issued for
// a wallet, the wallet signs it, and a verified signature exchanges for a
// JWT identifying the forecaster.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventhorizon/internal/apperrors"
	"eventhorizon/internal/config"
	"eventhorizon/internal/models"
)

// Store is the persistence surface the auth service needs.
type Store interface {
	InsertAuthNonce(ctx context.Context, nonce *models.AuthNonce) error
	ConsumeAuthNonce(ctx context.Context, nonce, walletAddress string) (bool, error)
	DeleteExpiredAuthNonces(ctx context.Context, before time.Time) (int64, error)
	GetForecasterByWallet(ctx context.Context, walletAddress string) (*models.Forecaster, error)
	CreateForecaster(ctx context.Context, forecaster *models.Forecaster) error
}

// Verifier checks that signature proves control of walletAddress over message.
// Production deployments plug in a chain-specific implementation.
type Verifier interface {
	Verify(walletAddress, message, signature string) (bool, error)
}

// HMACVerifier is the development verifier: the signature is the hex HMAC of
// the message under a shared secret. Not a substitute for wallet signatures.
type HMACVerifier struct {
	Secret []byte
}

func (v HMACVerifier) Verify(walletAddress, message, signature string) (bool, error) {
	mac := hmac.New(sha256.New, v.Secret)
	mac.Write([]byte(strings.ToLower(walletAddress)))
	mac.Write([]byte("|"))
	mac.Write([]byte(message))
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(strings.ToLower(signature))), nil
}

type Claims struct {
	ForecasterID string `json:"forecaster_id"`
	Wallet       string `json:"wallet"`
	jwt.RegisteredClaims
}

type Service struct {
	Repo     Store
	Verifier Verifier
	Config   config.AuthConfig
	Logger   *zap.Logger
}

// IssueNonce creates a one-time login challenge for the wallet.
func (s *Service) IssueNonce(ctx context.Context, walletAddress string) (*models.AuthNonce, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("auth service is not configured")
	}
	walletAddress = normalizeWallet(walletAddress)
	if walletAddress == "" {
		return nil, apperrors.Validation("wallet address is required")
	}
	ttl := s.Config.NonceTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	nonce := &models.AuthNonce{
		Nonce:         uuid.NewString(),
		WalletAddress: walletAddress,
		ExpiresAt:     time.Now().UTC().Add(ttl),
	}
	if err := s.Repo.InsertAuthNonce(ctx, nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// Login consumes the nonce, verifies the signature over it, and returns a
// signed token for the wallet's forecaster, creating the forecaster on first
// login.
func (s *Service) Login(ctx context.Context, walletAddress, nonce, signature string) (string, *models.Forecaster, error) {
	if s == nil || s.Repo == nil || s.Verifier == nil {
		return "", nil, fmt.Errorf("auth service is not configured")
	}
	walletAddress = normalizeWallet(walletAddress)
	if walletAddress == "" || nonce == "" || signature == "" {
		return "", nil, apperrors.Validation("walletAddress, nonce and signature are required")
	}

	ok, err := s.Repo.ConsumeAuthNonce(ctx, nonce, walletAddress)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, apperrors.ErrInvalidNonce
	}

	verified, err := s.Verifier.Verify(walletAddress, nonce, signature)
	if err != nil {
		return "", nil, err
	}
	if !verified {
		return "", nil, apperrors.ErrInvalidNonce
	}

	forecaster, err := s.getOrCreateForecaster(ctx, walletAddress)
	if err != nil {
		return "", nil, err
	}
	token, err := s.generateToken(forecaster)
	if err != nil {
		return "", nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("forecaster logged in",
			zap.String("forecaster_id", forecaster.ID),
			zap.String("wallet", walletAddress))
	}
	return token, forecaster, nil
}

// ValidateToken parses and verifies a JWT issued by Login.
func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	if s == nil {
		return nil, errors.New("auth service is nil")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(s.Config.JWTSecret), nil
		},
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// CleanupExpiredNonces removes challenges past their expiry.
func (s *Service) CleanupExpiredNonces(ctx context.Context) (int64, error) {
	if s == nil || s.Repo == nil {
		return 0, nil
	}
	return s.Repo.DeleteExpiredAuthNonces(ctx, time.Now().UTC())
}

func (s *Service) generateToken(forecaster *models.Forecaster) (string, error) {
	ttl := s.Config.TokenTTL
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	now := time.Now()
	claims := Claims{
		ForecasterID: forecaster.ID,
		Wallet:       forecaster.WalletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   forecaster.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.Config.JWTSecret))
}

func (s *Service) getOrCreateForecaster(ctx context.Context, walletAddress string) (*models.Forecaster, error) {
	forecaster, err := s.Repo.GetForecasterByWallet(ctx, walletAddress)
	if err == nil {
		return forecaster, nil
	}
	if !errors.Is(err, apperrors.ErrForecasterNotFound) {
		return nil, err
	}
	forecaster = &models.Forecaster{
		ID:            uuid.NewString(),
		WalletAddress: walletAddress,
	}
	if err := s.Repo.CreateForecaster(ctx, forecaster); err != nil {
		// A concurrent first login may have created the row already.
		if existing, lookupErr := s.Repo.GetForecasterByWallet(ctx, walletAddress); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return forecaster, nil
}

func normalizeWallet(walletAddress string) string {
	return strings.ToLower(strings.TrimSpace(walletAddress))
}
