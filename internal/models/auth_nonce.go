package models

import (
	"time"
)

// AuthNonce is a one-shot login challenge bound to a wallet.
type AuthNonce struct {
	Nonce         string    `gorm:"primaryKey;type:varchar(64)"`
	WalletAddress string    `gorm:"type:varchar(100);not null;index"`
	ExpiresAt     time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (AuthNonce) TableName() string {
	return "auth_nonces"
}
