package db

import (
	"eventhorizon/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Forecaster{},
		&models.Prediction{},
		&models.ResolvedMarket{},
		&models.Score{},
		&models.Market{},
		&models.SignalPoint{},
		&models.AuthNonce{},
	)
}
