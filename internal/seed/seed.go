package seed

import (
	"context"
	"errors"
	"time"

	plandomain "github.com/smallbiznis/warung/internal/plan/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	freePlanID   = "free"
	freePlanName = "Free"
)

// EnsureFreePlan seeds the free plan used by first-org provisioning.
func EnsureFreePlan(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan plandomain.Plan
		err := tx.WithContext(ctx).Where("id = ?", freePlanID).First(&plan).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		plan = plandomain.Plan{
			ID:                freePlanID,
			Name:              freePlanName,
			MonthlyPriceCents: 0,
			Features: datatypes.JSONMap{
				"max_branches":   1,
				"max_menu_items": 50,
			},
			CreatedAt: time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(&plan).Error
	})
}
