package main

import (
	"context"
	"fmt"

	"oficina/internal/app"
	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
	"oficina/internal/domain/inventory"
	"oficina/pkg/logger"
)

type demoPart struct {
	code, description string
	minimum, quantity int
	cost, price       string
}

var demoParts = []demoPart{
	{"OIL-5W30", "Engine oil 5W30, 1L", 10, 40, "28.50", "45.00"},
	{"FLT-OIL-01", "Oil filter", 5, 12, "18.00", "32.00"},
	{"FLT-AIR-01", "Air filter", 4, 6, "25.00", "49.90"},
	{"BRK-PAD-F", "Front brake pads (set)", 3, 4, "90.00", "159.00"},
	{"BRK-FLD-DOT4", "Brake fluid DOT4, 500ml", 4, 2, "22.00", "39.00"},
	{"SPK-PLG-01", "Spark plug", 8, 16, "15.00", "29.00"},
	{"BLT-TIM-01", "Timing belt kit", 1, 0, "210.00", "380.00"},
}

// seedParts creates the demo catalog. Parts whose code already exists are
// skipped, so reruns are harmless.
func seedParts(ctx context.Context, svc *app.Services, userID id.ID, log *logger.Logger) (int, error) {
	created := 0
	for _, p := range demoParts {
		part, err := svc.Catalog.CreatePart(ctx, inventory.CreatePartInput{
			Code:            p.code,
			Description:     p.description,
			MinimumQuantity: p.minimum,
			UnitCost:        types.MustMoney(p.cost),
			SalePrice:       types.MustMoney(p.price),
			InitialQuantity: p.quantity,
			UserID:          userID,
		})
		if apperror.HasCode(err, apperror.CodeDuplicate) {
			log.Infow("part already exists", "code", p.code)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create part %s: %w", p.code, err)
		}
		log.Infow("part created", "code", part.Code, "quantity", part.Quantity)
		created++
	}
	return created, nil
}
