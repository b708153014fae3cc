package control

import (
	"context"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

// Sink receives every change event after it has been pushed to clients.
type Sink interface {
	Write(ctx context.Context, event models.ChangeEvent) error
}
