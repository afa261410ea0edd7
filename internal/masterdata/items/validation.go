package items

import (
	"fmt"
	"strings"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
)

func (s *Service) validate(it Item) error {
	if strings.TrimSpace(it.Code) == "" {
		return fmt.Errorf("%w: item code is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: item name is required", httpx.ErrValidation)
	}
	if it.CategoryID <= 0 {
		return fmt.Errorf("%w: category is required", httpx.ErrValidation)
	}
	if it.BuyPrice < 0 || it.SellPrice < 0 {
		return fmt.Errorf("%w: prices must not be negative", httpx.ErrValidation)
	}
	if it.MinStock < 0 {
		return fmt.Errorf("%w: minimum stock must not be negative", httpx.ErrValidation)
	}
	if it.MaxStock != nil && *it.MaxStock < it.MinStock {
		return fmt.Errorf("%w: maximum stock must be at least the minimum", httpx.ErrValidation)
	}
	return nil
}
