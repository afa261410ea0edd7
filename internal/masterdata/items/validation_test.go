package items

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
)

func validItem() Item {
	return Item{
		Code:       "BRG-001",
		Name:       "Semen 50kg",
		CategoryID: 1,
		Unit:       "sak",
		BuyPrice:   62000,
		SellPrice:  68000,
		MinStock:   100,
	}
}

func TestValidateItem(t *testing.T) {
	svc := NewService(nil)

	require.NoError(t, svc.validate(validItem()))

	cases := map[string]func(*Item){
		"empty code":          func(it *Item) { it.Code = "  " },
		"empty name":          func(it *Item) { it.Name = "" },
		"missing category":    func(it *Item) { it.CategoryID = 0 },
		"negative buy price":  func(it *Item) { it.BuyPrice = -1 },
		"negative sell price": func(it *Item) { it.SellPrice = -1 },
		"negative min stock":  func(it *Item) { it.MinStock = -5 },
		"max below min": func(it *Item) {
			max := int64(10)
			it.MinStock = 100
			it.MaxStock = &max
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			it := validItem()
			mutate(&it)
			require.ErrorIs(t, svc.validate(it), httpx.ErrValidation)
		})
	}
}

func TestValidateItemAllowsMaxEqualMin(t *testing.T) {
	svc := NewService(nil)
	it := validItem()
	max := it.MinStock
	it.MaxStock = &max
	require.NoError(t, svc.validate(it))
}
