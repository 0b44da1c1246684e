package items

import (
	"errors"
	"strings"
)

func (s *Service) validate(item Item) error {
	if strings.TrimSpace(item.SKU) == "" {
		return errors.New("item sku is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		return errors.New("item name is required")
	}
	if item.Price.IsNegative() {
		return errors.New("item price must not be negative")
	}
	return nil
}
