package domain

import (
	"fmt"
	"strings"
)

// Category is a betting vertical. The set is closed.
type Category string

// Category constants
const (
	CategorySports  Category = "SPORTS"
	CategoryCasino  Category = "CASINO"
	CategoryEsports Category = "ESPORTS"
)

// Categories lists every vertical in display order.
var Categories = []Category{CategorySports, CategoryCasino, CategoryEsports}

// ParseCategory parses a vertical name, case-insensitive.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
