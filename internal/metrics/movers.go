package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
)

// Dimension is the grouping key for movers.
type Dimension string

// Dimension constants
const (
	DimensionCategory    Dimension = "category"
	DimensionCounterpart Dimension = "counterpart"
	DimensionMarket      Dimension = "market"
)

// ParseDimension parses a dimension name; empty means category.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DimensionCategory, nil
	case DimensionCategory, DimensionCounterpart, DimensionMarket:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dimension %q", s)
	}
}

// GroupTotal is the summed closed profit of one group.
type GroupTotal struct {
	Key    string          `json:"key"`
	Profit decimal.Decimal `json:"profit"`
	Count  int             `json:"count"`
}

// MoverSet holds the top positive and top negative groups.
type MoverSet struct {
	Dimension    Dimension    `json:"dimension"`
	Contributors []GroupTotal `json:"contributors"` // positive sums, descending
	Drains       []GroupTotal `json:"drains"`       // negative sums, most negative first
}

// Movers groups closed records by dim and returns up to n contributors and n drains.
// Pending records are ignored. Groups summing to exactly zero appear in neither list.
func Movers(records []domain.TradeRecord, dim Dimension, n int) MoverSet {
	closed, _ := partition(records)
	return movers(closed, dim, n)
}

func movers(closed []domain.TradeRecord, dim Dimension, n int) MoverSet {
	if dim == "" {
		dim = DimensionCategory
	}
	if n <= 0 {
		n = DefaultMoverLimit
	}

	sums := make(map[string]*GroupTotal)
	for _, r := range closed {
		key := groupKey(r, dim)
		g, ok := sums[key]
		if !ok {
			g = &GroupTotal{Key: key}
			sums[key] = g
		}
		g.Profit = g.Profit.Add(r.Profit)
		g.Count++
	}

	set := MoverSet{Dimension: dim, Contributors: []GroupTotal{}, Drains: []GroupTotal{}}
	for _, g := range sums {
		switch {
		case g.Profit.IsPositive():
			set.Contributors = append(set.Contributors, *g)
		case g.Profit.IsNegative():
			set.Drains = append(set.Drains, *g)
		}
	}

	sort.Slice(set.Contributors, func(i, j int) bool {
		a, b := set.Contributors[i], set.Contributors[j]
		if !a.Profit.Equal(b.Profit) {
			return a.Profit.GreaterThan(b.Profit)
		}
		return a.Key < b.Key
	})
	sort.Slice(set.Drains, func(i, j int) bool {
		a, b := set.Drains[i], set.Drains[j]
		if !a.Profit.Equal(b.Profit) {
			return a.Profit.LessThan(b.Profit)
		}
		return a.Key < b.Key
	})

	if len(set.Contributors) > n {
		set.Contributors = set.Contributors[:n]
	}
	if len(set.Drains) > n {
		set.Drains = set.Drains[:n]
	}
	return set
}

func groupKey(r domain.TradeRecord, dim Dimension) string {
	switch dim {
	case DimensionCounterpart:
		return r.Counterpart
	case DimensionMarket:
		return r.Market
	default:
		return string(r.Category)
	}
}
