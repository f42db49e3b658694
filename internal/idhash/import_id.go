package idhash

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// ImportTradeID computes a deterministic trade id for feeds that do not supply one.
// Formula: SHA256(counterpart|market|category|date|stake|odds|created_at)
// The id depends only on the trade itself, never on its position in a response.
// Returns the base58-encoded hash.
func ImportTradeID(
	counterpart string,
	market string,
	category string,
	date time.Time,
	stake decimal.Decimal,
	odds decimal.Decimal,
	createdAt time.Time,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(counterpart)),
		strings.TrimSpace(market),
		strings.ToUpper(strings.TrimSpace(category)),
		date.UTC().Format("2006-01-02"),
		stake.String(),
		odds.String(),
		createdAt.UTC().Format(time.RFC3339Nano),
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
