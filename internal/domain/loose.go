package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LooseAmount decodes a money value written as a JSON number, a numeric
// string, or a formatted price such as "$1,200.00". Anything else is zero.
type LooseAmount struct {
	decimal.Decimal
	Present bool
}

func (a *LooseAmount) UnmarshalJSON(b []byte) error {
	var p Price
	if err := p.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = LooseAmount{Decimal: p.Decimal(), Present: strings.TrimSpace(string(p)) != ""}
	return nil
}

// LooseTime decodes RFC 3339 text or a unix timestamp in seconds or
// milliseconds. Values are normalized to UTC.
type LooseTime struct {
	time.Time
}

// millisThreshold separates unix seconds from unix milliseconds; 1e11 seconds
// is beyond the year 5000.
const millisThreshold = 100_000_000_000

func (t *LooseTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		s = strings.TrimSpace(raw)
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unknown formats decode as zero rather than failing the record.
		t.Time = time.Time{}
		return nil
	}
	t.Time = UnixAuto(int64(f))
	return nil
}

// UnixAuto interprets n as unix milliseconds when it is too large to be
// seconds.
func UnixAuto(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	if n >= millisThreshold || n <= -millisThreshold {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// NormalizeStatus maps stored status text onto OrderStatus. Unknown values
// read as pending.
func NormalizeStatus(raw string) OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "fulfilled":
		return OrderCompleted
	case "cancelled", "canceled":
		return OrderCancelled
	default:
		return OrderPending
	}
}
