package omni

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/omniretail/omnidesk/internal/store"
)

// HintKinds are the identifier columns carried from one store to the next.
var HintKinds = []string{"UserID", "OrderID", "ShipmentID", "ProductID", "TicketID", "WalletID", "TransactionID"}

const noHints = "No IDs found yet."

var hintKindByLower = func() map[string]string {
	out := make(map[string]string, len(HintKinds))
	for _, kind := range HintKinds {
		out[strings.ToLower(kind)] = kind
	}
	return out
}()

// Hints maps an identifier kind to the most recently seen value.
type Hints map[string]any

// Absorb records every non-empty identifier in rows. Later rows win.
func (h Hints) Absorb(rows []store.Row) {
	for _, row := range rows {
		for column, value := range row {
			kind, ok := hintKindByLower[strings.ToLower(column)]
			if !ok || !present(value) {
				continue
			}
			h[kind] = value
		}
	}
}

func (h Hints) Clone() Hints {
	out := make(Hints, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// String renders the hints for a prompt: compact JSON with sorted keys.
func (h Hints) String() string {
	if len(h) == 0 {
		return noHints
	}
	raw, err := json.Marshal(map[string]any(h))
	if err != nil {
		return noHints
	}
	return string(raw)
}

func present(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []byte:
		return len(v) > 0
	case bool:
		return v
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case uint64:
		return v != 0
	case float32:
		return v != 0
	case float64:
		return v != 0
	case time.Time:
		return !v.IsZero()
	default:
		return true
	}
}
