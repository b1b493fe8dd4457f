package omni

import (
	"testing"

	"github.com/omniretail/omnidesk/internal/store"
)

func TestHintsAbsorbMatchesKindsCaseInsensitively(t *testing.T) {
	hints := Hints{}
	hints.Absorb([]store.Row{
		{"userid": int64(1), "Name": "Alice Johnson"},
		{"OrderID": int64(101), "TicketID": nil},
	})
	hints.Absorb([]store.Row{
		{"OrderID": int64(102), "ShipmentID": "", "WalletID": false, "TransactionID": float64(0)},
	})

	if len(hints) != 2 {
		t.Fatalf("hints = %#v", hints)
	}
	if hints["UserID"] != int64(1) {
		t.Fatalf("UserID = %#v", hints["UserID"])
	}
	if hints["OrderID"] != int64(102) {
		t.Fatalf("OrderID = %#v, want last write", hints["OrderID"])
	}
	if got := hints.String(); got != `{"OrderID":102,"UserID":1}` {
		t.Fatalf("String() = %q", got)
	}
}

func TestHintsStringWhenEmpty(t *testing.T) {
	if got := (Hints{}).String(); got != "No IDs found yet." {
		t.Fatalf("String() = %q", got)
	}
}

func TestHintsCloneIsIndependent(t *testing.T) {
	hints := Hints{"UserID": int64(1)}
	clone := hints.Clone()
	clone["OrderID"] = int64(101)
	if _, ok := hints["OrderID"]; ok {
		t.Fatal("clone shares storage with the original")
	}
}
