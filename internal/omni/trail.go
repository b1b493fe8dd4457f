package omni

import (
	"fmt"
	"strings"
)

// Trail is the human-readable log of one run, returned with the answer.
type Trail []string

func (t *Trail) add(format string, args ...any) {
	*t = append(*t, fmt.Sprintf(format, args...))
}

func (t *Trail) planned(plan Plan) {
	t.add("Planner decided on: %s", strings.Join(plan, ", "))
}

func (t *Trail) querying(storeName, sqlText string) {
	t.add("Querying %s with SQL: %s", storeName, sqlText)
}

func (t *Trail) found(storeName string, count int) {
	if count == 0 {
		t.add("No records found in %s.", storeName)
		return
	}
	t.add("Found %d records in %s.", count, storeName)
}

func (t *Trail) failed(storeName string, err error) {
	t.add("Error querying %s: %v", storeName, err)
}
