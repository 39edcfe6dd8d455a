// Package render produces the terminal-grade LIONCROW_WILL status blocks
// used by the dashboard and the simulate command. It also provides an
// observer that renders kernel events as they arrive, keeping the
// numerical core free of any formatting concern.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Will renders a status block stamped with the current UTC time.
func Will(title string, payload map[string]any) string {
	return WillAt(time.Now().UTC(), title, payload)
}

// WillAt renders a status block: a header line carrying the timestamp and
// title, followed by one indented line per payload key in sorted order.
// Floats are fixed to six decimal places.
func WillAt(ts time.Time, title string, payload map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] :: LIONCROW_WILL :: %s", ts.UTC().Format(timeLayout), title)

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString("\n  - ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(formatValue(payload[k]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.6f", x)
	case float32:
		return fmt.Sprintf("%.6f", x)
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Title converts an event type like "kernel.step.complete" into the
// upper-snake header form "KERNEL_STEP_COMPLETE".
func Title(eventType string) string {
	return strings.ToUpper(strings.ReplaceAll(eventType, ".", "_"))
}
