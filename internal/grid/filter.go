package grid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Filter keeps the rows in which at least one field's string form contains
// term, case-insensitively. An empty or blank term returns rows unchanged.
// It runs even when the remote search already honoured term, so a server
// that stops filtering still yields a correct grid.
func Filter(rows []Row, term string) []Row {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if rowContains(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func rowContains(r Row, needle string) bool {
	for _, v := range r {
		if strings.Contains(strings.ToLower(Stringify(v)), needle) {
			return true
		}
	}
	return false
}

// Stringify returns the display string of a decoded JSON value. nil is the
// empty string, numbers use their shortest form and nested objects or arrays
// are compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any, Row, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Truthy reports whether v counts as set: non-nil, non-zero, non-empty and
// not the string "false" or "0".
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "false" && s != "0"
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case Row:
		return len(t) > 0
	case []any:
		return true
	default:
		return true
	}
}
