package diff

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
	"unicode"
)

// EmptyMarker is displayed in place of missing or empty values.
const EmptyMarker = "(empty)"

type State string

const (
	StateChanged   State = "changed"
	StateUnchanged State = "unchanged"
)

// Line is one rendered row of a comparison. Depth is 0 for top level keys.
type Line struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Before string `json:"before"`
	After  string `json:"after"`
	State  State  `json:"state"`
	Depth  int    `json:"depth"`
}

func (l Line) Changed() bool {
	return l.State == StateChanged
}

// Labels maps field keys to display labels. Keys may be dotted paths ("ispInfo.name").
type Labels map[string]string

// Label resolves the full key first, then its last segment, then falls back to a humanized key.
func (l Labels) Label(key string) string {
	if v, ok := l[key]; ok {
		return v
	}
	last := key
	if i := strings.LastIndex(key, "."); i >= 0 {
		last = key[i+1:]
	}
	if v, ok := l[last]; ok {
		return v
	}
	return Humanize(last)
}

// Render lists every key of current with its before/after display values.
// It returns nil when the snapshots are equal so callers can hide the changes block.
func Render(previous, current map[string]any, labels Labels) []Line {
	if IsEmpty(previous, current) {
		return nil
	}
	var lines []Line
	renderMap(&lines, "", 0, previous, current, labels)
	return lines
}

func renderMap(lines *[]Line, prefix string, depth int, previous, current map[string]any, labels Labels) {
	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		before, after := previous[k], current[k]
		state := StateUnchanged
		if !Equal(before, after) {
			state = StateChanged
		}

		nested, ok := asMap(after)
		if !ok || len(nested) == 0 {
			*lines = append(*lines, Line{
				Key:    path,
				Label:  labels.Label(path),
				Before: Display(before),
				After:  Display(after),
				State:  state,
				Depth:  depth,
			})
			continue
		}

		*lines = append(*lines, Line{
			Key:   path,
			Label: labels.Label(path),
			State: state,
			Depth: depth,
		})
		prevNested, _ := asMap(before)
		renderMap(lines, path, depth+1, prevNested, nested, labels)
	}
}

func asMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if !isStringMap(rv) {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	for _, k := range rv.MapKeys() {
		out[k.String()] = rv.MapIndex(k).Interface()
	}
	return out, true
}

// Display formats a value for a diff line.
func Display(v any) string {
	if isEmptyValue(v) {
		return EmptyMarker
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	}
	if d, ok := toDecimal(v); ok {
		return d.String()
	}
	rv := reflect.ValueOf(v)
	if isList(rv) {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, Display(rv.Index(i).Interface()))
		}
		return strings.Join(parts, ", ")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Humanize turns "transactionType" or "subscriber_id" into "Transaction Type" / "Subscriber Id".
func Humanize(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}
