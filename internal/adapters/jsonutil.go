package adapters

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const maxLineBytes = 32 * 1024 * 1024

// eachJSONLine decodes every line of a JSONL file as an object. Lines that
// are not valid JSON are skipped; tools flush partial lines while writing.
func eachJSONLine(path string, fn func(obj map[string]any)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			continue
		}
		fn(obj)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func firstByPath(obj map[string]any, path ...[]string) any {
	for _, p := range path {
		var cur any = obj
		ok := true
		for _, seg := range p {
			m, isMap := cur.(map[string]any)
			if !isMap {
				ok = false
				break
			}
			var exists bool
			cur, exists = m[seg]
			if !exists {
				ok = false
				break
			}
		}
		if ok {
			return cur
		}
	}
	return nil
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// textBlocks collects the text of a message content value: a plain string,
// or an array of blocks of which only text-like ones are kept. Tool calls,
// tool results, images and reasoning blocks are dropped.
func textBlocks(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch block := item.(type) {
			case string:
				if s := strings.TrimSpace(block); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				switch asString(block["type"]) {
				case "", "text", "input_text", "output_text":
					if s := asString(block["text"]); s != "" {
						out = append(out, s)
					}
				}
			}
		}
		return out
	}
	return nil
}

// parseTime accepts Unix seconds, Unix milliseconds and RFC 3339 strings.
func parseTime(v any) (time.Time, bool) {
	fromNumber := func(x float64) (time.Time, bool) {
		if x <= 0 {
			return time.Time{}, false
		}
		if x > 100_000_000_000 {
			return time.UnixMilli(int64(x)), true
		}
		sec := int64(x)
		return time.Unix(sec, int64((x-float64(sec))*1e9)), true
	}
	switch t := v.(type) {
	case float64:
		return fromNumber(t)
	case int64:
		return fromNumber(float64(t))
	case int:
		return fromNumber(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return fromNumber(f)
		}
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return time.Time{}, false
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return fromNumber(f)
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func joinNonEmpty(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
