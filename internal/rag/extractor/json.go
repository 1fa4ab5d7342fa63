package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

type member struct {
	key   string
	value json.RawMessage
}

// RenderJSON renders a JSON object into prose lines, keeping key order:
//
//	scalar  -> "Key: value"
//	object  -> "Key:" then "  Sub Key: value" per entry
//	array   -> "Key:" then "- value" per scalar element,
//	           or "  - Field: value" per field of an object element
//
// Keys are title-cased with underscores turned into spaces.
func RenderJSON(data []byte) (string, error) {
	members, err := objectMembers(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, m := range members {
		heading := titleCase(m.key)

		switch kind(m.value) {
		case '{':
			entries, err := objectMembers(m.value)
			if err != nil {
				return "", fmt.Errorf("key %q: %w", m.key, err)
			}
			sb.WriteString(heading + ":\n")
			for _, e := range entries {
				fmt.Fprintf(&sb, "  %s: %s\n", titleCase(e.key), scalarText(e.value))
			}

		case '[':
			var items []json.RawMessage
			if err := json.Unmarshal(m.value, &items); err != nil {
				return "", fmt.Errorf("key %q: %w", m.key, err)
			}
			sb.WriteString(heading + ":\n")
			for _, item := range items {
				if kind(item) != '{' {
					fmt.Fprintf(&sb, "- %s\n", scalarText(item))
					continue
				}
				fields, err := objectMembers(item)
				if err != nil {
					return "", fmt.Errorf("key %q: %w", m.key, err)
				}
				for _, f := range fields {
					fmt.Fprintf(&sb, "  - %s: %s\n", titleCase(f.key), scalarText(f.value))
				}
			}

		default:
			fmt.Fprintf(&sb, "%s: %s\n", heading, scalarText(m.value))
		}
	}

	return sb.String(), nil
}

// objectMembers decodes a JSON object into its members in document order
func objectMembers(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("json document must be an object")
	}

	var members []member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parse json: unexpected key token %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("parse json value of %q: %w", key, err)
		}
		members = append(members, member{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return members, nil
}

// kind returns the first significant byte of a JSON value
func kind(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// scalarText renders a value on a single line: strings unquoted, everything else as compact JSON
func scalarText(raw json.RawMessage) string {
	if kind(raw) == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// titleCase upper-cases the first letter of every word and lower-cases the rest
func titleCase(key string) string {
	key = strings.ReplaceAll(key, "_", " ")

	var sb strings.Builder
	prevLetter := false
	for _, r := range key {
		if unicode.IsLetter(r) {
			if prevLetter {
				r = unicode.ToLower(r)
			} else {
				r = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
