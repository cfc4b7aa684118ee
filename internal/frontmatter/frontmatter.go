// Package frontmatter reads and writes the small fenced metadata blocks that
// lead skill documents and session records:
//
//	---
//	key: "value"
//	count: 3
//	---
//
// Rendering is line oriented and closed: every field occupies exactly one
// line, so strings are double-quoted with backslash escapes. Extraction is
// lenient and never fails; callers treat an empty result as "unknown".
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Delimiter fences the metadata block.
const Delimiter = "---"

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

var (
	// ErrInvalidKey indicates a field key that cannot be rendered on one line.
	ErrInvalidKey = errors.New("frontmatter: invalid key")
	// ErrUnsupportedValue indicates a value type the renderer does not handle.
	ErrUnsupportedValue = errors.New("frontmatter: unsupported value")
)

// Field is one rendered line. Value must be a string or an int.
type Field struct {
	Key   string
	Value any
}

// Render writes fields as a fenced block in the given order.
func Render(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")

	for _, f := range fields {
		if !keyPattern.MatchString(f.Key) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, f.Key)
		}

		var value string
		switch v := f.Value.(type) {
		case string:
			value = strconv.Quote(v)
		case int:
			value = strconv.Itoa(v)
		default:
			return nil, fmt.Errorf("%w: %s has type %T", ErrUnsupportedValue, f.Key, f.Value)
		}

		buf.WriteString(f.Key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteByte('\n')
	}

	buf.WriteString(Delimiter + "\n")
	return buf.Bytes(), nil
}

// Split separates the leading metadata block from the rest of the document.
// Blank lines before the opening fence are ignored. ok is false when the
// document does not start with a complete block.
func Split(doc []byte) (block, body []byte, ok bool) {
	normalized := bytes.ReplaceAll(doc, []byte("\r\n"), []byte("\n"))
	normalized = bytes.TrimLeft(normalized, " \t\n")

	firstLine, rest, found := bytes.Cut(normalized, []byte("\n"))
	if !found || string(bytes.TrimRight(firstLine, " \t")) != Delimiter {
		return nil, nil, false
	}

	offset := 0
	for offset <= len(rest) {
		line := rest[offset:]
		end := bytes.IndexByte(line, '\n')
		if end >= 0 {
			line = line[:end]
		}

		if string(bytes.TrimRight(line, " \t")) == Delimiter {
			block = rest[:offset]
			if end >= 0 {
				body = rest[offset+end+1:]
			}
			return block, body, true
		}

		if end < 0 {
			break
		}
		offset += end + 1
	}

	return nil, nil, false
}

// Extract returns the value of key from the document's leading block, or ""
// when the block or key is absent.
func Extract(doc []byte, key string) string {
	block, _, ok := Split(doc)
	if !ok {
		return ""
	}

	prefix := key + ":"
	for _, line := range strings.Split(string(block), "\n") {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		return unquote(strings.TrimSpace(line[len(prefix):]))
	}

	return ""
}

// unquote reads a scalar value: a double-quoted string with backslash
// escapes, a single-quoted string with '' escapes, or a bare word. A trailing
// " #" comment is dropped in each case.
func unquote(value string) string {
	if value == "" {
		return ""
	}

	switch value[0] {
	case '"':
		if end := closingDoubleQuote(value); end > 0 && isTrailer(value[end+1:]) {
			quoted := value[:end+1]
			if s, err := strconv.Unquote(quoted); err == nil {
				return s
			}
			return quoted[1:end]
		}
	case '\'':
		if end := closingSingleQuote(value); end > 0 && isTrailer(value[end+1:]) {
			return strings.ReplaceAll(value[1:end], "''", "'")
		}
	}

	if i := strings.Index(value, " #"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return value
}

func closingDoubleQuote(value string) int {
	for i := 1; i < len(value); i++ {
		switch value[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func closingSingleQuote(value string) int {
	for i := 1; i < len(value); i++ {
		if value[i] != '\'' {
			continue
		}
		if i+1 < len(value) && value[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

// isTrailer reports whether rest, the text after a closing quote, is empty or
// only a comment.
func isTrailer(rest string) bool {
	trimmed := strings.TrimLeft(rest, " \t")
	return trimmed == "" || (trimmed[0] == '#' && len(trimmed) < len(rest))
}
