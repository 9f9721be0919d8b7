package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Comment schema: ordered Key=Value pairs joined by ", ". A backslash escapes
// '\', ',' and '=' inside keys and values.
const (
	pairSep  = ", "
	valueSep = '='
	escape   = '\\'
)

var errMalformed = errors.New("malformed parameter comment")

// legacy comments wrote "Temp" for temperature
var aliases = map[string]string{"temp": Temperature}

// FormatComment encodes s as the provenance comment stamped into outputs.
func FormatComment(s Set) string {
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		v, _ := s.Get(name)
		pairs = append(pairs, escapeField(Label(name))+string(valueSep)+escapeField(Format(v)))
	}
	return strings.Join(pairs, pairSep)
}

// ParseComment decodes a comment into lower-case name → raw value. Any
// structural problem yields an error; callers degrade it to "N/A".
func ParseComment(comment string) (map[string]string, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: empty", errMalformed)
	}
	out := make(map[string]string)
	var (
		field   strings.Builder
		key     string
		haveKey bool
		escaped bool
	)
	flush := func() error {
		if !haveKey {
			return fmt.Errorf("%w: pair %q has no %q", errMalformed, field.String(), valueSep)
		}
		k := strings.ToLower(strings.TrimSpace(key))
		if k == "" {
			return fmt.Errorf("%w: empty key", errMalformed)
		}
		if alias, ok := aliases[k]; ok {
			k = alias
		}
		out[k] = strings.TrimSpace(field.String())
		field.Reset()
		key, haveKey = "", false
		return nil
	}

	for i := 0; i < len(comment); i++ {
		c := comment[i]
		switch {
		case escaped:
			field.WriteByte(c)
			escaped = false
		case c == escape:
			escaped = true
		case c == valueSep:
			if haveKey {
				return nil, fmt.Errorf("%w: repeated %q in pair", errMalformed, valueSep)
			}
			key, haveKey = field.String(), true
			field.Reset()
		case c == ',':
			if err := flush(); err != nil {
				return nil, err
			}
			if i+1 < len(comment) && comment[i+1] == ' ' {
				i++
			}
		default:
			field.WriteByte(c)
		}
	}
	if escaped {
		return nil, fmt.Errorf("%w: dangling escape", errMalformed)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetFromComment parses a comment back into a Set. Every adjustment must be
// present and numeric.
func SetFromComment(comment string) (Set, error) {
	raw, err := ParseComment(comment)
	if err != nil {
		return Set{}, err
	}
	var s Set
	for _, name := range names {
		v, ok := raw[name]
		if !ok {
			return Set{}, fmt.Errorf("%w: missing %s", errMalformed, name)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Set{}, fmt.Errorf("%w: %s=%q", errMalformed, name, v)
		}
		s.set(name, f)
	}
	return s, nil
}

func escapeField(s string) string {
	if !strings.ContainsAny(s, `\,=`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case escape, ',', valueSep:
			b.WriteByte(escape)
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
