package stdlib

import (
	"encoding/base64"
	"strings"
	"unicode"
	"unicode/utf8"

	"mercator-hq/exceller/pkg/transform/value"
)

func codec(enc *base64.Encoding) map[string]func(args []any) (any, error) {
	return map[string]func(args []any) (any, error){
		"encode": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			return enc.EncodeToString([]byte(s)), nil
		},
		"decode": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			b, err := enc.DecodeString(s)
			if err != nil {
				return nil, err
			}
			if !utf8.Valid(b) {
				return nil, errInvalidUTF8
			}
			return string(b), nil
		},
	}
}

// Base64Module returns the base64 module. Payloads are strings; decoded
// bytes must be valid UTF-8.
func Base64Module() *value.Namespace {
	std := codec(base64.StdEncoding)
	url := codec(base64.URLEncoding)
	return module("base64", map[string]func(args []any) (any, error){
		"b64encode":         std["encode"],
		"b64decode":         std["decode"],
		"urlsafe_b64encode": url["encode"],
		"urlsafe_b64decode": url["decode"],
	}, nil)
}

// StringsModule returns the strings module of text helpers.
func StringsModule() *value.Namespace {
	pad := func(left bool) func(args []any) (any, error) {
		return func(args []any) (any, error) {
			if err := arity(args, 2, 3); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			width, err := integer(args, 1)
			if err != nil {
				return nil, err
			}
			if width > maxWidth {
				return nil, errWidth
			}
			fill := " "
			if len(args) == 3 {
				if fill, err = str(args, 2); err != nil {
					return nil, err
				}
				if utf8.RuneCountInString(fill) != 1 {
					return nil, errFillChar
				}
			}
			n := int(width) - utf8.RuneCountInString(s)
			if n <= 0 {
				return s, nil
			}
			if left {
				return strings.Repeat(fill, n) + s, nil
			}
			return s + strings.Repeat(fill, n), nil
		}
	}
	return module("strings", map[string]func(args []any) (any, error){
		"pad_left":  pad(true),
		"pad_right": pad(false),
		"truncate": func(args []any) (any, error) {
			if err := arity(args, 2, 3); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			width, err := integer(args, 1)
			if err != nil {
				return nil, err
			}
			suffix := ""
			if len(args) == 3 {
				if suffix, err = str(args, 2); err != nil {
					return nil, err
				}
			}
			runes := []rune(s)
			if int64(len(runes)) <= width {
				return s, nil
			}
			keep := int(width) - utf8.RuneCountInString(suffix)
			if keep < 0 {
				keep = 0
			}
			return string(runes[:keep]) + suffix, nil
		},
		"slug": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			return slug(s), nil
		},
	}, nil)
}

func slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
