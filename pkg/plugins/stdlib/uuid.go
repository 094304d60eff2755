package stdlib

import (
	"fmt"

	"github.com/google/uuid"

	"mercator-hq/exceller/pkg/transform/value"
)

// UUID wraps a uuid.UUID as a capability with hex, version and urn
// attributes. It renders as the canonical hyphenated string.
type UUID struct {
	id uuid.UUID
}

// Attr implements value.Attributer.
func (u UUID) Attr(name string) (any, bool) {
	switch name {
	case "hex":
		s := u.id.String()
		out := make([]byte, 0, 32)
		for i := 0; i < len(s); i++ {
			if s[i] != '-' {
				out = append(out, s[i])
			}
		}
		return string(out), true
	case "urn":
		return u.id.URN(), true
	case "version":
		return int64(u.id.Version()), true
	}
	return nil, false
}

func (u UUID) String() string { return u.id.String() }

// EqualValue implements value.Equaler.
func (u UUID) EqualValue(other any) bool {
	o, ok := other.(UUID)
	return ok && o.id == u.id
}

// MarshalJSON renders the canonical string.
func (u UUID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.id.String() + `"`), nil
}

// MarshalYAML renders the canonical string.
func (u UUID) MarshalYAML() (interface{}, error) {
	return u.id.String(), nil
}

func namespaceArg(args []any, i int) (uuid.UUID, error) {
	switch ns := args[i].(type) {
	case UUID:
		return ns.id, nil
	case string:
		return uuid.Parse(ns)
	}
	return uuid.Nil, fmt.Errorf("argument %d must be a UUID, got %s", i+1, value.KindOf(args[i]))
}

// UUIDModule returns the uuid module.
func UUIDModule() *value.Namespace {
	return module("uuid", map[string]func(args []any) (any, error){
		"uuid1": func(args []any) (any, error) {
			if err := nullary(args); err != nil {
				return nil, err
			}
			id, err := uuid.NewUUID()
			if err != nil {
				return nil, err
			}
			return UUID{id: id}, nil
		},
		"uuid4": func(args []any) (any, error) {
			if err := nullary(args); err != nil {
				return nil, err
			}
			id, err := uuid.NewRandom()
			if err != nil {
				return nil, err
			}
			return UUID{id: id}, nil
		},
		"uuid5": func(args []any) (any, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			ns, err := namespaceArg(args, 0)
			if err != nil {
				return nil, err
			}
			name, err := str(args, 1)
			if err != nil {
				return nil, err
			}
			return UUID{id: uuid.NewSHA1(ns, []byte(name))}, nil
		},
		"UUID": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("badly formed hexadecimal UUID string")
			}
			return UUID{id: id}, nil
		},
	}, map[string]any{
		"NAMESPACE_DNS":  UUID{id: uuid.NameSpaceDNS},
		"NAMESPACE_URL":  UUID{id: uuid.NameSpaceURL},
		"NAMESPACE_OID":  UUID{id: uuid.NameSpaceOID},
		"NAMESPACE_X500": UUID{id: uuid.NameSpaceX500},
	})
}
