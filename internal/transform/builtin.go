package transform

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknown is returned by Builtin for names it does not know.
var ErrUnknown = errors.New("unknown transformation")

var builtins = map[string]Func{
	"uuid":     Nullary(func() (any, error) { return uuid.NewString(), nil }),
	"now":      Nullary(func() (any, error) { return time.Now().UTC(), nil }),
	"null":     Null(),
	"downcase": stringFunc(strings.ToLower),
	"upcase":   stringFunc(strings.ToUpper),
	"trim":     stringFunc(strings.TrimSpace),
	"integer":  Unary(toInteger),
}

// Builtin returns the named transformation for declarative seeders.
func Builtin(name string) (Func, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	return fn, nil
}

// Names lists the builtin transformations.
func Names() []string {
	return slices.Sorted(maps.Keys(builtins))
}

// Null turns the literal string "NULL" into a nil value and passes anything
// else through. Seeders opt in per field; nothing is coerced implicitly.
func Null() Unary {
	return func(old any) (any, error) {
		if s, ok := old.(string); ok && s == "NULL" {
			return nil, nil
		}
		return old, nil
	}
}

// stringFunc applies f to string values and leaves other values untouched.
func stringFunc(f func(string) string) Unary {
	return func(old any) (any, error) {
		if s, ok := old.(string); ok {
			return f(s), nil
		}
		return old, nil
	}
}

func toInteger(old any) (any, error) {
	s, ok := old.(string)
	if !ok {
		return old, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse integer %q: %w", s, err)
	}
	return n, nil
}
