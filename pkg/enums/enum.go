package enums

import (
	"fmt"
	"slices"
)

func oneOf[T ~string](value T, valid []T) bool {
	return slices.Contains(valid, value)
}

func parse[T ~string](raw string, valid []T, label string) (T, error) {
	if v := T(raw); oneOf(v, valid) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", label, raw)
}
