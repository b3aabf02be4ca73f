package config

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"
)

var leafStructs = map[reflect.Type]bool{
	reflect.TypeOf(time.Time{}): true,
	reflect.TypeOf(url.URL{}):   true,
	reflect.TypeOf(net.IPNet{}): true,
}

// isLeafStruct reports struct types that are stored as single values rather than expanded.
func isLeafStruct(t reflect.Type) bool {
	return leafStructs[t]
}

// flattenMap converts a nested map to a flat map with dot-notation paths.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for key, value := range nested {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if sub, isMap := value.(map[string]any); isMap {
			for subPath, subValue := range flattenMap(sub, path) {
				flat[subPath] = subValue
			}
			continue
		}
		flat[path] = value
	}
	return flat
}

// setNestedValue sets a value in a nested map using a dot-notation path,
// creating intermediate maps and replacing non-map values on the way.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested
	for _, segment := range segments[:len(segments)-1] {
		next, isMap := current[segment].(map[string]any)
		if !isMap {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// navigateToPath walks a nested map to the section at path. It returns nil when absent.
func navigateToPath(nested map[string]any, path string) any {
	path = strings.TrimSuffix(path, ".")
	if path == "" {
		return nested
	}

	current := any(nested)
	for _, segment := range strings.Split(path, ".") {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		value, exists := currentMap[segment]
		if !exists {
			return nil
		}
		current = value
	}
	return current
}

// validatePath checks every segment of a dotted path.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}
	for _, segment := range strings.Split(path, ".") {
		if !isValidKeySegment(segment) {
			return fmt.Errorf("%w: invalid segment %q in %q", ErrInvalidPath, segment, path)
		}
	}
	return nil
}

// isValidKeySegment checks a TOML bare key (A-Za-z0-9_-) optionally followed by
// one or more index suffixes ("name[0][1]").
func isValidKeySegment(s string) bool {
	base, indices, _ := strings.Cut(s, "[")
	if base == "" {
		return false
	}
	for _, r := range base {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	if indices == "" && !strings.Contains(s, "[") {
		return true
	}

	// indices holds "0][1]" after the first "["
	for _, part := range strings.Split(indices, "[") {
		digits, ok := strings.CutSuffix(part, "]")
		if !ok || digits == "" {
			return false
		}
		for _, r := range digits {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
