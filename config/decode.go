package config

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Scan decodes the merged configuration under basePath into target, a non-nil pointer
// to a struct or map. Fields are matched by the configured tag name.
func (c *Config) Scan(basePath string, target any) error {
	return c.unmarshal(basePath, "", target)
}

// ScanSource is like Scan but reads only the values held by one source.
func (c *Config) ScanSource(basePath string, source Source, target any) error {
	return c.unmarshal(basePath, source, target)
}

// unmarshal is the single decoding path behind Scan and ScanSource.
func (c *Config) unmarshal(basePath string, source Source, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be non-nil pointer, got %T", target)
	}

	c.mutex.RLock()
	nestedMap := make(map[string]any)
	for path, item := range c.items {
		if source == "" {
			setNestedValue(nestedMap, path, item.currentValue)
		} else if val, exists := item.values[source]; exists {
			setNestedValue(nestedMap, path, val)
		}
	}
	tagName := c.tagName
	c.mutex.RUnlock()

	foldIndexedKeys(nestedMap)
	sectionData := navigateToPath(nestedMap, basePath)
	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		if sectionData != nil {
			return fmt.Errorf("path %q refers to non-map value (type %T)", basePath, sectionData)
		}
		sectionMap = make(map[string]any)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tagName,
		WeaklyTypedInput: true,
		DecodeHook:       DecodeHook(),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", basePath, err)
	}
	return nil
}

// DecodeHook returns the composite hook used for all configuration decoding.
// It is exported so other packages decoding loosely typed values (directive
// arguments, property values) convert them the same way.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToIPHookFunc(),
		mapstructure.StringToIPNetHookFunc(),
		stringToURLHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringToURLHookFunc handles url.URL and *url.URL targets.
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}

// foldIndexedKeys turns sibling keys "name[0]", "name[1]" into a slice under "name",
// recursively. A bare "name" key, if present, is replaced. Gaps are left nil.
func foldIndexedKeys(m map[string]any) {
	indexed := make(map[string]map[int]any)
	for key, value := range m {
		if sub, isMap := value.(map[string]any); isMap {
			foldIndexedKeys(sub)
		}
		base, rest, found := strings.Cut(key, "[")
		if !found || base == "" {
			continue
		}
		digits, ok := strings.CutSuffix(rest, "]")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(digits)
		if err != nil || idx < 0 {
			continue
		}
		if indexed[base] == nil {
			indexed[base] = make(map[int]any)
		}
		indexed[base][idx] = value
		delete(m, key)
	}

	for base, elems := range indexed {
		size := 0
		for idx := range elems {
			size = max(size, idx+1)
		}
		list := make([]any, size)
		for idx, value := range elems {
			list[idx] = value
		}
		m[base] = list
	}
}
