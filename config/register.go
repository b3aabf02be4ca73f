package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Register makes a configuration path known to the Config instance.
// The path is dot-separated (e.g., "server.port"); each segment is a TOML bare key,
// optionally followed by index suffixes such as "hosts[0]".
// defaultValue is returned by Get while no source provides a value.
func (c *Config) Register(path string, defaultValue any) error {
	if err := validatePath(path); err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	item := c.items[path]
	item.defaultValue = defaultValue
	item.currentValue = c.computeValue(item)
	c.items[path] = item
	return nil
}

// Unregister removes a configuration path and all its children.
func (c *Config) Unregister(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	prefix := path + "."
	found := false
	for p := range c.items {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(c.items, p)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	return nil
}

// RegisterStruct registers the fields of a struct as defaults. Paths come from the
// configured tag name ("toml" unless changed), nested structs add a segment.
// An empty prefix is allowed.
func (c *Config) RegisterStruct(prefix string, structWithDefaults any) error {
	v := reflect.ValueOf(structWithDefaults)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("RegisterStruct requires a non-nil struct pointer or value")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("RegisterStruct requires a struct or struct pointer, got %T", structWithDefaults)
	}

	c.mutex.RLock()
	tag := c.tagName
	c.mutex.RUnlock()

	var errs []string
	c.registerFields(v, strings.TrimSuffix(prefix, "."), tag, &errs)
	if len(errs) > 0 {
		return fmt.Errorf("failed to register %d field(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) registerFields(v reflect.Value, prefix, tagName string, errs *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		key := field.Name
		if tag := field.Tag.Get(tagName); tag != "" {
			if tag == "-" {
				continue
			}
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				key = name
			}
		}

		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		fieldValue := v.Field(i)
		if fieldValue.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct {
			if fieldValue.IsNil() {
				continue
			}
			fieldValue = fieldValue.Elem()
		}
		if fieldValue.Kind() == reflect.Struct && !isLeafStruct(fieldValue.Type()) {
			c.registerFields(fieldValue, path, tagName, errs)
			continue
		}

		if err := c.Register(path, fieldValue.Interface()); err != nil {
			*errs = append(*errs, fmt.Sprintf("field %s (path %s): %v", field.Name, path, err))
		}
	}
}

// GetRegisteredPaths returns all registered paths with the given prefix.
func (c *Config) GetRegisteredPaths(prefix string) map[string]bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make(map[string]bool)
	for path := range c.items {
		if strings.HasPrefix(path, prefix) {
			result[path] = true
		}
	}
	return result
}
