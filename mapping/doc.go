// Package mapping adapts annotation metadata into an ordered, read-only set of
// dotted configuration properties.
//
// Go has no annotations, so they are modelled explicitly: an annotation is any Go
// value, and a Registry holds the metadata of each annotation type (its name, an
// optional type-level PropertyMapping and its attributes with extraction funcs).
// A Class lists the annotation values declared on a type and points at its
// supertype.
//
// NewSource walks the class and its ancestors, most derived first. For every
// registered, non-builtin annotation it maps each attribute whose own marker, or
// failing that the type marker, enables mapping. The key is the attribute marker's
// name or the kebab-case attribute name, joined to the type prefix with a single dot.
// Slices and arrays expand to name[0], name[1], ... The first value stored under a
// key wins, so a subtype's annotations shadow its ancestors'.
//
//	reg := mapping.NewRegistry()
//	mapping.Define[Cache](reg, "AutoConfigureCache", mapping.Mapped("test.cache"),
//	    mapping.Attr("cacheProvider", nil, func(c Cache) any { return c.Provider }),
//	    mapping.Attr("regions", nil, func(c Cache) any { return c.Regions }),
//	)
//	src, err := mapping.NewSource(mapping.NewClass("MyTest", nil, Cache{"redis", []string{"a"}}), reg)
//	// test.cache.cache-provider = redis, test.cache.regions[0] = a
package mapping
