package webapi

import "strings"

// EntitySetName returns the Web API collection name of an entity type.
// overrides wins over the default pluralization.
func EntitySetName(logicalName string, overrides map[string]string) string {
	if set, ok := overrides[logicalName]; ok && set != "" {
		return set
	}

	name := strings.ToLower(logicalName)
	switch {
	case strings.HasSuffix(name, "y") && len(name) > 1 && !strings.ContainsRune("aeiou", rune(name[len(name)-2])):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(name, "s"), strings.HasSuffix(name, "x"),
		strings.HasSuffix(name, "ch"), strings.HasSuffix(name, "sh"):
		return name + "es"
	default:
		return name + "s"
	}
}
