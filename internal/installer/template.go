package installer

import (
	"fmt"
	"regexp"
)

// Variables holds the substitutions available to descriptor template
// strings.
type Variables map[string]string

var templateVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand substitutes every ${NAME} occurrence in s from vars. Referencing an
// undefined name is an error. Bare $NAME forms are left untouched, so shell
// syntax in run actions survives expansion.
func Expand(s string, vars Variables) (string, error) {
	var missing string

	out := templateVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		value, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return value
	})

	if missing != "" {
		return "", fmt.Errorf("undefined template variable ${%s} in %q", missing, s)
	}
	return out, nil
}
