package utils

import (
	"fmt"
	"sort"
	"strings"
)

// NormalizeBooleanFlags rewrites args so that "--flag false" becomes "--flag=false" for known boolean flags.
// pflag, like the standard flag package, treats a bare boolean flag as true and
// would otherwise read the following "false" as a positional argument.
//
// Pass os.Args[1:] and the set of boolean flag names.
func NormalizeBooleanFlags(args []string, booleanFlags map[string]struct{}) []string {
	normalized := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		current := args[i]
		if current == "--" {
			normalized = append(normalized, args[i:]...)
			break
		}

		if strings.HasPrefix(current, "-") && !strings.Contains(current, "=") && i+1 < len(args) {
			prefix := "-"
			if strings.HasPrefix(current, "--") {
				prefix = "--"
			}
			name := strings.TrimLeft(current, "-")
			if _, ok := booleanFlags[name]; ok {
				next := strings.ToLower(args[i+1])
				if next == "true" || next == "false" {
					normalized = append(normalized, fmt.Sprintf("%s%s=%s", prefix, name, next))
					i++
					continue
				}
			}
		}

		normalized = append(normalized, current)
	}

	return normalized
}

// HeaderFlag collects repeated --header Name=Value entries. It satisfies pflag.Value.
type HeaderFlag struct {
	Headers map[string]string
}

func (h *HeaderFlag) String() string {
	if len(h.Headers) == 0 {
		return ""
	}
	names := make([]string, 0, len(h.Headers))
	for name := range h.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func (h *HeaderFlag) Set(val string) error {
	name, value, _ := strings.Cut(val, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("header must be in Name=Value form, got %q", val)
	}
	if h.Headers == nil {
		h.Headers = map[string]string{}
	}
	h.Headers[name] = value
	return nil
}

func (h *HeaderFlag) Type() string { return "header" }
