package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
)

// ParsePluginOption parses a "plugin.option=value" assignment as given to -k.
func ParsePluginOption(s string) (plugin, name string, value int, err error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", 0, core.ErrValidation(core.CodeInvalidOption,
			fmt.Sprintf("option %q: expected plugin.option=value", s))
	}

	plugin, name, ok = strings.Cut(strings.TrimSpace(key), ".")
	if !ok || plugin == "" || name == "" {
		return "", "", 0, core.ErrValidation(core.CodeInvalidOption,
			fmt.Sprintf("option %q: expected plugin.option=value", s))
	}

	value, err = strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", "", 0, core.ErrValidation(core.CodeInvalidOption,
			fmt.Sprintf("option %q: value must be an integer", s)).WithCause(err)
	}
	return strings.ToLower(plugin), strings.ToLower(name), value, nil
}

// MergePluginOptions applies -k assignments over the configured options.
func (p *PluginsConfig) MergePluginOptions(assignments []string) error {
	for _, a := range assignments {
		plugin, name, value, err := ParsePluginOption(a)
		if err != nil {
			return err
		}
		if p.Options == nil {
			p.Options = make(map[string]map[string]int)
		}
		if p.Options[plugin] == nil {
			p.Options[plugin] = make(map[string]int)
		}
		p.Options[plugin][name] = value
	}
	return nil
}
