// Package plugins holds the registry of built-in collectors.
package plugins

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/plugins/pulp"
)

// All returns every built-in plugin, sorted by name.
func All(logger *slog.Logger) []core.Plugin {
	all := []core.Plugin{
		pulp.New(logger),
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name() < all[j].Name()
	})
	return all
}

// Names returns the plugin names in order.
func Names(all []core.Plugin) []string {
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name()
	}
	return names
}

// Lookup finds a plugin by name, ignoring case.
func Lookup(all []core.Plugin, name string) (core.Plugin, bool) {
	for _, p := range all {
		if strings.EqualFold(p.Name(), strings.TrimSpace(name)) {
			return p, true
		}
	}
	return nil, false
}

// Select returns the plugins named in only, in registry order. An empty list
// selects everything. Unknown names are reported together with suggestions.
func Select(all []core.Plugin, only []string) ([]core.Plugin, error) {
	if len(only) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(only))
	var errs *multierror.Error
	for _, name := range only {
		p, ok := Lookup(all, name)
		if !ok {
			errs = multierror.Append(errs, unknownPlugin(name, Names(all)))
			continue
		}
		wanted[p.Name()] = true
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	selected := make([]core.Plugin, 0, len(wanted))
	for _, p := range all {
		if wanted[p.Name()] {
			selected = append(selected, p)
		}
	}
	return selected, nil
}

// ValidateOptions checks that every override names a known plugin option.
func ValidateOptions(all []core.Plugin, options map[string]map[string]int) error {
	var errs *multierror.Error

	plugins := make([]string, 0, len(options))
	for name := range options {
		plugins = append(plugins, name)
	}
	sort.Strings(plugins)

	for _, pluginName := range plugins {
		p, ok := Lookup(all, pluginName)
		if !ok {
			errs = multierror.Append(errs, unknownPlugin(pluginName, Names(all)))
			continue
		}

		declared := make([]string, 0, len(p.Options()))
		for _, o := range p.Options() {
			declared = append(declared, o.Name)
		}
		for optName := range options[pluginName] {
			if !contains(declared, optName) {
				errs = multierror.Append(errs, core.ErrValidation(core.CodeInvalidOption,
					fmt.Sprintf("plugin %s has no option %q%s", p.Name(), optName, didYouMean(optName, declared))).
					WithDetail("suggestions", Suggest(optName, declared)))
			}
		}
	}
	return errs.ErrorOrNil()
}

// Suggest returns candidates resembling name, best match first.
func Suggest(name string, candidates []string) []string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}

	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 && len(name) > 2 {
		matches = fuzzy.Find(name[:2], candidates)
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}

func unknownPlugin(name string, names []string) error {
	return core.ErrNotFound(core.CodeUnknownPlugin,
		fmt.Sprintf("unknown plugin %q%s", name, didYouMean(name, names))).
		WithDetail("suggestions", Suggest(name, names))
}

func didYouMean(name string, candidates []string) string {
	suggestions := Suggest(name, candidates)
	if len(suggestions) == 0 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %s?)", strings.Join(suggestions, ", "))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
