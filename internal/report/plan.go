package report

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
)

// PluginPlan describes what a run would do for one plugin.
type PluginPlan struct {
	Name      string         `yaml:"name"`
	Enabled   bool           `yaml:"enabled"`
	Reason    string         `yaml:"reason"`
	Options   map[string]int `yaml:"options,omitempty"`
	CopySpecs []string       `yaml:"copy_specs,omitempty"`
	Files     []string       `yaml:"files,omitempty"`
	Commands  []CommandEntry `yaml:"commands,omitempty"`
}

// Plan runs only the setup stage of each plugin and reports the files that
// would be copied and the commands that would run. Nothing is written and
// nothing is executed apart from package queries. Command lines are
// sanitized.
func (r *Report) Plan(ctx context.Context, plugins []core.Plugin) ([]PluginPlan, error) {
	plans := make([]PluginPlan, 0, len(plugins))
	var errs *multierror.Error

	for _, p := range plugins {
		enabled, reason := r.enablement(ctx, p)
		plan := PluginPlan{
			Name:    p.Name(),
			Enabled: enabled,
			Reason:  reason,
			Options: r.effectiveOptions(p),
		}
		if !enabled {
			plans = append(plans, plan)
			continue
		}

		c := newPluginCollector(r, p, "", make(map[string]copiedFile))
		if err := c.setup(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("plugin %s: %w", p.Name(), err))
			plans = append(plans, plan)
			continue
		}

		plan.CopySpecs = c.copySpecs
		seen := make(map[string]bool)
		for _, spec := range c.copySpecs {
			paths, err := r.expandSpec(spec)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("plugin %s: %w", p.Name(), err))
				continue
			}
			for _, host := range paths {
				if !seen[host] {
					seen[host] = true
					plan.Files = append(plan.Files, host)
				}
			}
		}

		for i, out := range c.outputPaths() {
			plan.Commands = append(plan.Commands, CommandEntry{
				Cmd:    r.logger.Sanitize(c.commands[i].Cmd),
				Output: out,
			})
		}
		plans = append(plans, plan)
	}

	return plans, errs.ErrorOrNil()
}
