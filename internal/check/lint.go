package check

import (
	"errors"
	"fmt"
)

// Lint validates a check table before it runs: IDs are unique and non-empty,
// every Param names a value produced by an earlier check, and producers
// carry an extractor.
func Lint(checks []Check) error {
	var errs []error
	seen := make(map[string]struct{}, len(checks))
	produced := make(map[string]struct{})
	for i, c := range checks {
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("check %d: empty id", i))
		} else if _, ok := seen[c.ID]; ok {
			errs = append(errs, fmt.Errorf("check %q: duplicate id", c.ID))
		}
		seen[c.ID] = struct{}{}

		for _, p := range c.Params {
			if p.Name == "" || p.From == "" {
				errs = append(errs, fmt.Errorf("check %q: param needs name and source", c.ID))
				continue
			}
			if _, ok := produced[p.From]; !ok {
				errs = append(errs, fmt.Errorf("check %q: %q is not produced by an earlier check", c.ID, p.From))
			}
		}
		if c.Produces != "" {
			if c.Extract == nil {
				errs = append(errs, fmt.Errorf("check %q: produces %q without extractor", c.ID, c.Produces))
			}
			produced[c.Produces] = struct{}{}
		}
	}
	return errors.Join(errs...)
}
