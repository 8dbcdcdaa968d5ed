package config

import (
	"tkexport/internal/cascade"
)

// Plan returns the table plan of the export: the default timekeeping plan,
// or the configured table list when one is given.
func (e Export) Plan() (*cascade.Plan, error) {
	if len(e.Tables) == 0 {
		return cascade.DefaultPlan(), nil
	}
	specs := make([]cascade.TableSpec, len(e.Tables))
	for i, t := range e.Tables {
		role := cascade.RoleDependent
		if i == 0 {
			role = cascade.RoleMain
		}
		specs[i] = cascade.TableSpec{
			Name:      t.Name,
			Role:      role,
			Parent:    t.Parent,
			FilterKey: t.FilterKey,
			ParentKey: t.ParentKey,
			Mode:      cascade.Mode(t.Mode),
		}
	}
	return cascade.NewPlan(specs)
}
