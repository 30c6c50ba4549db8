package domain

import (
	"reflect"
	"slices"
)

// Dataset names a record type together with the table that stores it.
type Dataset struct {
	Name  string // CLI name and default file stem
	Table string
	Type  reflect.Type
}

var datasets = []Dataset{
	{Name: "ownership", Table: "ownership", Type: reflect.TypeFor[Ownership]()},
	{Name: "tech_inspections", Table: "tech_inspections", Type: reflect.TypeFor[TechInspection]()},
}

// Datasets returns the known datasets in a stable order.
func Datasets() []Dataset { return slices.Clone(datasets) }

// Names returns the dataset names.
func Names() []string {
	out := make([]string, len(datasets))
	for i, d := range datasets {
		out[i] = d.Name
	}
	return out
}

// Lookup finds a dataset by name.
func Lookup(name string) (Dataset, bool) {
	i := slices.IndexFunc(datasets, func(d Dataset) bool { return d.Name == name })
	if i < 0 {
		return Dataset{}, false
	}
	return datasets[i], true
}
