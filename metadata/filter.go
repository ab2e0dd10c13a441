package metadata

// condition matches a field against one or more accepted values (OR).
type condition struct {
	field  string
	values []any
}

// FilterSet is a conjunction of field conditions: every condition must
// match (AND), and within a condition any listed value may match (OR).
//
// Example:
//
//	fs := metadata.NewFilterSet().
//	    Eq("category", "tech").
//	    In("year", 2023, 2024)
type FilterSet struct {
	conditions []condition
}

// NewFilterSet creates an empty filter set.
func NewFilterSet() *FilterSet {
	return &FilterSet{}
}

// Eq adds a condition requiring field == value.
func (fs *FilterSet) Eq(field string, value any) *FilterSet {
	fs.conditions = append(fs.conditions, condition{field: field, values: []any{value}})
	return fs
}

// In adds a condition requiring field to equal one of the given values.
func (fs *FilterSet) In(field string, values ...any) *FilterSet {
	fs.conditions = append(fs.conditions, condition{field: field, values: values})
	return fs
}

// Empty reports whether the filter set has no conditions.
func (fs *FilterSet) Empty() bool {
	return fs == nil || len(fs.conditions) == 0
}
