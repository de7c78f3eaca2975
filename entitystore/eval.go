package entitystore

import (
	"context"
	"strings"
)

// Loader returns every entity of a logical type. Adapters that keep records
// locally use it to run fetch expressions in memory.
type Loader func(ctx context.Context, logicalName string) ([]*Entity, error)

// Evaluate runs query against the records returned by load. String
// comparisons ignore case, matching the default collation of the remote
// store.
func Evaluate(ctx context.Context, query *Fetch, load Loader) (*EntityCollection, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	cache := map[string][]*Entity{}
	fetch := func(name string) ([]*Entity, error) {
		if records, ok := cache[name]; ok {
			return records, nil
		}
		records, err := load(ctx, name)
		if err != nil {
			return nil, err
		}
		cache[name] = records
		return records, nil
	}

	candidates, err := fetch(query.Entity.Name)
	if err != nil {
		return nil, err
	}

	columns := AllColumns()
	if query.Entity.AllAttributes == nil && len(query.Entity.Attributes) > 0 {
		names := make([]string, 0, len(query.Entity.Attributes))
		for _, attr := range query.Entity.Attributes {
			names = append(names, attr.Name)
		}
		columns = Columns(names...)
	}

	out := &EntityCollection{EntityName: query.Entity.Name}
	seen := map[string]bool{}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !MatchFilters(candidate, query.Entity.Filters) {
			continue
		}

		linked, err := matchLinks(candidate, query.Entity.Links, fetch)
		if err != nil {
			return nil, err
		}
		if !linked {
			continue
		}

		if query.Distinct {
			key := candidate.ID.String()
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		out.Entities = append(out.Entities, columns.Apply(candidate.Clone()))
		if query.Top > 0 && len(out.Entities) >= query.Top {
			break
		}
	}

	return out, nil
}

func matchLinks(candidate *Entity, links []*LinkEntity, fetch func(string) ([]*Entity, error)) (bool, error) {
	for _, link := range links {
		if !link.IsInner() {
			continue
		}

		related, err := fetch(link.Name)
		if err != nil {
			return false, err
		}

		key := candidate.GetString(link.To)
		if key == "" {
			return false, nil
		}

		found := false
		for _, rel := range related {
			if strings.EqualFold(rel.GetString(link.From), key) && MatchFilters(rel, link.Filters) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// MatchFilters reports whether e satisfies every filter.
func MatchFilters(e *Entity, filters []*Filter) bool {
	for _, f := range filters {
		if !f.Match(e) {
			return false
		}
	}
	return true
}

// Match reports whether e satisfies the filter.
func (f *Filter) Match(e *Entity) bool {
	if f == nil || len(f.Conditions) == 0 {
		return true
	}

	or := f.Type == FilterOr
	for _, c := range f.Conditions {
		ok := c.Match(e)
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	return !or
}

// Match reports whether e satisfies the condition.
func (c Condition) Match(e *Entity) bool {
	_, present := e.Get(c.Attribute)
	val := e.GetString(c.Attribute)

	switch c.Operator {
	case OperatorNull:
		return !present
	case OperatorNotNull:
		return present
	case OperatorEqual:
		return present && strings.EqualFold(val, c.Value)
	case OperatorNotEqual:
		return !present || !strings.EqualFold(val, c.Value)
	}
	return false
}
