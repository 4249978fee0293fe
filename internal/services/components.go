package services

import (
	"context"
	"strings"

	"designkit/internal/breaker"
	"designkit/internal/data"
	"designkit/internal/errdefs"
)

// ComponentFilter narrows a component listing. Zero value means no
// filtering.
type ComponentFilter struct {
	// Category restricts results to one free-form category
	// (case-insensitive).
	Category string
}

// ComponentService is the read-only query facade over UI component specs.
type ComponentService struct {
	data    *data.Manager
	breaker *breaker.Breaker
}

// NewComponentService creates the component facade with its shared breaker.
func NewComponentService(m *data.Manager, reg *breaker.Registry, cfg breaker.Config) (*ComponentService, error) {
	cfg.Name = ComponentBreakerName
	b, err := reg.GetOrCreate(cfg)
	if err != nil {
		return nil, err
	}
	return &ComponentService{data: m, breaker: b}, nil
}

// List returns the components matching the filter, in dataset order.
func (s *ComponentService) List(ctx context.Context, filter ComponentFilter) ([]data.Component, error) {
	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) ([]data.Component, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return nil, err
		}

		var components []data.Component
		for _, c := range snapshot.Components {
			if filter.Category != "" && !strings.EqualFold(c.Category, filter.Category) {
				continue
			}
			components = append(components, c)
		}
		return components, nil
	})
}

// Get returns the first component whose name matches case-insensitively. A
// missing component fails with ResourceNotFound listing the known names.
func (s *ComponentService) Get(ctx context.Context, name string) (data.Component, error) {
	name, err := requireIdentifier("name", name)
	if err != nil {
		return data.Component{}, err
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) (data.Component, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return data.Component{}, err
		}

		for _, c := range snapshot.Components {
			if strings.EqualFold(c.Name, name) {
				return c, nil
			}
		}

		names := make([]string, 0, len(snapshot.Components))
		for _, c := range snapshot.Components {
			names = append(names, c.Name)
		}
		return data.Component{}, errdefs.Newf(errdefs.ResourceNotFound, "component %q not found", name).
			WithContext("name", name).
			WithSuggestions(availableList("components", names))
	})
}

// Search returns the components whose name, description, category or
// guideline texts contain the query as a case-insensitive substring.
func (s *ComponentService) Search(ctx context.Context, query string) ([]data.Component, error) {
	query, err := requireIdentifier("query", query)
	if err != nil {
		return nil, err
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) ([]data.Component, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return nil, err
		}

		var components []data.Component
		for _, c := range snapshot.Components {
			if containsFold(c.Name, query) ||
				containsFold(c.Description, query) ||
				containsFold(c.Category, query) ||
				anyContainsFold(c.Guidelines, query) {
				components = append(components, c)
			}
		}
		return components, nil
	})
}
