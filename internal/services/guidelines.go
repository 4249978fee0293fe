package services

import (
	"context"
	"strings"

	"designkit/internal/breaker"
	"designkit/internal/data"
	"designkit/internal/errdefs"
)

// GuidelineFilter narrows a guideline listing. Zero value means no
// filtering.
type GuidelineFilter struct {
	// Category restricts results to one category (case-insensitive).
	Category string

	// Tag restricts results to guidelines carrying the tag
	// (case-insensitive).
	Tag string
}

// GuidelineService is the read-only query facade over usage guidelines.
type GuidelineService struct {
	data    *data.Manager
	breaker *breaker.Breaker
}

// NewGuidelineService creates the guideline facade with its shared breaker.
func NewGuidelineService(m *data.Manager, reg *breaker.Registry, cfg breaker.Config) (*GuidelineService, error) {
	cfg.Name = GuidelineBreakerName
	b, err := reg.GetOrCreate(cfg)
	if err != nil {
		return nil, err
	}
	return &GuidelineService{data: m, breaker: b}, nil
}

// List returns the guidelines matching the filter, in dataset order.
func (s *GuidelineService) List(ctx context.Context, filter GuidelineFilter) ([]data.Guideline, error) {
	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) ([]data.Guideline, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return nil, err
		}

		var guidelines []data.Guideline
		for _, g := range snapshot.Guidelines {
			if filter.Category != "" && !strings.EqualFold(g.Category, filter.Category) {
				continue
			}
			if filter.Tag != "" && !anyEqualFold(g.Tags, filter.Tag) {
				continue
			}
			guidelines = append(guidelines, g)
		}
		return guidelines, nil
	})
}

// Get returns the first guideline whose id matches case-insensitively. A
// missing guideline fails with ResourceNotFound listing the known ids.
func (s *GuidelineService) Get(ctx context.Context, id string) (data.Guideline, error) {
	id, err := requireIdentifier("id", id)
	if err != nil {
		return data.Guideline{}, err
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) (data.Guideline, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return data.Guideline{}, err
		}

		for _, g := range snapshot.Guidelines {
			if strings.EqualFold(g.ID, id) {
				return g, nil
			}
		}

		ids := make([]string, 0, len(snapshot.Guidelines))
		for _, g := range snapshot.Guidelines {
			ids = append(ids, g.ID)
		}
		return data.Guideline{}, errdefs.Newf(errdefs.ResourceNotFound, "guideline %q not found", id).
			WithContext("id", id).
			WithSuggestions(availableList("guidelines", ids))
	})
}

// Search returns the guidelines whose title, content, category or tags
// contain the query as a case-insensitive substring.
func (s *GuidelineService) Search(ctx context.Context, query string) ([]data.Guideline, error) {
	query, err := requireIdentifier("query", query)
	if err != nil {
		return nil, err
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) ([]data.Guideline, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return nil, err
		}

		var guidelines []data.Guideline
		for _, g := range snapshot.Guidelines {
			if containsFold(g.Title, query) ||
				containsFold(g.Content, query) ||
				containsFold(g.Category, query) ||
				anyContainsFold(g.Tags, query) {
				guidelines = append(guidelines, g)
			}
		}
		return guidelines, nil
	})
}

// ForComponent returns the guidelines related to the named component.
// Relations are name references; an unknown component yields an empty list,
// not an error.
func (s *GuidelineService) ForComponent(ctx context.Context, component string) ([]data.Guideline, error) {
	component, err := requireIdentifier("component", component)
	if err != nil {
		return nil, err
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) ([]data.Guideline, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return nil, err
		}

		var guidelines []data.Guideline
		for _, g := range snapshot.Guidelines {
			if anyEqualFold(g.RelatedComponents, component) {
				guidelines = append(guidelines, g)
			}
		}
		return guidelines, nil
	})
}

// ForToken returns the guidelines related to the named token. An unknown
// token yields an empty list, not an error.
func (s *GuidelineService) ForToken(ctx context.Context, token string) ([]data.Guideline, error) {
	token, err := requireIdentifier("token", token)
	if err != nil {
		return nil, err
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) ([]data.Guideline, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return nil, err
		}

		var guidelines []data.Guideline
		for _, g := range snapshot.Guidelines {
			if anyEqualFold(g.RelatedTokens, token) {
				guidelines = append(guidelines, g)
			}
		}
		return guidelines, nil
	})
}
