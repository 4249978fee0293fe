package services

import (
	"context"
	"strings"

	"designkit/internal/breaker"
	"designkit/internal/data"
	"designkit/internal/errdefs"
)

// TokenFilter narrows a token listing. Zero value means no filtering.
type TokenFilter struct {
	// Category restricts results to one token category (case-insensitive).
	Category string

	// Deprecated, when set, restricts results by the deprecated flag.
	Deprecated *bool
}

// TokenService is the read-only query facade over design tokens.
type TokenService struct {
	data    *data.Manager
	breaker *breaker.Breaker
}

// NewTokenService creates the token facade. The breaker is obtained from the
// registry under the shared token-service name, so concurrent callers share
// one instance.
func NewTokenService(m *data.Manager, reg *breaker.Registry, cfg breaker.Config) (*TokenService, error) {
	cfg.Name = TokenBreakerName
	b, err := reg.GetOrCreate(cfg)
	if err != nil {
		return nil, err
	}
	return &TokenService{data: m, breaker: b}, nil
}

// List returns the tokens matching the filter, in dataset order.
func (s *TokenService) List(ctx context.Context, filter TokenFilter) ([]data.DesignToken, error) {
	if filter.Category != "" {
		if !validCategory(filter.Category) {
			return nil, errdefs.Newf(errdefs.ValidationFailed, "unknown token category %q", filter.Category).
				WithSuggestions(availableList("categories", categoryNames()))
		}
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) ([]data.DesignToken, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return nil, err
		}

		var tokens []data.DesignToken
		for _, t := range snapshot.Tokens {
			if filter.Category != "" && !strings.EqualFold(string(t.Category), filter.Category) {
				continue
			}
			if filter.Deprecated != nil && t.Deprecated != *filter.Deprecated {
				continue
			}
			tokens = append(tokens, t)
		}
		return tokens, nil
	})
}

// Get returns the first token whose name matches case-insensitively. A
// missing token fails with ResourceNotFound listing the known token names.
func (s *TokenService) Get(ctx context.Context, name string) (data.DesignToken, error) {
	name, err := requireIdentifier("name", name)
	if err != nil {
		return data.DesignToken{}, err
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) (data.DesignToken, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return data.DesignToken{}, err
		}

		for _, t := range snapshot.Tokens {
			if strings.EqualFold(t.Name, name) {
				return t, nil
			}
		}

		names := make([]string, 0, len(snapshot.Tokens))
		for _, t := range snapshot.Tokens {
			names = append(names, t.Name)
		}
		return data.DesignToken{}, errdefs.Newf(errdefs.ResourceNotFound, "token %q not found", name).
			WithContext("name", name).
			WithSuggestions(availableList("tokens", names))
	})
}

// Search returns the tokens whose name, description, category, value, usage
// contexts or aliases contain the query as a case-insensitive substring.
func (s *TokenService) Search(ctx context.Context, query string) ([]data.DesignToken, error) {
	query, err := requireIdentifier("query", query)
	if err != nil {
		return nil, err
	}

	return breaker.Execute(ctx, s.breaker, func(ctx context.Context) ([]data.DesignToken, error) {
		snapshot, err := snapshotOrError(s.data)
		if err != nil {
			return nil, err
		}

		var tokens []data.DesignToken
		for _, t := range snapshot.Tokens {
			if containsFold(t.Name, query) ||
				containsFold(t.Description, query) ||
				containsFold(string(t.Category), query) ||
				containsFold(t.Value.String(), query) ||
				anyContainsFold(t.Usage, query) ||
				anyContainsFold(t.Aliases, query) {
				tokens = append(tokens, t)
			}
		}
		return tokens, nil
	})
}

func validCategory(category string) bool {
	for _, c := range data.Categories() {
		if strings.EqualFold(string(c), category) {
			return true
		}
	}
	return false
}

func categoryNames() []string {
	cats := data.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return names
}
