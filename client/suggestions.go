package client

import (
	"context"
	"slices"
	"strings"
)

// FallbackSuggestions is offered when the backend cannot produce suggestions.
var FallbackSuggestions = []string{"The bus stops", "He trips hard", "The bus speeds up"}

type SuggestionsAPI interface {
	Suggestions(ctx context.Context, projectID, prompt string) ([]string, error)
}

// FetchSuggestions returns continuation ideas for a project. On failure it
// returns the fallback list together with the error, so callers always have
// something to show.
func FetchSuggestions(ctx context.Context, api SuggestionsAPI, projectID, hint string) ([]string, error) {
	if projectID == "" {
		return nil, nil
	}
	suggestions, err := api.Suggestions(ctx, projectID, strings.TrimSpace(hint))
	if err != nil {
		return slices.Clone(FallbackSuggestions), err
	}
	return suggestions, nil
}
