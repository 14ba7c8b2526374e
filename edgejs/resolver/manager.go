package resolver

import (
	"fmt"
)

// StandardManager groups resolvers by URL scheme and, on resolve, tries each
// registered resolver for the specifier's scheme in registration order until
// one succeeds — the Go translation of
// original_source/src/module_resolver.rs's StandardModuleResolverManager.
type StandardManager struct {
	byScheme          map[string][]Resolver
	defaultWorkingURL string
}

// NewStandardManager groups resolvers by Protocol().
func NewStandardManager(resolvers []Resolver, defaultWorkingURL string) *StandardManager {
	byScheme := make(map[string][]Resolver)
	for _, r := range resolvers {
		scheme := r.Protocol()
		byScheme[scheme] = append(byScheme[scheme], r)
	}
	return &StandardManager{byScheme: byScheme, defaultWorkingURL: defaultWorkingURL}
}

func (m *StandardManager) Resolve(specifier string, referer *RefererInfo) (LoadedModule, error) {
	refererOrigin := m.defaultWorkingURL
	if referer != nil {
		refererOrigin = referer.OriginURL
	}

	specURL, err := ParseURL(specifier, refererOrigin)
	if err != nil {
		return LoadedModule{}, fmt.Errorf("resolver: parse %s from %s: %w", specifier, refererOrigin, err)
	}

	resolvers, ok := m.byScheme[specURL.Scheme]
	if !ok {
		return LoadedModule{}, fmt.Errorf("resolver: no resolvers registered for scheme %q (specifier %s)", specURL.Scheme, specifier)
	}

	var lastErr error
	for _, r := range resolvers {
		data, err := r.Resolve(specifier, referer)
		if err != nil {
			lastErr = err
			continue
		}
		loaded, err := data.Loader.Load()
		if err != nil {
			return LoadedModule{}, fmt.Errorf("resolver: load %s: %w", data.OriginURL, err)
		}
		return LoadedModule{Loaded: loaded, OriginURL: data.OriginURL}, nil
	}

	return LoadedModule{}, fmt.Errorf("resolver: exhausted all resolvers for %s from %s: %w", specifier, refererOrigin, lastErr)
}
