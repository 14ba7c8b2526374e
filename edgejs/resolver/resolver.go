// Package resolver implements the module resolver pipeline: a per-scheme
// chain of resolvers that turns (specifier, referrer) into a canonical
// origin URL plus a source loader, and the write-once per-isolate cache of
// loaded-module metadata keyed by the engine's identity hash. Grounded on
// original_source/src/module_resolver.rs, translated from Rust traits to Go
// interfaces.
package resolver

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RefererInfo is what the caller knows about the module doing the import.
type RefererInfo struct {
	OriginURL string
	IsWasm    bool
}

// LoadedSourceCode is what a SourceLoader yields.
type LoadedSourceCode struct {
	IsWasm    bool
	SourceMap *string
	Source    string
}

// LoadedModule is the full result handed back by a Manager.
type LoadedModule struct {
	Loaded    LoadedSourceCode
	OriginURL string
}

// SourceLoader performs the actual (possibly deferred) read of module bytes.
type SourceLoader interface {
	Load() (LoadedSourceCode, error)
}

// ModuleSourceData is what a single Resolver returns before the source is
// actually loaded.
type ModuleSourceData struct {
	OriginURL string
	Loader    SourceLoader
}

// Resolver resolves a module specifier under one URL scheme.
type Resolver interface {
	Resolve(specifier string, referer *RefererInfo) (ModuleSourceData, error)
	Protocol() string
}

// Manager is the front door of the pipeline: it picks the right Resolver(s)
// for a specifier's scheme and loads the winning one's source.
type Manager interface {
	Resolve(specifier string, referer *RefererInfo) (LoadedModule, error)
}

// ParseURL parses urlStr, joining it against workingURLStr if it is
// relative, and defaults a missing scheme to "file" — the exact rule
// original_source/src/module_resolver.rs's parse_url implements.
func ParseURL(urlStr, workingURLStr string) (*url.URL, error) {
	parsed, err := url.Parse(urlStr)
	if err == nil && parsed.IsAbs() {
		return normalizeScheme(parsed), nil
	}

	working, werr := url.Parse(workingURLStr)
	if werr != nil {
		if err != nil {
			return nil, err
		}
		return nil, werr
	}
	joined := working.ResolveReference(&url.URL{Path: urlStr})
	if strings.HasPrefix(urlStr, "/") {
		joined, err = url.Parse(urlStr)
		if err != nil {
			return nil, err
		}
	}
	return normalizeScheme(joined), nil
}

func normalizeScheme(u *url.URL) *url.URL {
	if u.Scheme == "" {
		u.Scheme = "file"
	}
	return u
}

// ModuleCache is the write-once, read-many metadata cache keyed by the
// engine's identity hash for a compiled module.
type ModuleCache struct {
	mu     sync.RWMutex
	byHash map[uint64]LoadedModule
}

// NewModuleCache constructs an empty cache.
func NewModuleCache() *ModuleCache {
	return &ModuleCache{byHash: make(map[uint64]LoadedModule)}
}

// Get returns the module recorded under hash, if any.
func (c *ModuleCache) Get(hash uint64) (LoadedModule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byHash[hash]
	return m, ok
}

// InsertIfAbsent records mod under hash unless an entry already exists.
// Returns false (a no-op) when the hash is already taken — callers log this
// as an error per the write-once invariant.
func (c *ModuleCache) InsertIfAbsent(hash uint64, mod LoadedModule) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byHash[hash]; exists {
		return false
	}
	c.byHash[hash] = mod
	return true
}

// Len reports the number of distinct modules recorded.
func (c *ModuleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byHash)
}

// LocalDiskLoader reads module (and optional source map) bytes from disk.
type LocalDiskLoader struct {
	SourcePath    string
	SourceMapPath string
}

func (l *LocalDiskLoader) Load() (LoadedSourceCode, error) {
	src, err := os.ReadFile(l.SourcePath)
	if err != nil {
		return LoadedSourceCode{}, fmt.Errorf("resolver: read %s: %w", l.SourcePath, err)
	}
	var sm *string
	if l.SourceMapPath != "" {
		if b, err := os.ReadFile(l.SourceMapPath); err == nil {
			s := string(b)
			sm = &s
		}
	}
	return LoadedSourceCode{IsWasm: false, SourceMap: sm, Source: string(src)}, nil
}

// LocalDiskResolver resolves file:// specifiers against a working directory,
// trying the exact path, then +".ts", then +".js" — the fallback order from
// original_source/src/module_resolver.rs's LocalDiskModuleResolver.
type LocalDiskResolver struct {
	DefaultWorkingURL string
}

func NewLocalDiskResolver(defaultWorkingURL string) (*LocalDiskResolver, error) {
	if defaultWorkingURL == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		defaultWorkingURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(wd) + "/"}).String()
	}
	return &LocalDiskResolver{DefaultWorkingURL: defaultWorkingURL}, nil
}

func (r *LocalDiskResolver) Protocol() string { return "file" }

func (r *LocalDiskResolver) Resolve(specifier string, referer *RefererInfo) (ModuleSourceData, error) {
	refererOrigin := r.DefaultWorkingURL
	if referer != nil {
		refererOrigin = referer.OriginURL
	}

	specURL, err := ParseURL(specifier, refererOrigin)
	if err != nil {
		return ModuleSourceData{}, fmt.Errorf("resolver: parse %s from %s: %w", specifier, refererOrigin, err)
	}

	path := specURL.Path
	for _, candidate := range []string{path, path + ".ts", path + ".js"} {
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			origin := (&url.URL{Scheme: "file", Path: candidate}).String()
			return ModuleSourceData{
				OriginURL: origin,
				Loader:    &LocalDiskLoader{SourcePath: candidate},
			}, nil
		}
	}

	return ModuleSourceData{}, fmt.Errorf("resolver: could not resolve %s from %s", specifier, refererOrigin)
}

// FunctionResolver wraps an injected resolve function, e.g. for tests or
// host-provided virtual modules.
type FunctionResolver struct {
	Fn func(specifier string, referer *RefererInfo) (ModuleSourceData, error)
}

func (r *FunctionResolver) Protocol() string { return "function" }

func (r *FunctionResolver) Resolve(specifier string, referer *RefererInfo) (ModuleSourceData, error) {
	return r.Fn(specifier, referer)
}
