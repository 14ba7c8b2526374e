package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// segmentPattern bounds a secrets:// path segment to identifier-safe
// characters, rejecting traversal-style segments ("..", or anything
// containing a path separator) before the segment is used to index into
// Value. Empty segments are skipped before this check.
var segmentPattern = regexp2.MustCompile(`^[A-Za-z0-9_-]+$`, regexp2.None)

func validSegment(seg string) bool {
	ok, err := segmentPattern.MatchString(seg)
	return err == nil && ok
}

// JSONSecretsLoader synthesizes an ES module exporting a JSON subtree —
// the Go translation of original_source/src/module_resolver.rs's
// JsonSecretsLoader.
type JSONSecretsLoader struct {
	Value any
}

func (l *JSONSecretsLoader) Load() (LoadedSourceCode, error) {
	raw, err := json.Marshal(l.Value)
	if err != nil {
		return LoadedSourceCode{}, fmt.Errorf("resolver: marshal secrets value: %w", err)
	}
	// Backtick template literal, same as the Rust original; strip any
	// backticks from the payload so the synthesized template never breaks.
	clean := strings.ReplaceAll(string(raw), "`", "")
	source := fmt.Sprintf("export default JSON.parse(`%s`);", clean)
	return LoadedSourceCode{IsWasm: false, Source: source}, nil
}

// JSONSecretsResolver resolves secrets:///path/segments specifiers into a
// JSONSecretsLoader over the named subtree of Value.
type JSONSecretsResolver struct {
	Value map[string]any
}

func (r *JSONSecretsResolver) Protocol() string { return "secrets" }

func (r *JSONSecretsResolver) Resolve(specifier string, referer *RefererInfo) (ModuleSourceData, error) {
	refererOrigin := "secrets:///"
	if referer != nil {
		refererOrigin = referer.OriginURL
	}

	specURL, err := ParseURL(specifier, refererOrigin)
	if err != nil {
		return ModuleSourceData{}, fmt.Errorf("resolver: parse %s from %s: %w", specifier, refererOrigin, err)
	}

	var cur any = r.Value
	for _, seg := range strings.Split(strings.Trim(specURL.Path, "/"), "/") {
		if seg == "" {
			continue
		}
		if !validSegment(seg) {
			return ModuleSourceData{}, fmt.Errorf("resolver: invalid secrets path segment %q in %s", seg, specifier)
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return ModuleSourceData{}, fmt.Errorf("resolver: could not resolve %s from %s", specifier, refererOrigin)
		}
		v, ok := m[seg]
		if !ok {
			return ModuleSourceData{}, fmt.Errorf("resolver: could not resolve %s from %s", specifier, refererOrigin)
		}
		cur = v
	}

	return ModuleSourceData{
		OriginURL: specifier + ".js",
		Loader:    &JSONSecretsLoader{Value: cur},
	}, nil
}
