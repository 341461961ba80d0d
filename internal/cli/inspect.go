package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/graff/internal/adapters/file"
	"github.com/aretw0/graff/internal/presentation/graph"
	"github.com/aretw0/graff/internal/presentation/tui"
	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/ports"
)

// Output formats for session inspect.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
	FormatMermaid  = "mermaid"
)

// FormatSession renders a mirror. Markdown is returned raw; callers decide
// whether to pass it through a terminal renderer. Focused variables are
// highlighted on Mermaid output only.
func FormatSession(s *domain.Session, format string, focus ...string) (string, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		data, err := codec.MarshalSnapshotIndent(s)
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case FormatYAML, "yml":
		data, err := codec.MarshalSnapshotYAML(s)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case FormatMarkdown, "md":
		return tui.SessionMarkdown(s), nil
	case FormatMermaid:
		return graph.GenerateMermaid(s, overlay(s, focus)), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

// overlay returns nil when there is nothing to highlight.
func overlay(s *domain.Session, focus []string) *graph.Overlay {
	var dangling []string
	for _, f := range s.Factors() {
		for _, name := range f.Variables() {
			if !s.HasVariable(name) {
				dangling = append(dangling, f.Label())
				break
			}
		}
	}
	if len(focus) == 0 && len(dangling) == 0 {
		return nil
	}
	return &graph.Overlay{Focus: focus, Dangling: dangling}
}

// ExportSession writes a stored session to path. A .yaml or .yml extension
// selects YAML, anything else JSON.
func ExportSession(ctx context.Context, store ports.SnapshotStore, name, path string) error {
	s, err := store.Load(ctx, name)
	if err != nil {
		return err
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	text, err := FormatSession(s, format)
	if err != nil {
		return err
	}
	if err := file.WriteAtomic(path, []byte(text)); err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	return nil
}

// RemoveSessions deletes every named session and reports the ones it could
// not remove.
func RemoveSessions(ctx context.Context, store ports.SnapshotStore, names []string) (removed []string, err error) {
	var failed []string
	for _, name := range names {
		if delErr := store.Delete(ctx, name); delErr != nil {
			failed = append(failed, fmt.Sprintf("%s (%v)", name, delErr))
			continue
		}
		removed = append(removed, name)
	}
	if len(failed) > 0 {
		return removed, fmt.Errorf("could not remove: %s", strings.Join(failed, ", "))
	}
	return removed, nil
}
