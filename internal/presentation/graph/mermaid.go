package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/graff/pkg/domain"
)

// Overlay marks elements to highlight on the diagram.
type Overlay struct {
	// Focus lists variables to emphasise, e.g. the one being queried.
	Focus []string
	// Dangling lists factors that reference variables missing from the mirror.
	Dangling []string
}

// GenerateMermaid draws a session as a bipartite Mermaid flowchart:
// - Pose variables: ((Circle))
// - Landmark and other variables: ([Stadium])
// - Factors: [Rectangle] labelled with their type, linked to their variables.
// Unary factors (priors) are drawn as [/Parallelogram/].
func GenerateMermaid(s *domain.Session, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, v := range s.Variables() {
		id := sanitizeMermaidID(v.Name())
		opener, closer := "([", "])"
		if strings.HasPrefix(v.Type(), "Pose") {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, v.Name(), closer)
	}

	for _, f := range s.Factors() {
		id := sanitizeMermaidID(f.Label())
		vars := f.Variables()
		opener, closer := "[", "]"
		if len(vars) == 1 {
			opener, closer = "[/", "/]"
		}
		label := strings.ReplaceAll(f.Type(), "\"", "'")
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)
		for _, name := range vars {
			fmt.Fprintf(&sb, "    %s --- %s\n", id, sanitizeMermaidID(name))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef focus fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef dangling fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4 4,color:#000;\n")
		writeClass(&sb, "focus", overlay.Focus)
		writeClass(&sb, "dangling", overlay.Dangling)
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, class string, names []string) {
	seen := make(map[string]bool)
	for _, name := range names {
		id := sanitizeMermaidID(name)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		fmt.Fprintf(sb, "    class %s %s;\n", id, class)
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
