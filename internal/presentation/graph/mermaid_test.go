package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/graff/internal/presentation/graph"
	"github.com/aretw0/graff/pkg/domain"
)

func session(t *testing.T) *domain.Session {
	t.Helper()
	s := domain.NewSession("hex")
	for _, v := range [][2]string{{"x0", "Pose2"}, {"x1", "Pose2"}, {"l-1", "Point2"}} {
		variable, err := domain.NewVariable(v[0], v[1])
		if err != nil {
			t.Fatal(err)
		}
		if err := s.AddVariable(variable); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []struct {
		typ  string
		vars []string
	}{
		{"PriorPose2", []string{"x0"}},
		{"Pose2Pose2", []string{"x0", "x1"}},
		{"Pose2Point2BearingRange", []string{"x1", "l-1"}},
	} {
		factor, err := domain.NewFactor(f.typ, f.vars, domain.NewNormal(0, 1))
		if err != nil {
			t.Fatal(err)
		}
		if err := s.AddFactor(factor); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Variable Shapes",
			contains: []string{
				`x0(("x0"))`,
				`l_1(["l-1"])`,
			},
		},
		{
			name: "Factor Shapes And Edges",
			contains: []string{
				`fx0[/"PriorPose2"/]`,
				`fx0x1["Pose2Pose2"]`,
				"fx0x1 --- x0",
				"fx0x1 --- x1",
				"fx1l_1 --- l_1",
			},
		},
		{
			name:     "No Overlay",
			excludes: []string{"classDef"},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{Focus: []string{"x1", "x1"}, Dangling: []string{"fx1l-1"}},
			contains: []string{
				"class x1 focus;",
				"class fx1l_1 dangling;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(session(t), tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnwanted substring: %v", got, unwanted)
				}
			}
			if strings.Count(got, "class x1 focus;") > 1 {
				t.Errorf("focus class written twice")
			}
		})
	}
}
