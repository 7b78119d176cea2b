// Package graph draws the tutoring flow as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/logicloom/pkg/domain"
)

// Overlay contains learner progress to visualize on the stage map.
type Overlay struct {
	Visited      []domain.Stage
	Current      domain.Stage
	CurrentLabel string // sub-stage shown under the current stage, optional
}

var stageLabels = map[domain.Stage]string{
	domain.StageScenario:   "情境导入",
	domain.StageKnowledge:  "知识讲解",
	domain.StageLogic:      "逻辑梳理",
	domain.StageCoding:     "编程实践",
	domain.StageAssessment: "反思评价",
	domain.StageTransfer:   "迁移应用",
}

// StageMap produces a Mermaid flowchart of the stages in flow order.
// Shapes carry meaning:
// - Scenario (entry): ((Circle))
// - Coding (runs code): [[Subroutine]]
// - Transfer (quiz input): [/Parallelogram/]
// - Default: [Rectangle]
// Overlay styles (visited, current) are applied when overlay is not nil.
func StageMap(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for i, stage := range domain.Stages {
		opener, closer := "[", "]"
		switch stage {
		case domain.StageScenario:
			opener, closer = "((", "))"
		case domain.StageCoding:
			opener, closer = "[[", "]]"
		case domain.StageTransfer:
			opener, closer = "[/", "/]"
		}

		label := stageLabels[stage]
		if overlay != nil && overlay.Current == stage && overlay.CurrentLabel != "" {
			label = fmt.Sprintf("%s <br/> %s", label, strings.ReplaceAll(overlay.CurrentLabel, "\"", "'"))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", stage, opener, label, closer)

		if i+1 < len(domain.Stages) {
			fmt.Fprintf(&sb, "    %s --> %s\n", stage, domain.Stages[i+1])
		}
	}
	// assessment can send the learner back to fix the code
	fmt.Fprintf(&sb, "    %s -. 修改代码 .-> %s\n", domain.StageAssessment, domain.StageCoding)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.Stage]bool)
		for _, s := range overlay.Visited {
			if !s.Known() || seen[s] || s == overlay.Current {
				continue
			}
			seen[s] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", s)
		}
		if overlay.Current.Known() {
			fmt.Fprintf(&sb, "    class %s current;\n", overlay.Current)
		}
	}

	return sb.String()
}
