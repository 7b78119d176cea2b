package agents

import (
	"context"
	"strings"

	"github.com/aretw0/logicloom/internal/envelope"
	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/pkg/domain"
)

type knowledgePayload struct {
	ConceptExplanation string `mapstructure:"concept_explanation"`
	FlowchartCode      string `mapstructure:"flowchart_code"`
	ConceptDiagram     string `mapstructure:"concept_diagram"`
	CorrectionFeedback string `mapstructure:"correction_feedback"`
}

// Knowledge is handler B. It explains the concept; the diagram of the knowledge stage is
// always the curated ConceptDiagram.
func (h *Handlers) Knowledge(ctx context.Context, t Turn, st domain.KnowledgeState, call Caller) (domain.KnowledgeState, Report, error) {
	if t.Stage != domain.StageKnowledge {
		return st, Report{}, nil
	}

	raw, _, err := h.invoke(ctx, domain.HandlerKnowledge, prompt.Vars{
		Stage:       string(t.Stage),
		UserInput:   t.UserInput,
		Context:     t.Context,
		CurrentTask: t.CurrentTask,
	}, call)
	if err != nil {
		return st, Report{}, err
	}

	env := envelope.Decode(raw)
	s, ok := hasResponse(env)
	if !ok {
		h.logger.Debug("no response field, falling back to clean text", "handler", domain.HandlerKnowledge)
		text := cleanText(raw)
		if strings.TrimSpace(text) == "" {
			text = raw
		}
		return domain.KnowledgeState{Response: text}, Report{Called: true, Salvaged: true}, nil
	}

	var p knowledgePayload
	h.decodePayload(domain.HandlerKnowledge, s, &p)
	return domain.KnowledgeState{
		Response:           s.Text("response", ""),
		ConceptExplanation: p.ConceptExplanation,
		FlowchartCode:      p.FlowchartCode,
		ConceptDiagram:     conceptDiagramFor(t.Stage, p.ConceptDiagram),
		CorrectionFeedback: p.CorrectionFeedback,
	}, Report{Called: true}, nil
}

// conceptDiagramFor pins the knowledge-stage diagram and passes any other through.
func conceptDiagramFor(stage domain.Stage, fromModel string) string {
	if stage == domain.StageKnowledge {
		return ConceptDiagram
	}
	return fromModel
}
