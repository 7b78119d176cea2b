package agents

import (
	"context"

	"github.com/aretw0/logicloom/internal/envelope"
	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/pkg/domain"
)

type codingPayload struct {
	CodeTemplate      string   `mapstructure:"code_template"`
	SyntaxErrors      []string `mapstructure:"syntax_errors"`
	POEQuestions      []string `mapstructure:"poe_questions"`
	ExecutionFeedback string   `mapstructure:"execution_feedback"`
	FlowchartCode     string   `mapstructure:"flowchart_code"`
	SubStage          string   `mapstructure:"sub_stage"`
	POEState          string   `mapstructure:"poe_state"`
}

// Coding is handler C, shared by the logic and coding stages.
// Sub-stage and POE state are carried forward whenever the model does not set them.
func (h *Handlers) Coding(ctx context.Context, t Turn, st domain.CodingState, call Caller) (domain.CodingState, Report, error) {
	if t.Stage != domain.StageLogic && t.Stage != domain.StageCoding {
		return st, Report{}, nil
	}

	raw, _, err := h.invoke(ctx, domain.HandlerCoding, prompt.Vars{
		Stage:       string(t.Stage),
		SubStage:    string(st.SubStage),
		POEState:    string(st.POEState),
		CurrentCode: st.CurrentCode,
		UserInput:   t.UserInput,
		Context:     t.Context,
		CurrentTask: t.CurrentTask,
	}, call)
	if err != nil {
		return st, Report{}, err
	}

	next := domain.CodingState{
		SubStage:    st.SubStage,
		POEState:    st.POEState,
		CurrentCode: st.CurrentCode,
	}

	env := envelope.Decode(raw)
	s, ok := hasResponse(env)
	if !ok {
		next.Response = cleanText(raw)
		return next, Report{Called: true, Salvaged: true}, nil
	}

	var p codingPayload
	h.decodePayload(domain.HandlerCoding, s, &p)
	next.Response = s.Text("response", "")
	next.CodeTemplate = p.CodeTemplate
	next.SyntaxErrors = p.SyntaxErrors
	next.POEQuestions = p.POEQuestions
	next.ExecutionFeedback = p.ExecutionFeedback
	next.FlowchartCode = p.FlowchartCode
	if p.SubStage != "" {
		next.SubStage = domain.CodingSubStage(p.SubStage)
	}
	if p.POEState != "" {
		next.POEState = domain.POEState(p.POEState)
	}
	return next, Report{Called: true}, nil
}
