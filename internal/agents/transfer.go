package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/logicloom/internal/envelope"
	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/pkg/domain"
)

// Fixed messages appended by the transfer handler after the model replies.
const (
	quizExhaustedMessage   = "\n\n**太棒了！所有的测试题都答对了！**\n接下来，让我们迎接最终的**综合挑战**！\n\n"
	challengePassedMessage = "\n\n**挑战成功！**\n你已经成功将双分支结构应用到了气象站系统中！"

	thresholdHintPass = "\n[System Hint] 后端检测通过：代码中正确包含了 if 条件、大于号 (>) 和阈值 28。"
	thresholdHintFail = "\n[System Hint] 后端检测未通过：请检查 if 语句是否正确使用了大于号 (>) 和数字 28。"
)

type transferPayload struct {
	SubStage      string   `mapstructure:"sub_stage"`
	QuizIndex     *int     `mapstructure:"quiz_index"`
	Passed        bool     `mapstructure:"passed"`
	TransferTasks []string `mapstructure:"transfer_tasks"`
	Guidance      string   `mapstructure:"guidance"`
}

// Transfer is handler E, running the intro → quiz → challenge → summary sub-machine.
//
// Quiz answers and explanations only ever reach the prompt context. The user-visible
// response gets question text and options, appended after the model call.
func (h *Handlers) Transfer(ctx context.Context, t Turn, st domain.TransferState, call Caller) (domain.TransferState, Report, error) {
	if t.Stage != domain.StageTransfer {
		return st, Report{}, nil
	}

	cfg, err := h.prompts.Prompt(string(domain.HandlerTransfer))
	if err != nil {
		return st, Report{}, fmt.Errorf("%s handler: %w", domain.HandlerTransfer, err)
	}
	quizzes := cfg.Quizzes

	entered := st.SubStage
	current := st.SubStage
	if current == "" {
		current = domain.TransferIntro
	}
	index := max(st.QuizIndex, 0)
	code := t.CurrentCode
	var quizContext string

	switch current {
	case domain.TransferIntro:
		current = domain.TransferQuiz
		index = 0
		if len(quizzes) > 0 {
			quizContext = introQuizContext(quizzes[0])
		}
	case domain.TransferQuiz:
		if index >= 0 && index < len(quizzes) {
			quizContext = gradingQuizContext(quizzes[index])
		} else {
			current = domain.TransferChallenge
		}
	case domain.TransferChallenge:
		if code != "" {
			if CheckThresholdBranch(code) {
				code += thresholdHintPass
			} else {
				code += thresholdHintFail
			}
		}
	}

	raw, _, err := h.invoke(ctx, domain.HandlerTransfer, prompt.Vars{
		Stage:       string(t.Stage),
		SubStage:    string(current),
		CurrentQuiz: quizContext,
		CurrentCode: code,
		UserInput:   t.UserInput,
		Context:     t.Context,
		CurrentTask: t.CurrentTask,
	}, call)
	if err != nil {
		return st, Report{}, err
	}

	env := envelope.Decode(raw)
	response, salvaged := reply(env)
	nextStage := current
	nextIndex := index
	var p transferPayload
	if s, ok := env.(envelope.Structured); ok {
		h.decodePayload(domain.HandlerTransfer, s, &p)
		if p.SubStage != "" {
			nextStage = domain.TransferSubStage(p.SubStage)
		}
		if p.QuizIndex != nil && *p.QuizIndex >= 0 {
			nextIndex = *p.QuizIndex
		}
	}

	if current == domain.TransferQuiz && nextStage == domain.TransferQuiz && nextIndex > index {
		if nextIndex < len(quizzes) {
			q := quizzes[nextIndex]
			response += "\n\n**Next Question:**\n" + q.Question + "\n" + strings.Join(q.Options, "\n")
		} else {
			nextStage = domain.TransferChallenge
			response += quizExhaustedMessage + cfg.Auxiliary[prompt.FinalChallengeKey]
		}
	}

	if current == domain.TransferChallenge && p.Passed {
		nextStage = domain.TransferSummary
		response += challengePassedMessage
	}

	if entered == domain.TransferIntro && current == domain.TransferQuiz && len(quizzes) > 0 {
		q := quizzes[0]
		if !strings.Contains(response, q.Question) {
			response += "\n\n**Question 1:**\n" + q.Question + "\n" + strings.Join(q.Options, "\n")
		}
	}

	h.logger.Debug("transfer step", "handler", domain.HandlerTransfer, "sub_stage", nextStage, "quiz_index", nextIndex)
	return domain.TransferState{
		SubStage:      nextStage,
		QuizIndex:     nextIndex,
		Passed:        p.Passed,
		Response:      response,
		TransferTasks: p.TransferTasks,
		Guidance:      p.Guidance,
	}, Report{Called: true, Salvaged: salvaged}, nil
}

func introQuizContext(q domain.QuizEntry) string {
	return fmt.Sprintf("Question %s (%s): %s\nOptions: %s\n(这是第一题，请引导学生回答)",
		q.ID, q.Type, q.Question, strings.Join(q.Options, ", "))
}

func gradingQuizContext(q domain.QuizEntry) string {
	return fmt.Sprintf("Question %s (%s): %s\nOptions: %s\nAnswer: %s\nExplanation: %s",
		q.ID, q.Type, q.Question, strings.Join(q.Options, ", "), q.Answer, q.Explanation)
}

// CheckThresholdBranch reports whether code has a line of the form `if <cond>:` whose
// condition contains both ">" and "28".
func CheckThresholdBranch(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "if ") || !strings.HasSuffix(line, ":") {
			continue
		}
		cond := line[len("if ") : len(line)-1]
		if strings.Contains(cond, ">") && strings.Contains(cond, "28") {
			return true
		}
	}
	return false
}
