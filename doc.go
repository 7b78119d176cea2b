/*
Package logicloom is a staged tutoring engine that walks a learner from a real-world scenario
to working code, driven by a text-completion model.

Each turn carries the learner's input and the current stage. The engine routes the stage to
exactly one handler, renders that handler's prompt, calls the model, decodes the reply
(tolerating malformed JSON) and merges the result into the next session snapshot: the
reply text, the next stage and a set of suggested follow-ups.

# Stages

  - scenario: presents a situation and extracts the task in up to eight turns.
  - knowledge: explains the concepts behind the task with a concept diagram.
  - logic and coding: flowchart first, then code, with predict-observe-explain coaching.
  - assessment: reflection on the learner's program and scored feedback.
  - transfer: an intro, a quiz bank and a final challenge in a new context.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/logicloom"
		"github.com/aretw0/logicloom/pkg/domain"
	)

	func main() {
		eng, err := logicloom.New(
			logicloom.WithPromptsDir("./prompts"),
			logicloom.WithCompleter(myCompleter),
		)
		if err != nil {
			log.Fatal(err)
		}

		res, err := eng.Turn(context.Background(), domain.TurnRequest{
			Stage:     domain.StageScenario,
			UserInput: "hi",
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.ActiveResponse, res.Suggestions)
	}

Without a store the caller owns the session: send back the sub-state fields of each
TurnResult on the next request. With WithStore, requests that carry a conversation ID are
persisted server-side and turns of one conversation run one at a time, in arrival order.
*/
package logicloom
