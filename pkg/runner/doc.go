/*
Package runner implements the terminal chat loop for the LogicLoom tutor.

It is the bridge between the engine and a person (or a script) at a terminal.
The runner reads one line per turn, streams the reply as it arrives, prints the
follow-up suggestions and carries the returned sub-stage fields into the next
request, so a whole lesson can run in-process without a session store.

# Key Components

  - Runner: the read, stream, reply loop.
  - IOHandler: decouples how the runner talks to the user (text or JSON Lines).
  - TextHandler: interactive terminal I/O, with glamour rendering on a TTY.
  - JSONHandler: headless JSON Lines I/O for scripted clients.
  - CodeInterceptor: policy gate in front of the /run command.

# Usage

	r := runner.New(engine,
		runner.WithInitialRequest(domain.TurnRequest{Stage: domain.StageScenario}),
		runner.WithCodeRunner(sb),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
