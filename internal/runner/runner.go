// Package runner executes one workflow off the caller's interactive
// goroutine, relaying ordered progress messages and exactly one terminal
// outcome. A panic inside the workflow body becomes a terminal failure;
// the runner never terminates silently.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"bindery/internal/logging"
)

// Outcome is the single value a workflow hands back to its caller.
type Outcome struct {
	Success bool
	Message string
	// Path is the produced artifact, when the workflow has one.
	Path string
}

// Succeeded builds a successful outcome.
func Succeeded(message, path string) Outcome {
	return Outcome{Success: true, Message: message, Path: path}
}

// Failed builds a failed outcome.
func Failed(message string) Outcome {
	return Outcome{Success: false, Message: message}
}

// Reporter receives incremental progress messages from a workflow.
// Messages are delivered in emission order with no loss.
type Reporter interface {
	Progress(message string)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(message string)

func (f ReporterFunc) Progress(message string) { f(message) }

// TaskFunc is a workflow body. It reports progress through the supplied
// Reporter and returns its terminal outcome.
type TaskFunc func(ctx context.Context, report Reporter) Outcome

// Task is a handle to one running workflow. Each Start call returns a new
// handle; handles share no state across invocations.
type Task struct {
	name     string
	progress chan string
	done     chan Outcome
}

// Start launches fn on its own goroutine and returns the task handle.
// Consumers should drain Progress (the channel is closed when the workflow
// ends) and then receive the single Outcome from Done.
func Start(ctx context.Context, logger *slog.Logger, name string, fn TaskFunc) *Task {
	task := &Task{
		name:     name,
		progress: make(chan string, 16),
		done:     make(chan Outcome, 1),
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "runner").With(logging.String("task", name))

	go task.run(ctx, logger, fn)
	return task
}

// Progress returns the ordered stream of progress messages. It is closed
// once the workflow reaches its terminal state.
func (t *Task) Progress() <-chan string {
	return t.progress
}

// Done yields the terminal outcome. Exactly one value is ever sent.
func (t *Task) Done() <-chan Outcome {
	return t.done
}

// Wait drains remaining progress into the supplied reporter (which may be
// nil) and blocks until the terminal outcome arrives.
func (t *Task) Wait(report Reporter) Outcome {
	for message := range t.progress {
		if report != nil {
			report.Progress(message)
		}
	}
	return <-t.done
}

func (t *Task) run(ctx context.Context, logger *slog.Logger, fn TaskFunc) {
	var outcome Outcome
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("workflow panicked", logging.Any("panic", recovered))
			outcome = Failed(fmt.Sprintf("Error: %v", recovered))
		}
		close(t.progress)
		t.done <- outcome
		close(t.done)
	}()

	logger.Debug("workflow started")
	outcome = fn(ctx, ReporterFunc(func(message string) {
		select {
		case t.progress <- message:
		case <-ctx.Done():
			// Caller abandoned the run; progress has no audience anymore.
		}
	}))
	logger.Debug("workflow finished", logging.Bool("success", outcome.Success))
}
