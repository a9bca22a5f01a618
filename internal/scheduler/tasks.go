// Package scheduler runs the periodic repique tick on asynq.
package scheduler

import (
	"github.com/hibiken/asynq"
)

// TaskRepiqueTick triggers one pass of the repique engine.
const TaskRepiqueTick = "repique.tick"

// NewRepiqueTickTask builds the tick task. The tick carries no payload; the
// engine derives everything from the database at run time.
func NewRepiqueTickTask() *asynq.Task {
	return asynq.NewTask(TaskRepiqueTick, nil)
}
