package cron

import (
	"context"
	"fmt"
	"strings"

	robfig "github.com/robfig/cron/v3"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with its cron expression.
type Entry struct {
	Spec string
	Job  Job
}

// Registry tracks registered cron jobs and their schedules.
type Registry struct {
	entries []Entry
}

// specParser accepts standard 5-field expressions and @descriptors.
var specParser = robfig.NewParser(robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow | robfig.Descriptor)

// ParseSpec validates a cron expression.
func ParseSpec(spec string) (robfig.Schedule, error) {
	schedule, err := specParser.Parse(strings.TrimSpace(spec))
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return schedule, nil
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a job on the given schedule. Job names must be unique.
func (r *Registry) Register(spec string, job Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	if _, err := ParseSpec(spec); err != nil {
		return fmt.Errorf("register %s: %w", job.Name(), err)
	}
	for _, existing := range r.entries {
		if existing.Job.Name() == job.Name() {
			return fmt.Errorf("job %q already registered", job.Name())
		}
	}
	r.entries = append(r.entries, Entry{Spec: strings.TrimSpace(spec), Job: job})
	return nil
}

// Entries returns the registered entries in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}
