package agent

import "time"

// TimeNow is the plan clock; tests pin it for deterministic timelines.
var TimeNow = func() time.Time { return time.Now().UTC() }

// ComputeTimeline fills start/end dates on every task from dependencies and
// durations. A task with no dependencies starts at now; otherwise it starts
// at the latest end date among its dependencies. End = start + duration
// days. End dates are memoized so shared dependencies resolve once.
//
// A dependency id that does not resolve within the plan contributes no
// constraint; the same rule breaks dependency cycles. Either way the
// computation terminates and never aborts the plan step.
func ComputeTimeline(tasks []Task, now time.Time) []Task {
	if len(tasks) == 0 {
		return tasks
	}

	byID := make(map[string]int, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = i
	}

	ends := make(map[string]time.Time, len(tasks))
	onStack := make(map[string]bool, len(tasks))

	var endOf func(id string) (time.Time, bool)
	endOf = func(id string) (time.Time, bool) {
		if end, ok := ends[id]; ok {
			return end, true
		}
		idx, ok := byID[id]
		if !ok || onStack[id] {
			// Unknown id or cycle: no constraint.
			return time.Time{}, false
		}
		onStack[id] = true
		defer func() { onStack[id] = false }()

		t := &tasks[idx]
		start := now
		for _, dep := range t.Dependencies {
			if depEnd, ok := endOf(dep); ok && depEnd.After(start) {
				start = depEnd
			}
		}
		duration := t.Duration
		if duration < 1 {
			duration = 1
		}
		end := start.Add(time.Duration(duration) * 24 * time.Hour)
		t.StartDate = start.Format(time.RFC3339)
		t.EndDate = end.Format(time.RFC3339)
		ends[id] = end
		return end, true
	}

	for _, t := range tasks {
		endOf(t.ID)
	}
	return tasks
}
