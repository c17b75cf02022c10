package scheduler

import "time"

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	enabled := s.cfg.Enabled
	tz := s.cfg.Timezone
	defs := make([]scheduleDef, len(s.defs))
	copy(defs, s.defs)
	c := s.c
	loc := s.loc
	s.mu.Unlock()

	if loc == nil {
		loc = time.Local
	}
	if tz == "" {
		tz = loc.String()
	}

	items := make([]ScheduleInfo, 0, len(defs))
	for _, d := range defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next = e.Next
			it.Prev = e.Prev
		}
		d.stats.mu.Lock()
		it.Running = d.stats.running
		it.Runs = d.stats.runs
		it.Failures = d.stats.failures
		it.LastErr = d.stats.lastErr
		it.LastDur = d.stats.lastDur
		d.stats.mu.Unlock()
		items = append(items, it)
	}
	return Snapshot{Enabled: enabled, Running: c != nil, Timezone: tz, Schedules: items}
}
