package broadcast

import (
	"errors"
	"time"
)

func (s *Service) track(rep *Report, limit int) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status[rep.ID] = rep
	s.order = append(s.order, rep.ID)
	s.pruneLocked(limit)
}

// pruneLocked drops the oldest finished reports beyond limit.
func (s *Service) pruneLocked(limit int) {
	if len(s.order) <= limit {
		return
	}
	keep := s.order[:0]
	drop := len(s.order) - limit
	for _, id := range s.order {
		if drop > 0 && !s.status[id].Running {
			delete(s.status, id)
			drop--
			continue
		}
		keep = append(keep, id)
	}
	s.order = keep
}

func (s *Service) mark(id string, recipient int64, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	rep := s.status[id]
	if rep == nil {
		return
	}
	if errors.Is(err, errSkipped) {
		return
	}
	if err != nil {
		rep.Failed++
		rep.Failures = append(rep.Failures, recipient)
		return
	}
	rep.Sent++
}

func (s *Service) finish(id string) Report {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	rep := s.status[id]
	if rep == nil {
		return Report{ID: id}
	}
	rep.Running = false
	rep.DoneAt = time.Now()
	// Empty payloads and recipients left over by a canceled run.
	rep.Skipped = rep.Total - rep.Sent - rep.Failed
	return copyReport(rep)
}

// Status returns the report of run id.
func (s *Service) Status(id string) (Report, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	rep, ok := s.status[id]
	if !ok {
		return Report{}, false
	}
	return copyReport(rep), true
}

// Recent returns up to n reports, newest first.
func (s *Service) Recent(n int) []Report {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	out := make([]Report, 0, min(n, len(s.order)))
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, copyReport(s.status[s.order[i]]))
	}
	return out
}

func copyReport(r *Report) Report {
	cp := *r
	cp.Failures = append([]int64(nil), r.Failures...)
	return cp
}
