package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourplan/internal/model"
	"tourplan/internal/opt"
	"tourplan/internal/planner"
)

// passEventInterval limits run.pass events per run; the final pass of a run
// is always reflected in run.completed.
const passEventInterval = 100 * time.Millisecond

func newRun(req model.OptimizeRequest, stops int) model.Run {
	now := time.Now().UTC()
	return model.Run{
		ID:        uuid.NewString(),
		Status:    model.RunQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Stops:     stops,
		Request:   req,
	}
}

// execute runs prob for run and records every state change. The returned run
// is final: succeeded, or failed with the returned error.
func (s *Server) execute(ctx context.Context, run model.Run, prob planner.Problem) (model.Run, error) {
	run.Status = model.RunRunning
	s.save(run)
	s.publish(run.ID, model.EventRunStarted, map[string]any{"stops": run.Stops})

	rep, cached, err := s.Planner.Solve(ctx, prob, s.passPublisher(run.ID))
	run.UpdatedAt = time.Now().UTC()
	if err != nil {
		run.Status = model.RunFailed
		run.Error = model.NewRunError(err)
		s.Logger.Info("run failed", "run", run.ID, "stops", run.Stops, "err", err)
		s.save(run)
		s.publish(run.ID, model.EventRunFailed, failedData(run))
	} else {
		run.Status = model.RunSucceeded
		run.Report = &rep
		run.Cached = cached
		s.Logger.Info("run succeeded", "run", run.ID, "stops", run.Stops, "cost", rep.TotalCost,
			"reason", rep.Stats.Reason, "cached", cached)
		s.save(run)
		s.publish(run.ID, model.EventRunCompleted, completedData(run))
	}
	if perr := s.Export.PublishRun(context.WithoutCancel(ctx), run); perr != nil {
		s.Logger.Error("queue export", "run", run.ID, "err", perr)
	}
	return run, err
}

func completedData(run model.Run) map[string]any {
	return map[string]any{
		"totalCost":      run.Report.TotalCost,
		"totalFormatted": run.Report.TotalFormatted,
		"tour":           run.Report.Tour,
		"reason":         run.Report.Stats.Reason,
		"cached":         run.Cached,
	}
}

func failedData(run model.Run) map[string]any {
	return map[string]any{"error": run.Error}
}

// finalEvent is the terminal event of a finished run, replayed to streams
// that subscribe after it ended.
func finalEvent(run model.Run) (model.RunEvent, bool) {
	evt := model.RunEvent{RunID: run.ID, TS: run.UpdatedAt}
	switch run.Status {
	case model.RunSucceeded:
		evt.Type, evt.Data = model.EventRunCompleted, completedData(run)
	case model.RunFailed:
		evt.Type, evt.Data = model.EventRunFailed, failedData(run)
	default:
		return model.RunEvent{}, false
	}
	return evt, true
}

func terminal(evt model.RunEvent) bool {
	return evt.Type == model.EventRunCompleted || evt.Type == model.EventRunFailed
}

// startAsync executes run in the background. The run is cancelled, keeping
// its best tour, when the server closes.
func (s *Server) startAsync(run model.Run, prob planner.Problem) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		_, _ = s.execute(s.ctx, run, prob)
	}()
}

func (s *Server) save(run model.Run) {
	// state changes must land even when the request that started the run
	// has gone away
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Store.UpdateRun(ctx, run); err != nil {
		s.Logger.Error("save run", "run", run.ID, "status", run.Status, "err", err)
	}
}

func (s *Server) publish(runID, typ string, data map[string]any) {
	s.Broker.Publish(runID, model.RunEvent{Type: typ, RunID: runID, TS: time.Now().UTC(), Data: data})
}

// passPublisher returns an OnPass hook emitting at most one run.pass event per
// passEventInterval. Restarts may call it concurrently.
func (s *Server) passPublisher(runID string) func(opt.PassInfo) {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(p opt.PassInfo) {
		mu.Lock()
		now := time.Now()
		if now.Sub(last) < passEventInterval {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()
		s.publish(runID, model.EventRunPass, map[string]any{
			"restart":     p.Restart,
			"pass":        p.Pass,
			"cost":        p.Cost,
			"twoOptMoves": p.TwoOptMoves,
			"orOptMoves":  p.OrOptMoves,
		})
	}
}
