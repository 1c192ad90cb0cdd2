package adherence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/platform/storeerr"
)

// ElderLister entrega el universo de adultos mayores a cerrar.
type ElderLister interface {
	ListElderIDs(ctx context.Context) ([]string, error)
}

type RunnerOptions struct {
	Interval     time.Duration // entre ciclos (default 1h)
	LookbackDays int           // fechas cerradas por ciclo, desde ayer (default 1)
	Workers      int           // paralelismo entre elders (default 4)
	MaxAttempts  int           // por job y ciclo (default 3)
	BaseBackoff  time.Duration // default 200ms, se duplica por intento
}

func (o RunnerOptions) withDefaults() RunnerOptions {
	if o.Interval <= 0 {
		o.Interval = time.Hour
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = 1
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 200 * time.Millisecond
	}
	return o
}

type job struct {
	ElderID string
	Date    clock.Date
}

type Failure struct {
	ElderID string
	Date    clock.Date
	Err     error
}

type Report struct {
	Processed int
	Failed    []Failure
}

// Runner corre el cierre diario en segundo plano. Las fallas de un elder no
// afectan a los demás y se reintentan en el siguiente ciclo.
type Runner struct {
	svc    *Service
	elders ElderLister
	log    logger.Logger
	opts   RunnerOptions
	sleep  func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	pending map[job]struct{}
}

func NewRunner(svc *Service, elders ElderLister, log logger.Logger, opts RunnerOptions) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		svc:     svc,
		elders:  elders,
		log:     log.With(map[string]any{"component": "adherence_rollover"}),
		opts:    opts.withDefaults(),
		sleep:   sleepCtx,
		pending: map[job]struct{}{},
	}
}

// Start bloquea hasta que ctx se cancele. Corre un ciclo al arrancar.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		rep := r.RunOnce(ctx)
		r.log.Info("rollover cycle finished", map[string]any{
			"processed": rep.Processed,
			"failed":    len(rep.Failed),
		})

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce procesa las últimas LookbackDays fechas cerradas para todos los
// elders, más los pendientes de ciclos anteriores.
func (r *Runner) RunOnce(ctx context.Context) Report {
	elderIDs, err := r.elders.ListElderIDs(ctx)
	if err != nil {
		r.log.Error("rollover: list elders failed", map[string]any{"error": err.Error()})
		return Report{}
	}

	today := r.svc.clock.Today()
	dates := make([]clock.Date, 0, r.opts.LookbackDays)
	for i := 1; i <= r.opts.LookbackDays; i++ {
		dates = append(dates, today.AddDays(-i))
	}

	return r.run(ctx, r.plan(elderIDs, dates))
}

// RunDate cierra una fecha puntual para todos los elders.
func (r *Runner) RunDate(ctx context.Context, date clock.Date) (Report, error) {
	elderIDs, err := r.elders.ListElderIDs(ctx)
	if err != nil {
		return Report{}, err
	}
	jobs := make([]job, 0, len(elderIDs))
	for _, id := range elderIDs {
		jobs = append(jobs, job{ElderID: id, Date: date})
	}
	return r.run(ctx, jobs), nil
}

func (r *Runner) plan(elderIDs []string, dates []clock.Date) []job {
	seen := map[job]struct{}{}
	jobs := make([]job, 0, len(elderIDs)*len(dates))

	for _, id := range elderIDs {
		for _, d := range dates {
			j := job{ElderID: id, Date: d}
			seen[j] = struct{}{}
			jobs = append(jobs, j)
		}
	}

	r.mu.Lock()
	for j := range r.pending {
		if _, ok := seen[j]; !ok {
			jobs = append(jobs, j)
		}
	}
	r.mu.Unlock()

	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].ElderID != jobs[k].ElderID {
			return jobs[i].ElderID < jobs[k].ElderID
		}
		return jobs[i].Date.Before(jobs[k].Date)
	})
	return jobs
}

func (r *Runner) run(ctx context.Context, jobs []job) Report {
	ch := make(chan job)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		rep Report
	)

	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range ch {
				err := r.process(ctx, j)

				mu.Lock()
				if err != nil {
					rep.Failed = append(rep.Failed, Failure{ElderID: j.ElderID, Date: j.Date, Err: err})
				} else {
					rep.Processed++
				}
				mu.Unlock()

				r.mu.Lock()
				if err != nil && !errors.Is(err, ErrDateNotElapsed) {
					r.pending[j] = struct{}{}
				} else {
					delete(r.pending, j)
				}
				r.mu.Unlock()
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case ch <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(ch)
	wg.Wait()

	return rep
}

// process reintenta fallas transitorias con backoff exponencial.
func (r *Runner) process(ctx context.Context, j job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rollover panic: %v", p)
			r.log.Error("rollover panic recovered", map[string]any{
				"elder_id": j.ElderID,
				"date":     j.Date.String(),
				"panic":    fmt.Sprintf("%v", p),
			})
		}
	}()

	backoff := r.opts.BaseBackoff
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		var f Fact
		f, err = r.svc.Rollover(ctx, j.ElderID, j.Date)
		if err == nil {
			r.log.Debug("rollover done", map[string]any{
				"elder_id":  j.ElderID,
				"date":      j.Date.String(),
				"expected":  f.Expected,
				"confirmed": f.Confirmed,
				"missed":    f.Missed,
			})
			return nil
		}

		retryable := storeerr.IsTransient(err) || errors.Is(err, ErrLockBusy)
		if !retryable || attempt == r.opts.MaxAttempts {
			break
		}
		if serr := r.sleep(ctx, backoff); serr != nil {
			err = serr
			break
		}
		backoff *= 2
	}

	r.log.Warn("rollover failed", map[string]any{
		"elder_id": j.ElderID,
		"date":     j.Date.String(),
		"error":    err.Error(),
	})
	return err
}

// Pending devuelve los jobs fallidos que se reintentarán.
func (r *Runner) Pending() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Failure, 0, len(r.pending))
	for j := range r.pending {
		out = append(out, Failure{ElderID: j.ElderID, Date: j.Date})
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
