// Package dashboard derives per-owner statistics from committed analysis jobs.
// Nothing is stored; every read recomputes from the job store.
package dashboard

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"chess-coach-backend/internal/analyses"
	"chess-coach-backend/internal/games"
)

// TopOpeningsLimit is the number of openings reported.
const TopOpeningsLimit = 5

// ErrMissingOwner is returned when no owner id is given.
var ErrMissingOwner = errors.New("owner id is required")

// JobSource lists every job of an owner.
type JobSource interface {
	ListAllByOwner(ctx context.Context, ownerID string) ([]analyses.Job, error)
}

// StatusCounts counts jobs per lifecycle status.
type StatusCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Record is a win/loss/draw tally with rounded percentages.
type Record struct {
	Games    int `json:"games"`
	Wins     int `json:"wins"`
	Losses   int `json:"losses"`
	Draws    int `json:"draws"`
	WinRate  int `json:"winRate"`
	LossRate int `json:"lossRate"`
	DrawRate int `json:"drawRate"`
}

// ColorBreakdown splits the record by the subject's color.
type ColorBreakdown struct {
	White Record `json:"white"`
	Black Record `json:"black"`
}

// OpeningCount is one row of the opening ranking.
type OpeningCount struct {
	Opening string `json:"opening"`
	ECO     string `json:"eco"`
	Count   int    `json:"count"`
}

// Stats is the dashboard for one owner.
type Stats struct {
	OwnerID     string         `json:"ownerId"`
	TotalJobs   int            `json:"totalJobs"`
	Status      StatusCounts   `json:"status"`
	Overall     Record         `json:"overall"`
	ByColor     ColorBreakdown `json:"byColor"`
	TopOpenings []OpeningCount `json:"topOpenings"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Service computes dashboards.
type Service struct {
	Jobs JobSource
	Now  func() time.Time
}

// NewService constructs a Service over jobs.
func NewService(jobs JobSource) *Service {
	return &Service{Jobs: jobs}
}

// Get loads the owner's jobs and aggregates them.
func (s *Service) Get(ctx context.Context, ownerID string) (Stats, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return Stats{}, ErrMissingOwner
	}
	jobs, err := s.Jobs.ListAllByOwner(ctx, ownerID)
	if err != nil {
		return Stats{}, err
	}
	stats := Compute(jobs)
	stats.OwnerID = ownerID
	stats.GeneratedAt = s.now()
	return stats, nil
}

// Compute aggregates jobs. Outcomes and openings only count COMPLETED jobs;
// outcomes additionally need a recognized game result.
func Compute(jobs []analyses.Job) Stats {
	stats := Stats{TotalJobs: len(jobs), TopOpenings: []OpeningCount{}}
	var overall, white, black tally
	openings := map[openingKey]int{}

	for _, job := range jobs {
		switch job.Status {
		case analyses.StatusPending:
			stats.Status.Pending++
		case analyses.StatusProcessing:
			stats.Status.Processing++
		case analyses.StatusCompleted:
			stats.Status.Completed++
		case analyses.StatusFailed:
			stats.Status.Failed++
		}
		if job.Status != analyses.StatusCompleted {
			continue
		}

		if strings.TrimSpace(job.Metadata.Result) == "" {
			continue
		}
		if key, ok := openingOf(job.Metadata); ok {
			openings[key]++
		}

		outcome := games.OutcomeFor(job.Metadata.Result, job.SubjectColor)
		if outcome == games.OutcomeUnknown {
			continue
		}
		overall.add(outcome)
		switch job.SubjectColor {
		case games.White:
			white.add(outcome)
		case games.Black:
			black.add(outcome)
		}
	}

	stats.Overall = overall.record()
	stats.ByColor = ColorBreakdown{White: white.record(), Black: black.record()}
	stats.TopOpenings = rankOpenings(openings, TopOpeningsLimit)
	return stats
}

type tally struct {
	wins, losses, draws int
}

func (t *tally) add(o games.Outcome) {
	switch o {
	case games.OutcomeWin:
		t.wins++
	case games.OutcomeLoss:
		t.losses++
	case games.OutcomeDraw:
		t.draws++
	}
}

func (t tally) record() Record {
	total := t.wins + t.losses + t.draws
	return Record{
		Games:    total,
		Wins:     t.wins,
		Losses:   t.losses,
		Draws:    t.draws,
		WinRate:  percent(t.wins, total),
		LossRate: percent(t.losses, total),
		DrawRate: percent(t.draws, total),
	}
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}

type openingKey struct {
	name string
	eco  string
}

func openingOf(m games.Metadata) (openingKey, bool) {
	key := openingKey{
		name: strings.TrimSpace(m.Opening),
		eco:  strings.ToUpper(strings.TrimSpace(m.ECO)),
	}
	return key, key.name != "" || key.eco != ""
}

func rankOpenings(counts map[openingKey]int, limit int) []OpeningCount {
	out := make([]OpeningCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, OpeningCount{Opening: key.name, ECO: key.eco, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Opening != out[j].Opening {
			return out[i].Opening < out[j].Opening
		}
		return out[i].ECO < out[j].ECO
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
