package dedup

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oregrid/facility-cli/internal/block"
	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/store"
	"github.com/oregrid/facility-cli/internal/validate"
)

// Options configures a deduplication run.
type Options struct {
	// Country restricts the run to one country code ("" = whole corpus).
	Country string

	// DryRun computes and reports the merge plan without writing.
	DryRun bool

	// Workers bounds concurrent block comparison. Default 4.
	Workers int
}

// PlannedMerge is one duplicate group scheduled for merging.
type PlannedMerge struct {
	SurvivorID string   `json:"survivor_id"`
	MergedIDs  []string `json:"merged_ids"`
	Methods    []string `json:"methods"`
	TieBreak   bool     `json:"tie_break,omitempty"`
}

// Report summarizes a deduplication run.
type Report struct {
	Scanned   int            `json:"scanned"`
	Skipped   int            `json:"skipped"`
	Groups    []PlannedMerge `json:"groups"`
	Merged    int            `json:"merged"`
	TieBreaks int            `json:"tie_breaks"`
	DryRun    bool           `json:"dry_run"`
}

// Engine deduplicates the facility corpus.
type Engine struct {
	facilities store.FacilityStore
	cascade    []Strategy
}

// NewEngine creates a deduplication engine over a facility store.
func NewEngine(facilities store.FacilityStore) *Engine {
	return &Engine{facilities: facilities, cascade: DefaultCascade()}
}

// matchedPair records one cascade hit between two snapshot records.
type matchedPair struct {
	a, b   string
	method string
}

// Run executes one deduplication pass. All duplicate groups are planned
// against a stable snapshot before any merge is applied, so earlier merges in
// the same run never perturb group membership. Re-running over an already
// merged corpus is a fixed point.
func (e *Engine) Run(ctx context.Context, opts Options) (*Report, error) {
	log := zap.L().With(zap.String("component", "dedup_engine"))

	records, skipped, err := e.facilities.List(ctx, opts.Country)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: load corpus")
	}

	valid := records[:0:0]
	for _, rec := range records {
		if violations := validate.Record(rec); len(violations) > 0 {
			log.Warn("dedup: excluding malformed record",
				zap.String("facility_id", rec.FacilityID),
				zap.Int("violations", len(violations)))
			skipped = append(skipped, store.SkippedRecord{
				Path:   rec.FacilityID,
				Reason: violations[0].String(),
			})
			continue
		}
		valid = append(valid, rec)
	}

	report := &Report{Scanned: len(records), Skipped: len(skipped), DryRun: opts.DryRun}

	pairs, err := e.planPairs(ctx, valid, opts.Workers)
	if err != nil {
		return nil, err
	}

	groups := buildGroups(valid, pairs)
	for _, g := range groups {
		plan := PlannedMerge{
			SurvivorID: g.group.Survivor.FacilityID,
			MergedIDs:  g.group.LoserIDs,
			Methods:    g.methods,
			TieBreak:   g.group.TieBreak,
		}
		report.Groups = append(report.Groups, plan)
		report.Merged += len(g.group.LoserIDs)
		if g.group.TieBreak {
			report.TieBreaks++
			log.Warn("dedup: completeness tie broken by facility_id order",
				zap.String("survivor", plan.SurvivorID),
				zap.Strings("merged", plan.MergedIDs))
		}
	}

	if opts.DryRun {
		log.Info("dedup: dry run complete",
			zap.Int("scanned", report.Scanned),
			zap.Int("groups", len(report.Groups)),
			zap.Int("would_merge", report.Merged))
		return report, nil
	}

	// Apply phase: serialized writes, losers removed only after the survivor
	// is durably written. Interruption between groups leaves a valid corpus.
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "dedup: canceled during apply")
		}
		if err := e.facilities.Put(ctx, g.group.Survivor); err != nil {
			return report, eris.Wrapf(err, "dedup: write survivor %s", g.group.Survivor.FacilityID)
		}
		for _, loserID := range g.group.LoserIDs {
			if err := e.facilities.Delete(ctx, loserID); err != nil {
				return report, eris.Wrapf(err, "dedup: delete duplicate %s", loserID)
			}
		}
		log.Info("dedup: merged group",
			zap.String("survivor", g.group.Survivor.FacilityID),
			zap.Strings("merged", g.group.LoserIDs))
	}

	log.Info("dedup: run complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("skipped", report.Skipped),
		zap.Int("groups", len(report.Groups)),
		zap.Int("merged", report.Merged))
	return report, nil
}

// planPairs runs the cascade over every block shortlist. Blocks share no
// mutable state, so candidate comparison fans out across workers; results
// funnel through a mutex into one pair list.
func (e *Engine) planPairs(ctx context.Context, records []*model.FacilityRecord, workers int) ([]matchedPair, error) {
	if workers <= 0 {
		workers = 4
	}

	log := zap.L().With(zap.String("component", "dedup_engine"))
	idx := block.NewFacilityIndex(records)

	var mu sync.Mutex
	var pairs []matchedPair

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var local []matchedPair
			for _, cand := range idx.Candidates(rec) {
				// Each unordered pair is evaluated once, from its lower ID.
				if cand.FacilityID <= rec.FacilityID {
					continue
				}
				if method, ok := MatchPair(e.cascade, rec, cand); ok {
					local = append(local, matchedPair{a: rec.FacilityID, b: cand.FacilityID, method: method})
					if km, located := pairDistanceKM(rec, cand); located {
						log.Debug("dedup: pair matched",
							zap.String("a", rec.FacilityID),
							zap.String("b", cand.FacilityID),
							zap.String("method", method),
							zap.Float64("distance_km", km))
					}
				}
			}
			if len(local) > 0 {
				mu.Lock()
				pairs = append(pairs, local...)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "dedup: plan pairs")
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	return pairs, nil
}

// plannedGroup couples a merged group with the strategies that linked it.
type plannedGroup struct {
	group   *DuplicateGroup
	methods []string
}

// buildGroups clusters matched pairs into duplicate groups via union-find and
// merges each group. Output is ordered by survivor ID for determinism.
func buildGroups(records []*model.FacilityRecord, pairs []matchedPair) []plannedGroup {
	byID := make(map[string]*model.FacilityRecord, len(records))
	parent := make(map[string]string, len(records))
	for _, rec := range records {
		byID[rec.FacilityID] = rec
		parent[rec.FacilityID] = rec.FacilityID
	}

	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Smaller root wins so clustering is order-independent.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	methodsByRoot := map[string][]string{}
	for _, p := range pairs {
		union(p.a, p.b)
	}
	for _, p := range pairs {
		root := find(p.a)
		if !containsFold(methodsByRoot[root], p.method) {
			methodsByRoot[root] = append(methodsByRoot[root], p.method)
		}
	}

	membersByRoot := map[string][]*model.FacilityRecord{}
	for _, rec := range records {
		root := find(rec.FacilityID)
		membersByRoot[root] = append(membersByRoot[root], rec)
	}

	var roots []string
	for root, members := range membersByRoot {
		if len(members) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)

	var out []plannedGroup
	for _, root := range roots {
		methods := methodsByRoot[root]
		sort.Strings(methods)
		out = append(out, plannedGroup{
			group:   BuildGroup(membersByRoot[root]),
			methods: methods,
		})
	}
	return out
}
