package resolve

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/registry"
	"github.com/oregrid/facility-cli/internal/similarity"
	"github.com/oregrid/facility-cli/internal/store"
)

// parentMatchRatio is the similarity a raw name must reach against a
// candidate's parent-company name for the parent boost to apply.
const parentMatchRatio = 0.85

// Options configures a resolution run.
type Options struct {
	// Country restricts the run to facilities of one country code.
	Country string

	// DryRun computes every outcome without writing relationships.
	DryRun bool

	// Workers bounds concurrent facility resolution. Default 4.
	Workers int

	// MinConfidence, when > 0, suppresses persisting relationships below it
	// even when the gate would allow them.
	MinConfidence float64
}

// Outcome is the fully-scored result for one mention. Expected conditions
// (no candidates, low confidence, failed lookup) are outcome values, never
// errors.
type Outcome struct {
	FacilityID     string                  `json:"facility_id"`
	RawName        string                  `json:"raw_name"`
	Evidence       string                  `json:"evidence,omitempty"`
	Role           model.MentionRole       `json:"role"`
	Candidate      *model.CanonicalCompany `json:"candidate,omitempty"`
	BaseConfidence float64                 `json:"base_confidence"`
	Confidence     float64                 `json:"confidence"`
	Gate           model.Gate              `json:"gate"`
	MatchMethod    string                  `json:"match_method,omitempty"`
	Adjustments    []model.GateAdjustment  `json:"adjustments,omitempty"`
	LookupFailed   bool                    `json:"lookup_failed,omitempty"`
}

// Report summarizes a resolution run.
type Report struct {
	Facilities     int       `json:"facilities"`
	Mentions       int       `json:"mentions"`
	AutoAccepted   int       `json:"auto_accepted"`
	Review         int       `json:"review"`
	Pending        int       `json:"pending"`
	LookupFailures int       `json:"lookup_failures"`
	Persisted      int       `json:"persisted"`
	DryRun         bool      `json:"dry_run"`
	Outcomes       []Outcome `json:"outcomes,omitempty"`
}

// Resolver scores facility mentions against the canonical-company registry.
type Resolver struct {
	registry registry.Registry
	rels     store.RelationshipStore
	profile  Profile
	cache    *SessionCache
	log      *zap.Logger
}

// NewResolver creates a resolver. The session cache must be provided by the
// caller so its lifetime is explicitly one run.
func NewResolver(reg registry.Registry, rels store.RelationshipStore, profile Profile, cache *SessionCache) *Resolver {
	return &Resolver{
		registry: reg,
		rels:     rels,
		profile:  profile,
		cache:    cache,
		log:      zap.L().With(zap.String("component", "resolve_engine")),
	}
}

// Run resolves every mention of every facility in scope. Facility resolution
// fans out across workers; relationship writes for one facility happen inside
// that facility's goroutine and the store upserts by natural key, so
// concurrent mentions never lose updates. Re-running with an unchanged
// registry and mention set produces the identical relationship set.
func (r *Resolver) Run(ctx context.Context, facilities []*model.FacilityRecord, opts Options) (*Report, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	report := &Report{DryRun: opts.DryRun}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, fac := range facilities {
		if opts.Country != "" && !strings.EqualFold(fac.CountryCode, opts.Country) {
			continue
		}
		report.Facilities++
		fac := fac
		g.Go(func() error {
			outcomes := r.resolveFacility(gctx, fac)

			if !opts.DryRun {
				for i := range outcomes {
					o := &outcomes[i]
					if !o.Gate.Persistable() || o.Candidate == nil {
						continue
					}
					if opts.MinConfidence > 0 && o.Confidence < opts.MinConfidence {
						continue
					}
					if err := r.rels.Upsert(gctx, relationshipFrom(o)); err != nil {
						return eris.Wrapf(err, "resolve: persist %s -> %s", o.FacilityID, o.Candidate.CompanyID)
					}
					mu.Lock()
					report.Persisted++
					mu.Unlock()
				}
			}

			mu.Lock()
			defer mu.Unlock()
			for _, o := range outcomes {
				report.Mentions++
				switch o.Gate {
				case model.GateAutoAccept:
					report.AutoAccepted++
				case model.GateReview:
					report.Review++
				case model.GatePending:
					report.Pending++
				}
				if o.LookupFailed {
					report.LookupFailures++
				}
			}
			report.Outcomes = append(report.Outcomes, outcomes...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, eris.Wrap(err, "resolve: run")
	}

	sort.Slice(report.Outcomes, func(i, j int) bool {
		if report.Outcomes[i].FacilityID != report.Outcomes[j].FacilityID {
			return report.Outcomes[i].FacilityID < report.Outcomes[j].FacilityID
		}
		return report.Outcomes[i].RawName < report.Outcomes[j].RawName
	})

	r.log.Info("resolve: run complete",
		zap.Int("facilities", report.Facilities),
		zap.Int("mentions", report.Mentions),
		zap.Int("auto_accepted", report.AutoAccepted),
		zap.Int("review", report.Review),
		zap.Int("pending", report.Pending),
		zap.Int("lookup_failures", report.LookupFailures),
		zap.Bool("dry_run", opts.DryRun))
	return report, nil
}

// resolveFacility scores every mention of one facility. The dual-source
// boost needs the whole mention list, so scoring happens in two passes:
// best-candidate selection per mention, then adjustment and gating.
func (r *Resolver) resolveFacility(ctx context.Context, fac *model.FacilityRecord) []Outcome {
	type scored struct {
		mention   model.CompanyMention
		candidate *model.CanonicalCompany
		base      float64
		method    string
		failed    bool
	}

	firstPass := make([]scored, 0, len(fac.Mentions))
	for _, mention := range fac.Mentions {
		if ctx.Err() != nil {
			break
		}
		cands, err := r.candidates(ctx, mention.RawName, fac.CountryCode)
		if err != nil {
			// Lookup failure degrades the mention to pending; it is retried
			// on the next run, never dropped.
			r.log.Warn("resolve: registry lookup failed, mention degraded to pending",
				zap.String("facility_id", fac.FacilityID),
				zap.String("raw_name", mention.RawName),
				zap.Error(err))
			firstPass = append(firstPass, scored{mention: mention, failed: true})
			continue
		}
		best, base, method := bestCandidate(mention.RawName, cands)
		firstPass = append(firstPass, scored{mention: mention, candidate: best, base: base, method: method})
	}

	// Count distinct sources agreeing per candidate for the dual-source boost.
	sourcesByCandidate := map[string]map[string]bool{}
	for _, s := range firstPass {
		if s.candidate == nil {
			continue
		}
		// Only mentions with a real source reference count toward the
		// independence boost; source-less spelling variants are not
		// independent corroboration.
		src := s.mention.SourceRef
		if src == "" {
			continue
		}
		if sourcesByCandidate[s.candidate.CompanyID] == nil {
			sourcesByCandidate[s.candidate.CompanyID] = map[string]bool{}
		}
		sourcesByCandidate[s.candidate.CompanyID][src] = true
	}

	outcomes := make([]Outcome, 0, len(firstPass))
	for _, s := range firstPass {
		o := Outcome{
			FacilityID:     fac.FacilityID,
			RawName:        s.mention.RawName,
			Evidence:       evidenceOf(s.mention),
			Role:           roleOf(s.mention),
			Candidate:      s.candidate,
			BaseConfidence: s.base,
			MatchMethod:    s.method,
			LookupFailed:   s.failed,
		}

		if s.candidate == nil {
			o.Gate = model.GatePending
			outcomes = append(outcomes, o)
			continue
		}

		dualSource := len(sourcesByCandidate[s.candidate.CompanyID]) >= 2
		o.Confidence, o.Adjustments = Score(s.mention, fac.CountryCode, *s.candidate, s.base, dualSource, r.profile)
		o.Gate = r.profile.GateFor(o.Confidence)
		outcomes = append(outcomes, o)
	}

	return outcomes
}

// candidates shortlists registry companies for a raw name, consulting the
// session cache first. A cached empty shortlist is a valid negative result.
func (r *Resolver) candidates(ctx context.Context, rawName, countryHint string) ([]model.CanonicalCompany, error) {
	if cached, ok := r.cache.Get(rawName, countryHint); ok {
		return cached, nil
	}
	cands, err := r.registry.Query(ctx, rawName, countryHint)
	if err != nil {
		return nil, err
	}
	r.cache.Put(rawName, countryHint, cands)
	return cands, nil
}

// bestCandidate picks the candidate with the highest name similarity against
// the registered name and known aliases. Ties keep the earliest candidate;
// shortlists arrive CompanyID-ordered, so tie resolution is reproducible.
func bestCandidate(rawName string, cands []model.CanonicalCompany) (*model.CanonicalCompany, float64, string) {
	var best *model.CanonicalCompany
	bestScore := 0.0
	method := ""

	for i := range cands {
		c := &cands[i]
		score := similarity.Ratio(rawName, c.RegisteredName)
		m := "fuzzy_name"
		if similarity.NormalizeName(rawName) == similarity.NormalizeName(c.RegisteredName) {
			m = "exact_name"
		}
		for _, alias := range c.Aliases {
			if s := similarity.Ratio(rawName, alias); s > score {
				score = s
				m = "alias_name"
			}
		}
		if score > bestScore {
			best, bestScore, method = c, score, m
		}
	}

	if best == nil {
		return nil, 0, ""
	}
	return best, bestScore, method
}

// Score applies the boost/penalty ladder to a base confidence and clamps the
// result to [0, 1]. Pure and total: no hidden state, every adjustment is
// reported.
func Score(mention model.CompanyMention, facilityCountry string, cand model.CanonicalCompany, base float64, dualSource bool, p Profile) (float64, []model.GateAdjustment) {
	conf := base
	var adj []model.GateAdjustment

	apply := func(reason string, delta float64) {
		conf += delta
		adj = append(adj, model.GateAdjustment{Reason: reason, Delta: delta})
	}

	// Boosts.
	if mention.RegistryRef != "" && cand.HasIdentifier(mention.RegistryRef) {
		apply("registry_identifier_match", p.PreferRegistryBoost)
	}
	if dualSource {
		apply("dual_source_agreement", p.DualSourceBoost)
	}
	if cand.ParentName != "" && similarity.Ratio(mention.RawName, cand.ParentName) > parentMatchRatio {
		apply("parent_name_match", p.ParentMatchBoost)
	}

	// Penalties.
	if facilityCountry != "" && cand.CountryCode != "" && !strings.EqualFold(facilityCountry, cand.CountryCode) {
		apply("country_mismatch", -p.CountryMismatchPenalty)
	}
	if len(cand.Identifiers) == 0 {
		apply("no_registry_identifier", -p.NoIdentifierPenalty)
	}
	if nameLengthGap(mention.RawName, cand.RegisteredName) > p.NameLengthGap {
		apply("name_length_gap", -p.NameLengthPenalty)
	}
	if similarity.IsGenericToken(mention.RawName) {
		apply("generic_single_token", -p.GenericNamePenalty)
	}

	// The additive ladder can escape [0,1]; clamp so downstream gating and
	// storage always see a valid confidence.
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf, adj
}

func nameLengthGap(a, b string) int {
	la := len(similarity.NormalizeName(a))
	lb := len(similarity.NormalizeName(b))
	if la > lb {
		return la - lb
	}
	return lb - la
}

// evidenceOf prefers the extracted evidence passage over the bare raw name.
func evidenceOf(m model.CompanyMention) string {
	if m.EvidenceText != "" {
		return m.EvidenceText
	}
	return m.RawName
}

func roleOf(m model.CompanyMention) model.MentionRole {
	switch m.RoleGuess {
	case model.RoleOperator, model.RoleOwner:
		return m.RoleGuess
	default:
		return model.RoleUnknown
	}
}

// relationshipFrom builds the persistable relationship for an accepted or
// review-gated outcome.
func relationshipFrom(o *Outcome) *model.Relationship {
	return &model.Relationship{
		FacilityID:     o.FacilityID,
		CompanyID:      o.Candidate.CompanyID,
		Role:           o.Role,
		Confidence:     o.Confidence,
		BaseConfidence: o.BaseConfidence,
		Gate:           o.Gate,
		MatchMethod:    o.MatchMethod,
		Evidence:       o.Evidence,
		GatesApplied:   o.Adjustments,
	}
}
