// Package resolver matches extracted mentions against CRM records with
// fuzzy, accent-insensitive scoring on a 0..100 scale.
package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/crm"
	"github.com/sells-group/meeting-agent/internal/gate"
	"github.com/sells-group/meeting-agent/internal/model"
)

// Opts tunes candidate scoring.
type Opts struct {
	// CompanyBonus is added to a contact or opportunity candidate whose
	// company lines up with the mention's company context. Default: 10.
	CompanyBonus float64

	// CompanyMatchMin is the minimum name similarity for a company hint to
	// count as confirming a candidate's company. Default: 80.
	CompanyMatchMin float64
}

// Resolver scores CRM candidates for each mention. Companies resolve first;
// their outcomes feed company context into contact and opportunity scoring.
type Resolver struct {
	store  crm.Store
	policy gate.Policy
	opts   Opts
}

// New builds a resolver over a CRM read store.
func New(store crm.Store, policy gate.Policy, opts Opts) *Resolver {
	if opts.CompanyBonus == 0 {
		opts.CompanyBonus = 10
	}
	if opts.CompanyMatchMin == 0 {
		opts.CompanyMatchMin = 80
	}
	return &Resolver{store: store, policy: policy, opts: opts}
}

// companyContext is what company resolution learned, consulted when scoring
// contacts and opportunities.
type companyContext struct {
	ids   map[string]bool // resolved company record IDs
	names []string        // resolved company names
}

// Resolve populates candidate lists for every mention, in place order.
// Mentions arrive companies-first, so company outcomes are known before any
// contact or opportunity is scored. A store failure aborts the whole phase.
func (r *Resolver) Resolve(ctx context.Context, mentions []model.MentionCandidates) ([]model.MentionCandidates, error) {
	cc := companyContext{ids: map[string]bool{}}

	out := make([]model.MentionCandidates, len(mentions))
	for i, mc := range mentions {
		scored, err := r.resolveOne(ctx, mc, cc)
		if err != nil {
			return nil, err
		}
		out[i] = scored

		if mc.Mention.Type == model.EntityCompany {
			if rec, ok := r.policy.AutoSelect(model.EntityCompany, scored.Candidates); ok {
				cc.ids[rec.ID] = true
				cc.names = append(cc.names, rec.Name)
			}
		}
	}
	return out, nil
}

func (r *Resolver) resolveOne(ctx context.Context, mc model.MentionCandidates, cc companyContext) (model.MentionCandidates, error) {
	hints := crm.Hints{
		Company: mc.Mention.Hints.Company,
		Role:    mc.Mention.Hints.Role,
		Stage:   mc.Mention.Hints.Stage,
	}

	recs, err := r.store.FindCandidates(ctx, mc.Mention.Type, mc.Mention.Text, hints)
	if err != nil {
		return mc, eris.Wrapf(err, "resolver: find candidates for %s", mc.Key)
	}

	candidates := make([]model.CandidateMatch, 0, len(recs))
	for _, rec := range recs {
		score := r.scoreCandidate(mc.Mention, rec, cc)
		candidates = append(candidates, model.CandidateMatch{Record: rec, Score: score})
	}

	// Descending score; ascending record ID breaks ties deterministically.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Record.ID < candidates[j].Record.ID
	})

	mc.Candidates = candidates

	zap.L().Debug("mention scored",
		zap.String("key", mc.Key),
		zap.String("text", mc.Mention.Text),
		zap.Int("candidates", len(candidates)),
	)
	return mc, nil
}

// scoreCandidate computes the final 0..100 score for one record: best name or
// alias similarity, an exact-email short-circuit for contacts, and the
// company-context bonus for contacts and opportunities.
func (r *Resolver) scoreCandidate(m model.Mention, rec model.EntityRecord, cc companyContext) float64 {
	if m.Type == model.EntityContact && m.Hints.Email != "" {
		if strings.EqualFold(m.Hints.Email, rec.Attr(model.AttrEmail)) {
			return 100
		}
	}

	score := Score(m.Type, m.Text, rec.Name)
	for _, alias := range rec.Aliases {
		if s := Score(m.Type, m.Text, alias); s > score {
			score = s
		}
	}

	if m.Type != model.EntityCompany && r.companyConfirmed(m, rec, cc) {
		score += r.opts.CompanyBonus
	}

	return clamp(score)
}

// companyConfirmed reports whether the candidate's company lines up with
// either a company resolved earlier in this run or the mention's own company
// hint.
func (r *Resolver) companyConfirmed(m model.Mention, rec model.EntityRecord, cc companyContext) bool {
	recCompanyID := rec.Attr(model.AttrCompanyID)
	recCompanyName := rec.Attr(model.AttrCompanyName)
	if recCompanyID == "" && recCompanyName == "" {
		return false
	}

	if recCompanyID != "" && cc.ids[recCompanyID] {
		return true
	}
	if recCompanyName != "" {
		for _, name := range cc.names {
			if Score(model.EntityCompany, name, recCompanyName) >= r.opts.CompanyMatchMin {
				return true
			}
		}
		if m.Hints.Company != "" &&
			Score(model.EntityCompany, m.Hints.Company, recCompanyName) >= r.opts.CompanyMatchMin {
			return true
		}
	}
	return false
}
