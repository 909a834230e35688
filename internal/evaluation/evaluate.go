// Package evaluation scores ranked lists against relevance judgments and
// compares run variants. A report depends only on the results, the
// judgments and k; it does not care how the lists were produced.
package evaluation

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// QueryMetrics are one query's values in one variant.
type QueryMetrics struct {
	QID       string  `json:"qid"`
	Precision float64 `json:"precision_at_k"`
	Recall    float64 `json:"recall_at_k"`
	NDCG      float64 `json:"ndcg_at_k"`
	AP        float64 `json:"average_precision"`
	InMAP     bool    `json:"in_map"`
	Relevant  int     `json:"relevant"`
	Retrieved int     `json:"retrieved"`
	Missing   bool    `json:"missing,omitempty"`
	Fallback  bool    `json:"fallback,omitempty"`
	Failed    bool    `json:"failed,omitempty"`
}

// VariantReport holds one variant's per-query and aggregate metrics.
// RecallQueries and MAPQueries count the queries behind those two means.
type VariantReport struct {
	Variant       string             `json:"variant"`
	K             int                `json:"k"`
	Aggregate     map[string]float64 `json:"aggregate"`
	Queries       []QueryMetrics     `json:"queries"`
	Evaluated     int                `json:"evaluated"`
	MAPQueries    int                `json:"map_queries"`
	RecallQueries int                `json:"recall_queries"`
	Unjudged      []string           `json:"unjudged,omitempty"`
	Missing       []string           `json:"missing,omitempty"`
	Fallbacks     []string           `json:"fallbacks,omitempty"`
	Failures      []string           `json:"failures,omitempty"`
}

// Query returns the metrics for qid.
func (v *VariantReport) Query(qid string) (QueryMetrics, bool) {
	i := sort.Search(len(v.Queries), func(i int) bool { return v.Queries[i].QID >= qid })
	if i < len(v.Queries) && v.Queries[i].QID == qid {
		return v.Queries[i], true
	}
	return QueryMetrics{}, false
}

// Run is a named set of ranked lists with the qids that fell back to the
// identity expansion or failed outright.
type Run struct {
	Variant   string
	Results   map[string]ranker.RankedResult
	Fallbacks []string
	Failures  []string
}

func RunFromBatch(b *executor.Batch) Run {
	return Run{
		Variant:   b.Variant,
		Results:   b.Results,
		Fallbacks: b.Fallbacks(),
		Failures:  b.Failures(),
	}
}

// Evaluate computes the metric set for one run under the last-write merge
// policy. Judgments with labels outside {0,1,2} are left out and reported
// in the returned ValidationError; the report is still complete for every
// valid judgment. Only k <= 0 fails the call.
func Evaluate(results map[string]ranker.RankedResult, judgments []Judgment, k int) (*VariantReport, error) {
	qrels, verr := NewQrels(judgments, MergeLastWrite)
	rep, err := EvaluateRun(Run{Variant: "run", Results: results}, qrels, k)
	if err != nil {
		return nil, err
	}
	return rep, verr
}

// EvaluateRun scores run against qrels. The aggregates average over the
// qids that have results or failed; a failed qid scores as an empty list
// and qids with results but no judgments score 0 on the cutoff metrics.
// Judged qids the run never produced are listed as Missing with their
// per-query values but stay out of every aggregate. Queries without
// relevant judgments are left out of MAP and of mean recall.
func EvaluateRun(run Run, qrels *Qrels, k int) (*VariantReport, error) {
	if k <= 0 {
		return nil, apperrors.InvalidConfigf("evaluation k must be > 0, got %d", k)
	}
	fallback := toSet(run.Fallbacks)
	failed := toSet(run.Failures)

	qidSet := make(map[string]struct{}, len(run.Results))
	for qid := range run.Results {
		qidSet[qid] = struct{}{}
	}
	for _, qid := range qrels.QIDs() {
		qidSet[qid] = struct{}{}
	}
	for qid := range failed {
		qidSet[qid] = struct{}{}
	}
	qids := make([]string, 0, len(qidSet))
	for qid := range qidSet {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	rep := &VariantReport{
		Variant:   run.Variant,
		K:         k,
		Aggregate: make(map[string]float64, len(MetricNames)),
		Queries:   make([]QueryMetrics, 0, len(qids)),
		Fallbacks: run.Fallbacks,
		Failures:  run.Failures,
	}
	acc := newAccumulator()
	for _, qid := range qids {
		results, ok := run.Results[qid]
		_, isFailed := failed[qid]
		_, isFallback := fallback[qid]
		qm := scoreQuery(qid, results.DocIDs(), qrels, k)
		qm.Missing = !ok && !isFailed
		qm.Failed = isFailed
		qm.Fallback = isFallback

		rep.Queries = append(rep.Queries, qm)
		if qm.Missing {
			rep.Missing = append(rep.Missing, qid)
			continue
		}
		if !qrels.Has(qid) {
			rep.Unjudged = append(rep.Unjudged, qid)
		}

		acc.add(MetricPrecision, qid, qm.Precision)
		acc.add(MetricNDCG, qid, qm.NDCG)
		if qm.InMAP {
			acc.add(MetricRecall, qid, qm.Recall)
			acc.add(MetricMAP, qid, qm.AP)
		}
	}
	for _, name := range MetricNames {
		rep.Aggregate[name] = acc.mean(name)
	}
	rep.Evaluated = acc.count(MetricPrecision)
	rep.MAPQueries = acc.count(MetricMAP)
	rep.RecallQueries = acc.count(MetricRecall)
	return rep, nil
}

func scoreQuery(qid string, ranked []string, qrels *Qrels, k int) QueryMetrics {
	labels := qrels.Judged(qid)
	ap, inMAP := AveragePrecision(ranked, labels)
	return QueryMetrics{
		QID:       qid,
		Precision: PrecisionAtK(ranked, labels, k),
		Recall:    RecallAtK(ranked, labels, k),
		NDCG:      NDCGAtK(ranked, labels, qrels.idealLabels(qid), k),
		AP:        ap,
		InMAP:     inMAP,
		Relevant:  countRelevant(labels),
		Retrieved: len(ranked),
	}
}

// Comparison counts per-query nDCG wins and losses of a variant against
// the baseline.
type Comparison struct {
	Variant   string `json:"variant"`
	Improved  int    `json:"improved"`
	Hurt      int    `json:"hurt"`
	Unchanged int    `json:"unchanged"`
}

// MetricReport is the baseline-versus-variants comparison. RunID and
// CreatedAt are left for the caller to stamp. MetricNotes describes, by
// metric name, aggregates whose query set differs from the evaluated
// queries.
type MetricReport struct {
	RunID           string                        `json:"run_id,omitempty"`
	CreatedAt       string                        `json:"created_at,omitempty"`
	K               int                           `json:"k"`
	Baseline        string                        `json:"baseline"`
	MergePolicy     MergePolicy                   `json:"merge_policy"`
	TokenizerPolicy string                        `json:"tokenizer_policy,omitempty"`
	Variants        []*VariantReport              `json:"variants"`
	Deltas          map[string]map[string]float64 `json:"deltas"`
	Comparisons     []Comparison                  `json:"comparisons"`
	Rejected        []Rejected                    `json:"rejected,omitempty"`
	MetricNotes     map[string]string             `json:"metric_notes,omitempty"`
}

// RecallNote explains the recall aggregate.
const RecallNote = "mean over queries with at least one relevant judgment; queries without one are excluded, not scored 0"

// Variant returns the named variant's report.
func (r *MetricReport) Variant(name string) (*VariantReport, bool) {
	for _, v := range r.Variants {
		if v.Variant == name {
			return v, true
		}
	}
	return nil, false
}

// Scores returns variant → metric → aggregate value.
func (r *MetricReport) Scores() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(r.Variants))
	for _, v := range r.Variants {
		out[v.Variant] = v.Aggregate
	}
	return out
}

// Compare evaluates every run against the same qrels and cutoff. The first
// run is the baseline that deltas and per-query comparisons refer to.
// Variant names must be unique and non-empty.
func Compare(ctx context.Context, runs []Run, qrels *Qrels, k int) (*MetricReport, error) {
	if len(runs) == 0 {
		return nil, apperrors.InvalidConfigf("compare needs at least one run")
	}
	if k <= 0 {
		return nil, apperrors.InvalidConfigf("evaluation k must be > 0, got %d", k)
	}
	seen := make(map[string]bool, len(runs))
	for _, r := range runs {
		if r.Variant == "" || seen[r.Variant] {
			return nil, apperrors.InvalidConfigf("run variant names must be unique and non-empty, got %q", r.Variant)
		}
		seen[r.Variant] = true
	}

	reports := make([]*VariantReport, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	for i, run := range runs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := EvaluateRun(run, qrels, k)
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	base := reports[0]
	report := &MetricReport{
		K:           k,
		Baseline:    base.Variant,
		MergePolicy: qrels.Policy(),
		Variants:    reports,
		Deltas:      make(map[string]map[string]float64, len(reports)-1),
		Comparisons: make([]Comparison, 0, len(reports)-1),
		Rejected:    qrels.Rejected(),
		MetricNotes: map[string]string{MetricRecall: RecallNote},
	}
	for _, v := range reports[1:] {
		deltas := make(map[string]float64, len(MetricNames))
		for _, name := range MetricNames {
			deltas[name] = v.Aggregate[name] - base.Aggregate[name]
		}
		report.Deltas[v.Variant] = deltas
		report.Comparisons = append(report.Comparisons, compareQueries(base, v))
	}
	return report, nil
}

func compareQueries(base, v *VariantReport) Comparison {
	c := Comparison{Variant: v.Variant}
	for _, qm := range v.Queries {
		b, ok := base.Query(qm.QID)
		if !ok || qm.Missing || b.Missing {
			continue
		}
		switch {
		case qm.NDCG > b.NDCG:
			c.Improved++
		case qm.NDCG < b.NDCG:
			c.Hurt++
		default:
			c.Unchanged++
		}
	}
	return c
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
