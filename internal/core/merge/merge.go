// Package merge reconciles the findings of the inspection and thermal reports
// into unified entries, conflicts and gaps.
package merge

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

const (
	// DefaultSimilarity is the area label similarity needed to join a group.
	DefaultSimilarity = 0.85
	// duplicateSimilarity is the description similarity above which a description is dropped from the joined text.
	duplicateSimilarity = 0.85
	descriptionSep      = "; "
)

var digitRun = regexp.MustCompile(`[0-9]+`)

type contradiction struct {
	a, b   *regexp.Regexp
	reason string
}

func term(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}

var contradictions = []contradiction{
	{term("moisture"), term("dry"), "moisture vs dry"},
	{term("wet"), term("dry"), "wet vs dry"},
	{term("mold"), term("clean"), "mold vs clean"},
	{term("damage"), term("intact"), "damage vs intact"},
	{term("high temperature"), term("low temperature"), "high temperature vs low temperature"},
}

// Merger groups findings by area and classifies each group.
type Merger struct {
	similarity float64
	logger     *slog.Logger
}

type Option func(*Merger)

// WithSimilarity sets the area label threshold in (0, 1]. 1 means normalized labels must be equal.
func WithSimilarity(s float64) Option {
	return func(m *Merger) {
		if s > 0 && s <= 1 {
			m.similarity = s
		}
	}
}

func NewMerger(logger *slog.Logger, opts ...Option) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Merger{similarity: DefaultSimilarity, logger: logger}
	for _, o := range opts {
		o(m)
	}
	return m
}

type group struct {
	area       string
	key        string
	digits     []string
	inspection []entity.Finding
	thermal    []entity.Finding
}

// Merge never discards a finding: each input lands in exactly one unified entry or conflict.
func (m *Merger) Merge(inspection, thermal entity.DocumentFindings) entity.MergedFindingSet {
	var groups []*group
	add := func(f entity.Finding, fallback constants.SourceKind) {
		if f.Source == "" {
			f.Source = fallback
		}
		g := m.find(groups, f.Area)
		if g == nil {
			key := NormalizeArea(f.Area)
			g = &group{area: strings.TrimSpace(f.Area), key: key, digits: digitRun.FindAllString(key, -1)}
			groups = append(groups, g)
		}
		if f.Source == constants.SourceThermal {
			g.thermal = append(g.thermal, f)
		} else {
			g.inspection = append(g.inspection, f)
		}
	}
	for _, f := range inspection.Findings {
		add(f, constants.SourceInspection)
	}
	for _, f := range thermal.Findings {
		add(f, constants.SourceThermal)
	}

	out := entity.MergedFindingSet{
		Unified:     []entity.UnifiedFinding{},
		Conflicts:   []entity.Conflict{},
		Gaps:        []entity.Gap{},
		MissingInfo: dedupe(append(append([]string{}, inspection.MissingInfo...), thermal.MissingInfo...)),
	}

	for _, g := range groups {
		switch {
		case len(g.thermal) == 0 || len(g.inspection) == 0:
			members, kind := g.inspection, constants.SourceInspection
			if len(g.inspection) == 0 {
				members, kind = g.thermal, constants.SourceThermal
			}
			out.Unified = append(out.Unified, unify(g.area, constants.TagFor(kind), members))
			out.Gaps = append(out.Gaps, entity.Gap{
				Area:       g.area,
				ReportedBy: kind,
				Note:       fmt.Sprintf("%s reported only by %s", g.area, kind),
			})
		default:
			if reason, ok := disagree(g.inspection, g.thermal); ok {
				out.Conflicts = append(out.Conflicts, entity.Conflict{
					Area:       g.area,
					Reason:     reason,
					Inspection: g.inspection,
					Thermal:    g.thermal,
				})
				continue
			}
			members := append(append([]entity.Finding{}, g.inspection...), g.thermal...)
			out.Unified = append(out.Unified, unify(g.area, constants.TagBoth, members))
		}
	}

	sort.SliceStable(out.Unified, func(i, j int) bool {
		return NormalizeArea(out.Unified[i].Area) < NormalizeArea(out.Unified[j].Area)
	})

	m.logger.Info("merge.ok",
		"inspection", len(inspection.Findings),
		"thermal", len(thermal.Findings),
		"groups", len(groups),
		"unified", len(out.Unified),
		"conflicts", len(out.Conflicts),
		"gaps", len(out.Gaps),
	)
	return out
}

// find returns the group whose label equals area after normalization, otherwise
// the most similar group above the threshold with the same digit sequences.
func (m *Merger) find(groups []*group, area string) *group {
	key := NormalizeArea(area)
	for _, g := range groups {
		if g.key == key {
			return g
		}
	}
	if m.similarity >= 1 {
		return nil
	}
	digits := digitRun.FindAllString(key, -1)
	var best *group
	bestScore := 0.0
	for _, g := range groups {
		if !slices.Equal(g.digits, digits) {
			continue
		}
		score := levenshtein.Similarity(g.key, key, nil)
		if score >= m.similarity && score > bestScore {
			best, bestScore = g, score
		}
	}
	return best
}

func unify(area string, tag constants.SourceTag, members []entity.Finding) entity.UnifiedFinding {
	sev := constants.SeverityUnknown
	var kept []string
	var keptNorm []string
	for _, f := range members {
		if f.Severity.Rank() > sev.Rank() {
			sev = f.Severity
		}
		d := strings.TrimSpace(f.Description)
		if d == "" {
			continue
		}
		n := normalizeText(d)
		if nearDuplicate(keptNorm, n) {
			continue
		}
		kept = append(kept, d)
		keptNorm = append(keptNorm, n)
	}
	return entity.UnifiedFinding{
		Area:        area,
		Tag:         tag,
		Severity:    sev,
		Description: strings.Join(kept, descriptionSep),
		Members:     members,
	}
}

func nearDuplicate(kept []string, n string) bool {
	for _, k := range kept {
		if k == n || levenshtein.Similarity(k, n, nil) > duplicateSimilarity {
			return true
		}
	}
	return false
}

// disagree reports whether the two sources contradict each other about one area.
func disagree(inspection, thermal []entity.Finding) (string, bool) {
	is, ts := knownSeverities(inspection), knownSeverities(thermal)
	if len(is) > 0 && len(ts) > 0 && disjoint(is, ts) {
		return fmt.Sprintf("severity differs: inspection %s, thermal %s", joinSeverities(is), joinSeverities(ts)), true
	}

	it, tt := descriptions(inspection), descriptions(thermal)
	for _, c := range contradictions {
		if (c.a.MatchString(it) && c.b.MatchString(tt)) || (c.b.MatchString(it) && c.a.MatchString(tt)) {
			return "contradictory observations: " + c.reason, true
		}
	}
	return "", false
}

func knownSeverities(fs []entity.Finding) map[constants.Severity]struct{} {
	out := make(map[constants.Severity]struct{})
	for _, f := range fs {
		if f.Severity.Known() {
			out[f.Severity] = struct{}{}
		}
	}
	return out
}

func disjoint(a, b map[constants.Severity]struct{}) bool {
	for s := range a {
		if _, ok := b[s]; ok {
			return false
		}
	}
	return true
}

func joinSeverities(set map[constants.Severity]struct{}) string {
	var out []string
	for _, s := range []constants.Severity{constants.SeverityHigh, constants.SeverityModerate, constants.SeverityLow} {
		if _, ok := set[s]; ok {
			out = append(out, string(s))
		}
	}
	return strings.Join(out, "/")
}

func descriptions(fs []entity.Finding) string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		parts = append(parts, f.Description)
	}
	return strings.Join(parts, "\n")
}

// NormalizeArea lowercases a label, turns punctuation into spaces and collapses whitespace.
func NormalizeArea(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func dedupe(notes []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range notes {
		n = strings.TrimSpace(n)
		k := normalizeText(n)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
