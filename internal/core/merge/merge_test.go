package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

func finding(src constants.SourceKind, area, desc string, sev constants.Severity) entity.Finding {
	return entity.Finding{Area: area, Description: desc, Severity: sev, Source: src}
}

func insp(fs ...entity.Finding) entity.DocumentFindings {
	return entity.DocumentFindings{Source: constants.SourceInspection, Findings: fs}
}

func therm(fs ...entity.Finding) entity.DocumentFindings {
	return entity.DocumentFindings{Source: constants.SourceThermal, Findings: fs}
}

func TestMergeAgreeingSources(t *testing.T) {
	m := NewMerger(nil)
	out := m.Merge(
		insp(finding(constants.SourceInspection, "Roof", "moderate leak", constants.SeverityModerate)),
		therm(finding(constants.SourceThermal, "Roof", "moderate heat loss", constants.SeverityModerate)),
	)

	require.Len(t, out.Unified, 1)
	u := out.Unified[0]
	assert.Equal(t, "Roof", u.Area)
	assert.Equal(t, constants.TagBoth, u.Tag)
	assert.Equal(t, constants.SeverityModerate, u.Severity)
	assert.Equal(t, "moderate leak; moderate heat loss", u.Description)
	assert.Len(t, u.Members, 2)
	assert.Empty(t, out.Conflicts)
	assert.Empty(t, out.Gaps)
}

func TestMergeSingleSourceProducesGap(t *testing.T) {
	m := NewMerger(nil)
	out := m.Merge(
		insp(finding(constants.SourceInspection, "Attic", "high moisture", constants.SeverityHigh)),
		therm(),
	)

	require.Len(t, out.Unified, 1)
	assert.Equal(t, constants.TagInspectionOnly, out.Unified[0].Tag)
	assert.Equal(t, constants.SeverityHigh, out.Unified[0].Severity)
	require.Len(t, out.Gaps, 1)
	assert.Equal(t, "Attic reported only by inspection", out.Gaps[0].Note)
	assert.Equal(t, constants.SourceInspection, out.Gaps[0].ReportedBy)
	assert.Empty(t, out.Conflicts)
}

func TestMergeSeverityConflict(t *testing.T) {
	m := NewMerger(nil)
	a := finding(constants.SourceInspection, "Wall", "low severity crack", constants.SeverityLow)
	b := finding(constants.SourceThermal, "Wall", "high severity thermal anomaly", constants.SeverityHigh)
	out := m.Merge(insp(a), therm(b))

	assert.Empty(t, out.Unified)
	assert.Empty(t, out.Gaps)
	require.Len(t, out.Conflicts, 1)
	c := out.Conflicts[0]
	assert.Equal(t, "Wall", c.Area)
	assert.Equal(t, []entity.Finding{a}, c.Inspection)
	assert.Equal(t, []entity.Finding{b}, c.Thermal)
	assert.Contains(t, c.Reason, "severity differs")
}

func TestMergeDisagreement(t *testing.T) {
	tests := []struct {
		name     string
		insp     entity.Finding
		therm    entity.Finding
		conflict bool
	}{
		{
			name:     "unknown never conflicts on severity",
			insp:     finding(constants.SourceInspection, "Hall", "hairline crack", constants.SeverityUnknown),
			therm:    finding(constants.SourceThermal, "Hall", "cold spot", constants.SeverityHigh),
			conflict: false,
		},
		{
			name:     "contradictory terms",
			insp:     finding(constants.SourceInspection, "Basement", "visible moisture on slab", constants.SeverityModerate),
			therm:    finding(constants.SourceThermal, "Basement", "surface reads dry", constants.SeverityModerate),
			conflict: true,
		},
		{
			name:     "terms match whole words only",
			insp:     finding(constants.SourceInspection, "Garage", "wetness near door", constants.SeverityLow),
			therm:    finding(constants.SourceThermal, "Garage", "drywall cool", constants.SeverityLow),
			conflict: false,
		},
		{
			name:     "temperature phrases",
			insp:     finding(constants.SourceInspection, "Loft", "high temperature at ceiling", constants.SeverityUnknown),
			therm:    finding(constants.SourceThermal, "Loft", "Low  Temperature recorded", constants.SeverityUnknown),
			conflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewMerger(nil).Merge(insp(tt.insp), therm(tt.therm))
			if tt.conflict {
				assert.Len(t, out.Conflicts, 1)
				assert.Empty(t, out.Unified)
			} else {
				assert.Empty(t, out.Conflicts)
				require.Len(t, out.Unified, 1)
				assert.Equal(t, constants.TagBoth, out.Unified[0].Tag)
			}
		})
	}
}

func TestMergeAreaMatching(t *testing.T) {
	tests := []struct {
		name       string
		a, b       string
		similarity float64
		same       bool
	}{
		{"case and punctuation", "Master Bedroom", "master-bedroom.", DefaultSimilarity, true},
		{"near spelling", "Living Room", "Livng Room", DefaultSimilarity, true},
		{"different digits", "Bedroom 1", "Bedroom 2", DefaultSimilarity, false},
		{"unrelated", "Kitchen", "Garage", DefaultSimilarity, false},
		{"exact only", "Living Room", "Livng Room", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMerger(nil, WithSimilarity(tt.similarity))
			out := m.Merge(
				insp(finding(constants.SourceInspection, tt.a, "stain", constants.SeverityLow)),
				therm(finding(constants.SourceThermal, tt.b, "cool patch", constants.SeverityLow)),
			)
			if tt.same {
				require.Len(t, out.Unified, 1)
				assert.Equal(t, tt.a, out.Unified[0].Area)
				assert.Empty(t, out.Gaps)
			} else {
				assert.Len(t, out.Unified, 2)
				assert.Len(t, out.Gaps, 2)
			}
		})
	}
}

func TestMergeDescriptionDeduplication(t *testing.T) {
	out := NewMerger(nil).Merge(
		insp(
			finding(constants.SourceInspection, "Bathroom", "Seepage below the sink", constants.SeverityModerate),
			finding(constants.SourceInspection, "bathroom", "seepage below the sink.", constants.SeverityUnknown),
			finding(constants.SourceInspection, "Bathroom", "tile hollowness", constants.SeverityLow),
		),
		therm(),
	)
	require.Len(t, out.Unified, 1)
	assert.Equal(t, "Seepage below the sink; tile hollowness", out.Unified[0].Description)
	assert.Equal(t, constants.SeverityModerate, out.Unified[0].Severity)
	assert.Len(t, out.Unified[0].Members, 3)
}

func mixedInput() (entity.DocumentFindings, entity.DocumentFindings) {
	i := insp(
		finding(constants.SourceInspection, "Roof", "moderate leak", constants.SeverityModerate),
		finding(constants.SourceInspection, "Attic", "high moisture", constants.SeverityHigh),
		finding(constants.SourceInspection, "Wall", "low severity crack", constants.SeverityLow),
		finding(constants.SourceInspection, "Bedroom 1", "damp corner", constants.SeverityUnknown),
		finding(constants.SourceInspection, "Bedroom 2", "peeling paint", constants.SeverityLow),
	)
	i.MissingInfo = []string{"Roof age", "roof  age"}
	th := therm(
		finding(constants.SourceThermal, "roof", "moderate heat loss", constants.SeverityModerate),
		finding(constants.SourceThermal, "Wall", "high severity thermal anomaly", constants.SeverityHigh),
		finding(constants.SourceThermal, "Garage", "warm door seal", constants.SeverityLow),
	)
	th.MissingInfo = []string{"ambient temperature"}
	return i, th
}

func TestMergeNeverDropsFindings(t *testing.T) {
	i, th := mixedInput()
	out := NewMerger(nil).Merge(i, th)

	assert.Equal(t, len(i.Findings)+len(th.Findings), out.FindingCount())

	var members []entity.Finding
	for _, u := range out.Unified {
		members = append(members, u.Members...)
	}
	for _, c := range out.Conflicts {
		members = append(members, c.Members()...)
	}
	assert.ElementsMatch(t, append(append([]entity.Finding{}, i.Findings...), th.Findings...), members)
	assert.Equal(t, []string{"Roof age", "ambient temperature"}, out.MissingInfo)
}

func TestMergeOrdering(t *testing.T) {
	i, th := mixedInput()
	out := NewMerger(nil).Merge(i, th)

	var areas []string
	for _, u := range out.Unified {
		areas = append(areas, u.Area)
	}
	assert.Equal(t, []string{"Attic", "Bedroom 1", "Bedroom 2", "Garage", "Roof"}, areas)

	var gaps []string
	for _, g := range out.Gaps {
		gaps = append(gaps, g.Area)
	}
	assert.Equal(t, []string{"Attic", "Bedroom 1", "Bedroom 2", "Garage"}, gaps)
	require.Len(t, out.Conflicts, 1)
	assert.Equal(t, "Wall", out.Conflicts[0].Area)
}

func TestMergeIsIdempotentOnUnifiedOutput(t *testing.T) {
	i, th := mixedInput()
	m := NewMerger(nil)
	first := m.Merge(i, th)

	var again []entity.Finding
	for _, u := range first.Unified {
		again = append(again, entity.Finding{
			Area:        u.Area,
			Description: u.Description,
			Severity:    u.Severity,
			Source:      constants.SourceInspection,
		})
	}
	second := m.Merge(insp(again...), therm())

	require.Len(t, second.Unified, len(first.Unified))
	for k := range first.Unified {
		assert.Equal(t, first.Unified[k].Area, second.Unified[k].Area)
		assert.Equal(t, first.Unified[k].Description, second.Unified[k].Description)
		assert.Equal(t, first.Unified[k].Severity, second.Unified[k].Severity)
	}
	assert.Empty(t, second.Conflicts)
}

func TestNormalizeArea(t *testing.T) {
	assert.Equal(t, "master bedroom 2", NormalizeArea("  Master-Bedroom   #2 "))
	assert.Equal(t, "", NormalizeArea("--"))
}
