package constants

// SourceKind identifies which input report a document or finding came from.
type SourceKind string

const (
	SourceInspection SourceKind = "inspection"
	SourceThermal    SourceKind = "thermal"
)

// Other returns the opposite source.
func (k SourceKind) Other() SourceKind {
	if k == SourceInspection {
		return SourceThermal
	}
	return SourceInspection
}

// Label is the title-cased form used in reports.
func (k SourceKind) Label() string {
	switch k {
	case SourceInspection:
		return "Inspection"
	case SourceThermal:
		return "Thermal"
	default:
		return string(k)
	}
}

// SourceTag marks which sources contributed to a unified finding.
type SourceTag string

const (
	TagInspectionOnly SourceTag = "inspection-only"
	TagThermalOnly    SourceTag = "thermal-only"
	TagBoth           SourceTag = "both"
)

// TagFor returns the single-source tag for kind.
func TagFor(kind SourceKind) SourceTag {
	if kind == SourceThermal {
		return TagThermalOnly
	}
	return TagInspectionOnly
}
