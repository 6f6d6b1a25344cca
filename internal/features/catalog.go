package features

import "time"

// Release describes the TypeScript release that introduced a feature.
type Release struct {
	Version string
	Date    time.Time
}

func release(version string, year int, month time.Month, day int) Release {
	return Release{Version: version, Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

var (
	ts40 = release("4.0", 2020, time.August, 20)
	ts41 = release("4.1", 2020, time.November, 19)
	ts42 = release("4.2", 2021, time.February, 23)
	ts43 = release("4.3", 2021, time.May, 26)
	ts44 = release("4.4", 2021, time.August, 26)
	ts45 = release("4.5", 2021, time.November, 17)
	ts47 = release("4.7", 2022, time.May, 24)
	ts49 = release("4.9", 2022, time.November, 15)
)

var introducedIn = map[string]Release{
	NamedTupleMember:                   ts40,
	ShortCircuitAssignment:             ts40,
	TemplateLiteralType:                ts41,
	RemappedNameInMappedType:           ts41,
	AbstractConstructSignature:         ts42,
	OverrideOnClassMethod:              ts43,
	StaticBlockInClass:                 ts44,
	TypeModifierOnImportName:           ts45,
	ImportAssertion:                    ts45,
	ExtendsConstraintOnInfer:           ts47,
	VarianceAnnotationsOnTypeParameter: ts47,
	SatisfiesExpression:                ts49,
	AccessorKeyword:                    ts49,
}

// IntroducedIn returns the TypeScript release that first accepted feature.
func IntroducedIn(feature string) (Release, bool) {
	r, ok := introducedIn[feature]
	return r, ok
}
