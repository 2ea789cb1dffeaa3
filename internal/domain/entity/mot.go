package entity

import (
	"sort"
	"strings"
	"time"

	"vehicle-data-service/pkg/utils"
)

// MOT results
const (
	MOTPassed  = "PASSED"
	MOTFailed  = "FAILED"
	MOTRefused = "REFUSED"
	MOTUnknown = "UNKNOWN"
)

// Odometer units
const (
	UnitMiles      = "mi"
	UnitKilometres = "km"
)

// DefectSeverity classifies an MOT defect or advisory
type DefectSeverity string

const (
	SeverityAdvisory  DefectSeverity = "advisory"
	SeverityMinor     DefectSeverity = "minor"
	SeverityMajor     DefectSeverity = "major"
	SeverityDangerous DefectSeverity = "dangerous"
	SeverityFail      DefectSeverity = "fail"
	SeverityPRS       DefectSeverity = "prs"
)

// ParseDefectSeverity maps provider defect types to a severity
func ParseDefectSeverity(raw string) DefectSeverity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "minor":
		return SeverityMinor
	case "major":
		return SeverityMajor
	case "dangerous":
		return SeverityDangerous
	case "fail":
		return SeverityFail
	case "prs":
		return SeverityPRS
	default:
		return SeverityAdvisory
	}
}

// ParseMOTResult maps a provider test result onto PASSED/FAILED/REFUSED.
// Anything else, including an empty result, is UNKNOWN.
func ParseMOTResult(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PASSED", "PASS", "P", "PRS":
		return MOTPassed
	case "FAILED", "FAIL", "F":
		return MOTFailed
	case "REFUSED", "ABANDONED", "ABORTED":
		return MOTRefused
	default:
		return MOTUnknown
	}
}

// Defect is one item on an MOT certificate
type Defect struct {
	Text     string         `bson:"text" json:"text"`
	Severity DefectSeverity `bson:"severity" json:"severity"`
}

// MOTTest is one MOT test record
type MOTTest struct {
	TestDate      time.Time  `bson:"testDate" json:"testDate"`
	ExpiryDate    *time.Time `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	Result        string     `bson:"result" json:"result"`
	OdometerValue int        `bson:"odometerValue" json:"odometerValue"`
	OdometerUnit  string     `bson:"odometerUnit" json:"odometerUnit"`
	Defects       []Defect   `bson:"defects,omitempty" json:"defects,omitempty"`
}

// OdometerMiles returns the reading in miles
func (t MOTTest) OdometerMiles() int {
	if t.OdometerUnit == UnitKilometres {
		return utils.KilometresToMiles(t.OdometerValue)
	}
	return t.OdometerValue
}

// SortMOTTests orders tests most-recent-first
func SortMOTTests(tests []MOTTest) {
	sort.SliceStable(tests, func(i, j int) bool {
		return tests[i].TestDate.After(tests[j].TestDate)
	})
}
