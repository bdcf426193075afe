package enrichment

import (
	"strconv"
	"strings"

	"github.com/caretrack/priorauth/internal/models"
)

// codeRange maps a span of procedure codes to a service category and a
// per-code base cost estimate. Ranges are ordered and disjoint; the
// first match wins. Numeric spans cover CPT codes, the prefix covers
// HCPCS level II codes (DME is the E-series).
type codeRange struct {
	serviceType string
	low, high   int    // inclusive CPT span, used when prefix is empty
	prefix      string // HCPCS letter prefix
	baseCost    float64
}

var serviceCodeRanges = []codeRange{
	{serviceType: models.ServiceTypeImaging, low: 70010, high: 79999, baseCost: 1200},
	{serviceType: models.ServiceTypeSurgery, low: 10021, high: 69990, baseCost: 5000},
	{serviceType: models.ServiceTypeDME, prefix: "E", baseCost: 800},
	{serviceType: models.ServiceTypePhysicalTherapy, low: 97010, high: 97799, baseCost: 350},
	{serviceType: models.ServiceTypeLaboratory, low: 80047, high: 89398, baseCost: 200},
}

// defaultCostEstimate is used when no procedure code matches any range
const defaultCostEstimate = 500.0

// urgentDiagnosisPrefixes flags conditions that always make a request
// urgent regardless of how far out the service date is
var urgentDiagnosisPrefixes = []string{
	"I21", // acute myocardial infarction
	"I60", "I61", "I63", // intracranial hemorrhage / stroke
	"J80", // acute respiratory distress
	"J96", // respiratory failure
	"S06", // intracranial injury
	"C",   // malignant neoplasms
}

// urgentProcedureCodes flags procedures that always make a request urgent
var urgentProcedureCodes = map[string]bool{
	"92950": true, // CPR
	"31500": true, // emergency intubation
	"36620": true, // arterial line
	"92941": true, // PCI for acute MI
}

// matchServiceCode returns the range a procedure code falls in
func matchServiceCode(code string) (codeRange, bool) {
	trimmed := strings.TrimSpace(strings.ToUpper(code))
	numeric, numErr := strconv.Atoi(trimmed)

	for _, r := range serviceCodeRanges {
		if r.prefix != "" {
			if strings.HasPrefix(trimmed, r.prefix) {
				return r, true
			}
			continue
		}
		if numErr == nil && numeric >= r.low && numeric <= r.high {
			return r, true
		}
	}
	return codeRange{}, false
}
