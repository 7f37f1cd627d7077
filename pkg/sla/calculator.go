// Package sla computes acknowledgment/resolution latency metrics and
// priority-weighted compliance for published incidents. All functions are
// pure; period selection and persistence live in the services layer.
package sla

import (
	"math"
	"time"

	"github.com/mssp-soc/portal-gateway/pkg/models"
)

// dateLayout is the bucket key for daily history points
const dateLayout = "2006-01-02"

// TTAMinutes returns the time-to-acknowledge in whole minutes. Fractional
// seconds are truncated, not rounded, so comparisons against integer-minute
// targets stay deterministic. ok is false when the incident was never
// acknowledged.
func TTAMinutes(inc *models.Incident) (minutes int64, ok bool) {
	if inc.AcknowledgedAt == nil {
		return 0, false
	}
	return int64(inc.AcknowledgedAt.Sub(inc.PublishedAt) / time.Minute), true
}

// TTRMinutes returns the time-to-resolve in whole minutes, defined only for
// incidents that completed the full lifecycle (status closed, closed_at
// set). False positives and still-open incidents are excluded by design.
func TTRMinutes(inc *models.Incident) (minutes int64, ok bool) {
	if inc.ClosedAt == nil {
		return 0, false
	}
	return int64(inc.ClosedAt.Sub(inc.PublishedAt) / time.Minute), true
}

// Compliant reports whether the incident stayed within its priority's
// budgets. counted is false when the incident has neither timestamp: such an
// incident has breached nothing yet, but it must not inflate the compliance
// percentage either, so it is excluded from the denominator.
func Compliant(inc *models.Incident, targets models.SLATargets) (compliant, counted bool) {
	target := targets.For(inc.Priority)

	tta, hasTTA := TTAMinutes(inc)
	ttr, hasTTR := TTRMinutes(inc)
	if !hasTTA && !hasTTR {
		return true, false
	}
	if hasTTA && tta > target.AckMinutes {
		return false, true
	}
	if hasTTR && ttr > target.ResolveMinutes {
		return false, true
	}
	return true, true
}

// Aggregate folds a set of incidents into mean latencies and a compliance
// percentage. Undefined metrics come back nil, never zero: a period with no
// acknowledged incidents has no MTTA, and a period where nothing was
// measurable has no compliance figure.
func Aggregate(incidents []models.Incident, targets models.SLATargets) models.SLASummary {
	summary := models.SLASummary{IncidentsTotal: len(incidents)}

	var ttaSum, ttrSum int64
	var ttaN, ttrN int
	var compliantN, countedN int

	for i := range incidents {
		inc := &incidents[i]
		if tta, ok := TTAMinutes(inc); ok {
			ttaSum += tta
			ttaN++
		}
		if ttr, ok := TTRMinutes(inc); ok {
			ttrSum += ttr
			ttrN++
		}
		if compliant, counted := Compliant(inc, targets); counted {
			countedN++
			if compliant {
				compliantN++
			}
		}
	}

	if ttaN > 0 {
		mtta := float64(ttaSum) / float64(ttaN)
		summary.MTTAMinutes = &mtta
	}
	if ttrN > 0 {
		mttr := float64(ttrSum) / float64(ttrN)
		summary.MTTRMinutes = &mttr
	}
	if countedN > 0 {
		pct := roundHalfUp(100 * float64(compliantN) / float64(countedN))
		summary.CompliancePct = &pct
	}
	return summary
}

// DailyHistory buckets incidents by the UTC calendar day of published_at and
// aggregates each day in [from, to). Days without incidents are present with
// nil metrics so chart consumers get a continuous date axis.
func DailyHistory(incidents []models.Incident, from, to time.Time, targets models.SLATargets) []models.SLAPoint {
	byDay := make(map[string][]models.Incident)
	for _, inc := range incidents {
		key := inc.PublishedAt.UTC().Format(dateLayout)
		byDay[key] = append(byDay[key], inc)
	}

	var points []models.SLAPoint
	start := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	for day := start; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		points = append(points, models.SLAPoint{
			Date:       key,
			SLASummary: Aggregate(byDay[key], targets),
		})
	}
	return points
}

// roundHalfUp rounds a non-negative percentage to the nearest integer with
// ties going up (99.5 → 100).
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
