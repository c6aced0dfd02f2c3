package stats

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"diversity_platform/reporting/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization-wide representation targets, distinct from any per-program
// target row. Keyed by lower-cased category name.
var GlobalTargets = map[string]float64{
	"gender":     50,
	"ethnicity":  20,
	"disability": 12,
}

const (
	MissedATargetInAllLast3Periods           = "MissedATargetInAllLast3Periods"
	MoreThan10PercentBelowATargetLastPeriod  = "MoreThan10PercentBelowATargetLastPeriod"
	NothingPublishedLast3Periods             = "NothingPublishedLast3Periods"
	needsAttentionPeriodWindow               = 3
	needsAttentionBigMissThresholdPercentage = 10.0
)

type snapshot struct {
	end time.Time
	doc Document
}

// datasetSnapshots loads the published record sets of every live dataset,
// parses the documents, and groups them per dataset ordered by end date
// ascending. Snapshots of soft-deleted datasets stay in the table but are
// excluded from every aggregate.
func datasetSnapshots(db *gorm.DB) (map[uuid.UUID][]snapshot, error) {
	var sets []schema.PublishedRecordSet
	result := db.Where("dataset_id in (?)", db.Model(&schema.Dataset{}).Select("id")).Find(&sets)
	if result.Error != nil {
		slog.Error("sql error loading published record sets", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	grouped := map[uuid.UUID][]snapshot{}
	for _, set := range sets {
		doc, err := ParseDocument(set.Document)
		if err != nil {
			slog.Error("skipping malformed published record set document", "published_record_set_id", set.Id, "error", err)
			continue
		}
		grouped[set.DatasetId] = append(grouped[set.DatasetId], snapshot{end: set.End, doc: doc})
	}

	for _, snapshots := range grouped {
		sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].end.Before(snapshots[j].end) })
	}

	return grouped, nil
}

type HeadlineTotal struct {
	Percent      float64 `json:"percent"`
	NoOfDatasets int     `json:"noOfDatasets"`
}

// HeadlineTotals reports, per category, the average in-target percentage of
// the most recently ended snapshot of each dataset. Datasets whose latest
// snapshot recorded nothing for the category are excluded from both the
// numerator and the denominator.
func HeadlineTotals(db *gorm.DB) (map[string]HeadlineTotal, error) {
	grouped, err := datasetSnapshots(db)
	if err != nil {
		return nil, err
	}

	totals := map[string]HeadlineTotal{}
	for category := range GlobalTargets {
		sum := 0.0
		count := 0
		for _, snapshots := range grouped {
			latest := snapshots[len(snapshots)-1]
			if !latest.doc.HasRecordedData(category) {
				continue
			}
			sum += latest.doc.TargetMemberPercent(category)
			count++
		}

		total := HeadlineTotal{NoOfDatasets: count}
		if count > 0 {
			total.Percent = sum / float64(count)
		}
		totals[category] = total
	}

	return totals, nil
}

type OverviewCounts struct {
	Exceeds int `json:"exceeds"`
	LT5     int `json:"lt5"`
	LT10    int `json:"lt10"`
	GT10    int `json:"gt10"`
}

type Overview struct {
	Category string         `json:"category"`
	Filter   string         `json:"filter"`
	Date     time.Time      `json:"date"`
	Counts   OverviewCounts `json:"counts"`
}

func classifyAgainstTarget(percent, target float64, counts *OverviewCounts) {
	switch {
	case percent >= target:
		counts.Exceeds++
	case percent >= target-5:
		counts.LT5++
	case percent >= target-10:
		counts.LT10++
	default:
		counts.GT10++
	}
}

// Overviews buckets each dataset's earliest and latest snapshot against the
// category's global target. Snapshots with nothing recorded for the category
// are excluded entirely rather than counted as failing.
func Overviews(db *gorm.DB) ([]Overview, error) {
	grouped, err := datasetSnapshots(db)
	if err != nil {
		return nil, err
	}

	categories := sortedCategories()

	overviews := make([]Overview, 0, 2*len(categories))
	for _, category := range categories {
		target := GlobalTargets[category]
		for _, filter := range []string{"earliest", "latest"} {
			var counts OverviewCounts
			var date time.Time
			for _, snapshots := range grouped {
				chosen := snapshots[0]
				if filter == "latest" {
					chosen = snapshots[len(snapshots)-1]
				}
				if !chosen.doc.HasRecordedData(category) {
					continue
				}
				if chosen.end.After(date) {
					date = chosen.end
				}
				classifyAgainstTarget(chosen.doc.TargetMemberPercent(category), target, &counts)
			}
			overviews = append(overviews, Overview{Category: category, Filter: filter, Date: date, Counts: counts})
		}
	}

	return overviews, nil
}

func sortedCategories() []string {
	categories := make([]string, 0, len(GlobalTargets))
	for category := range GlobalTargets {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

type ConsistencyYear struct {
	Category   string `json:"category"`
	Year       int    `json:"year"`
	Consistent int    `json:"consistent"`
	Failed     int    `json:"failed"`
}

// Consistencies rates, per dataset per calendar year, each Gender snapshot
// against the dataset's own program target (not the global one): met at or
// above target, almost within 5 points, failed beyond that. A dataset-year is
// consistent when at least 3 periods are met and none failed; almost is
// tolerated alongside met.
func Consistencies(db *gorm.DB) ([]ConsistencyYear, error) {
	grouped, err := datasetSnapshots(db)
	if err != nil {
		return nil, err
	}

	genderTargets, err := programCategoryTargets(db, "gender")
	if err != nil {
		return nil, err
	}

	type yearTally struct {
		met    int
		almost int
		failed int
	}

	years := map[int]*ConsistencyYear{}
	for datasetId, snapshots := range grouped {
		target, ok := genderTargets[datasetId]
		if !ok {
			continue
		}

		tallies := map[int]*yearTally{}
		for _, snap := range snapshots {
			if !snap.doc.HasRecordedData("gender") {
				continue
			}
			year := snap.end.Year()
			if tallies[year] == nil {
				tallies[year] = &yearTally{}
			}
			percent := snap.doc.TargetMemberPercent("gender")
			switch {
			case percent >= target:
				tallies[year].met++
			case percent >= target-5:
				tallies[year].almost++
			default:
				tallies[year].failed++
			}
		}

		for year, tally := range tallies {
			if years[year] == nil {
				years[year] = &ConsistencyYear{Category: "gender", Year: year}
			}
			if tally.met >= 3 && tally.failed == 0 {
				years[year].Consistent++
			} else {
				years[year].Failed++
			}
		}
	}

	result := make([]ConsistencyYear, 0, len(years))
	for _, year := range years {
		result = append(result, *year)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Year < result[j].Year })

	return result, nil
}

// programCategoryTargets maps dataset id to its program's target percentage
// for the named category, for datasets whose program declares one.
func programCategoryTargets(db *gorm.DB, category string) (map[uuid.UUID]float64, error) {
	var datasets []schema.Dataset
	result := db.Preload("Program").Preload("Program.Targets").Preload("Program.Targets.Category").Find(&datasets)
	if result.Error != nil {
		slog.Error("sql error loading datasets for stats", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	targets := map[uuid.UUID]float64{}
	for _, dataset := range datasets {
		if dataset.Program == nil {
			continue
		}
		for _, target := range dataset.Program.Targets {
			if target.Category != nil && strings.EqualFold(target.Category.Name, category) {
				targets[dataset.Id] = target.Target
			}
		}
	}
	return targets, nil
}

type DatasetFlag struct {
	DatasetId           uuid.UUID `json:"datasetId"`
	Name                string    `json:"name"`
	ReportingPeriodEnd  time.Time `json:"reportingPeriodEnd"`
	NeedsAttentionTypes []string  `json:"needsAttentionTypes,omitempty"`
}

type AdminStats struct {
	Overdue        []DatasetFlag `json:"overdue"`
	NeedsAttention []DatasetFlag `json:"needsAttention"`
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// ComputeAdminStats flags datasets an administrator should look at. Overdue
// means a reporting period ended during the prior calendar month with no
// snapshot published for it at all. Needs-attention scans up to the 3 most
// recent ended periods per dataset per category: repeated and deep target
// misses, and total publication silence. A published all-zero document counts
// as published (not silence) but never as a miss; only true absence counts
// for NothingPublishedLast3Periods.
func ComputeAdminStats(db *gorm.DB, now time.Time) (AdminStats, error) {
	var datasets []schema.Dataset
	result := db.
		Preload("Program").
		Preload("Program.ReportingPeriods").
		Preload("Program.Targets").
		Preload("Program.Targets.Category").
		Preload("PublishedRecordSets").
		Find(&datasets)
	if result.Error != nil {
		slog.Error("sql error loading datasets for admin stats", "error", result.Error)
		return AdminStats{}, schema.ErrDbAccessFailed
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	priorMonthStart := monthStart.AddDate(0, -1, 0)

	stats := AdminStats{Overdue: []DatasetFlag{}, NeedsAttention: []DatasetFlag{}}

	for _, dataset := range datasets {
		if dataset.Program == nil {
			continue
		}

		published := func(period schema.ReportingPeriod) *Document {
			for _, set := range dataset.PublishedRecordSets {
				if sameDay(set.End, period.End) {
					doc, err := ParseDocument(set.Document)
					if err != nil {
						slog.Error("skipping malformed published record set document", "published_record_set_id", set.Id, "error", err)
						continue
					}
					return &doc
				}
			}
			return nil
		}

		// Overdue: periods that ended last month with nothing published.
		for _, period := range dataset.Program.ReportingPeriods {
			if period.End.Before(priorMonthStart) || !period.End.Before(monthStart) {
				continue
			}
			if published(period) == nil {
				stats.Overdue = append(stats.Overdue, DatasetFlag{
					DatasetId:          dataset.Id,
					Name:               dataset.Name,
					ReportingPeriodEnd: period.End,
				})
			}
		}

		// Needs attention: the up-to-3 most recently ended periods.
		periods := make([]schema.ReportingPeriod, 0, len(dataset.Program.ReportingPeriods))
		for _, period := range dataset.Program.ReportingPeriods {
			if period.End.Before(now) {
				periods = append(periods, period)
			}
		}
		sort.Slice(periods, func(i, j int) bool { return periods[i].End.After(periods[j].End) })
		if len(periods) > needsAttentionPeriodWindow {
			periods = periods[:needsAttentionPeriodWindow]
		}
		if len(periods) == 0 {
			continue
		}

		types := map[string]struct{}{}

		nothingPublished := len(periods) == needsAttentionPeriodWindow
		for _, period := range periods {
			if published(period) != nil {
				nothingPublished = false
				break
			}
		}
		if nothingPublished {
			types[NothingPublishedLast3Periods] = struct{}{}
		}

		for _, target := range dataset.Program.Targets {
			if target.Category == nil {
				continue
			}
			category := target.Category.Name

			misses := 0
			for _, period := range periods {
				doc := published(period)
				if doc == nil || !doc.HasRecordedData(category) {
					continue
				}
				percent := doc.TargetMemberPercent(category)
				if percent >= target.Target {
					continue
				}
				misses++
				if target.Target-percent > needsAttentionBigMissThresholdPercentage {
					types[MoreThan10PercentBelowATargetLastPeriod] = struct{}{}
				}
			}
			if misses == needsAttentionPeriodWindow {
				types[MissedATargetInAllLast3Periods] = struct{}{}
			}
		}

		if len(types) > 0 {
			names := make([]string, 0, len(types))
			for name := range types {
				names = append(names, name)
			}
			sort.Strings(names)
			stats.NeedsAttention = append(stats.NeedsAttention, DatasetFlag{
				DatasetId:           dataset.Id,
				Name:                dataset.Name,
				ReportingPeriodEnd:  periods[0].End,
				NeedsAttentionTypes: names,
			})
		}
	}

	sort.Slice(stats.Overdue, func(i, j int) bool { return stats.Overdue[i].Name < stats.Overdue[j].Name })
	sort.Slice(stats.NeedsAttention, func(i, j int) bool { return stats.NeedsAttention[i].Name < stats.NeedsAttention[j].Name })

	return stats, nil
}
