package stats

import (
	"encoding/json"
	"testing"
	"time"

	"diversity_platform/reporting/schema"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStatsDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(schema.AllModels()...))
	return db
}

// makeDataset creates a team, a program with a gender target, and a dataset.
func makeDataset(t *testing.T, db *gorm.DB, name string, genderTarget float64) schema.Dataset {
	team := schema.Team{Id: uuid.New(), Name: name + " team"}
	require.NoError(t, db.Create(&team).Error)

	program := schema.Program{Id: uuid.New(), Name: name + " program", TeamId: team.Id}
	require.NoError(t, db.Create(&program).Error)

	var gender schema.Category
	result := db.Limit(1).Find(&gender, "name = ?", "Gender")
	require.NoError(t, result.Error)
	if result.RowsAffected == 0 {
		gender = schema.Category{Id: uuid.New(), Name: "Gender"}
		require.NoError(t, db.Create(&gender).Error)
	}

	target := schema.Target{Id: uuid.New(), ProgramId: program.Id, CategoryId: gender.Id, Target: genderTarget}
	require.NoError(t, db.Create(&target).Error)

	dataset := schema.Dataset{Id: uuid.New(), Name: name, ProgramId: program.Id}
	require.NoError(t, db.Create(&dataset).Error)
	return dataset
}

func persistSnapshot(t *testing.T, db *gorm.DB, datasetId uuid.UUID, end time.Time, doc Document) {
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	set := schema.PublishedRecordSet{
		Id:        uuid.New(),
		DatasetId: datasetId,
		Begin:     end.AddDate(0, -1, 0),
		End:       end,
		Document:  datatypes.JSON(raw),
	}
	require.NoError(t, db.Create(&set).Error)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestHeadlineTotalsAveragesLatestSnapshots(t *testing.T) {
	db := setupStatsDb(t)

	a := makeDataset(t, db, "alpha", 50)
	b := makeDataset(t, db, "beta", 50)

	// Only the most recent snapshot of each dataset counts.
	persistSnapshot(t, db, a.Id, day(2026, 3, 31), genderDoc(30))
	persistSnapshot(t, db, a.Id, day(2026, 6, 30), genderDoc(60))
	persistSnapshot(t, db, b.Id, day(2026, 6, 30), genderDoc(40))

	totals, err := HeadlineTotals(db)
	require.NoError(t, err)

	gender := totals["gender"]
	assert.InDelta(t, 50, gender.Percent, 1e-9)
	assert.Equal(t, 2, gender.NoOfDatasets)

	assert.Zero(t, totals["ethnicity"].NoOfDatasets)
}

func TestHeadlineTotalsExcludesUnrecordedDatasets(t *testing.T) {
	db := setupStatsDb(t)

	a := makeDataset(t, db, "alpha", 50)
	b := makeDataset(t, db, "beta", 50)

	persistSnapshot(t, db, a.Id, day(2026, 6, 30), genderDoc(60))
	persistSnapshot(t, db, b.Id, day(2026, 6, 30), zeroGenderDoc())

	totals, err := HeadlineTotals(db)
	require.NoError(t, err)

	gender := totals["gender"]
	assert.InDelta(t, 60, gender.Percent, 1e-9, "all-zero dataset must not drag the average down")
	assert.Equal(t, 1, gender.NoOfDatasets)
}

func TestHeadlineTotalsIgnoresDeletedDatasets(t *testing.T) {
	db := setupStatsDb(t)

	a := makeDataset(t, db, "alpha", 50)
	b := makeDataset(t, db, "beta", 50)

	persistSnapshot(t, db, a.Id, day(2026, 6, 30), genderDoc(60))
	persistSnapshot(t, db, b.Id, day(2026, 6, 30), genderDoc(20))

	require.NoError(t, db.Delete(&b).Error)

	totals, err := HeadlineTotals(db)
	require.NoError(t, err)

	gender := totals["gender"]
	assert.InDelta(t, 60, gender.Percent, 1e-9, "deleted dataset's snapshots must not count")
	assert.Equal(t, 1, gender.NoOfDatasets)

	overviews, err := Overviews(db)
	require.NoError(t, err)
	for _, o := range overviews {
		if o.Category == "gender" {
			assert.Equal(t, OverviewCounts{Exceeds: 1}, o.Counts, "%v/%v", o.Category, o.Filter)
		}
	}
}

func TestClassifyAgainstTargetBoundaries(t *testing.T) {
	cases := []struct {
		percent float64
		want    OverviewCounts
	}{
		{percent: 50, want: OverviewCounts{Exceeds: 1}},
		{percent: 72, want: OverviewCounts{Exceeds: 1}},
		{percent: 45, want: OverviewCounts{LT5: 1}},
		{percent: 49.9, want: OverviewCounts{LT5: 1}},
		{percent: 40, want: OverviewCounts{LT10: 1}},
		{percent: 44.9, want: OverviewCounts{LT10: 1}},
		{percent: 39.9, want: OverviewCounts{GT10: 1}},
		{percent: 0, want: OverviewCounts{GT10: 1}},
	}

	for _, c := range cases {
		var counts OverviewCounts
		classifyAgainstTarget(c.percent, 50, &counts)
		assert.Equal(t, c.want, counts, "percent %v", c.percent)
	}
}

func TestOverviewsBucketsEarliestAndLatest(t *testing.T) {
	db := setupStatsDb(t)

	a := makeDataset(t, db, "alpha", 50)
	persistSnapshot(t, db, a.Id, day(2026, 3, 31), genderDoc(30))
	persistSnapshot(t, db, a.Id, day(2026, 6, 30), genderDoc(55))

	overviews, err := Overviews(db)
	require.NoError(t, err)
	require.Len(t, overviews, 6, "earliest and latest per category")

	byKey := map[string]Overview{}
	for _, o := range overviews {
		byKey[o.Category+"/"+o.Filter] = o
	}

	earliest := byKey["gender/earliest"]
	assert.Equal(t, OverviewCounts{GT10: 1}, earliest.Counts)
	assert.Equal(t, day(2026, 3, 31), earliest.Date)

	latest := byKey["gender/latest"]
	assert.Equal(t, OverviewCounts{Exceeds: 1}, latest.Counts)
	assert.Equal(t, day(2026, 6, 30), latest.Date)

	assert.Equal(t, OverviewCounts{}, byKey["ethnicity/latest"].Counts)
}

func TestConsistencies(t *testing.T) {
	db := setupStatsDb(t)

	a := makeDataset(t, db, "alpha", 50)

	// 2025: three met plus one almost, still consistent.
	persistSnapshot(t, db, a.Id, day(2025, 3, 31), genderDoc(55))
	persistSnapshot(t, db, a.Id, day(2025, 6, 30), genderDoc(52))
	persistSnapshot(t, db, a.Id, day(2025, 9, 30), genderDoc(47))
	persistSnapshot(t, db, a.Id, day(2025, 12, 31), genderDoc(50))

	// 2024: three met but one failure disqualifies the year.
	persistSnapshot(t, db, a.Id, day(2024, 3, 31), genderDoc(55))
	persistSnapshot(t, db, a.Id, day(2024, 6, 30), genderDoc(56))
	persistSnapshot(t, db, a.Id, day(2024, 9, 30), genderDoc(57))
	persistSnapshot(t, db, a.Id, day(2024, 12, 31), genderDoc(30))

	years, err := Consistencies(db)
	require.NoError(t, err)
	require.Len(t, years, 2)

	assert.Equal(t, ConsistencyYear{Category: "gender", Year: 2024, Consistent: 0, Failed: 1}, years[0])
	assert.Equal(t, ConsistencyYear{Category: "gender", Year: 2025, Consistent: 1, Failed: 0}, years[1])
}

func TestConsistenciesFewerThanThreeMetFails(t *testing.T) {
	db := setupStatsDb(t)

	a := makeDataset(t, db, "alpha", 50)
	persistSnapshot(t, db, a.Id, day(2025, 3, 31), genderDoc(55))
	persistSnapshot(t, db, a.Id, day(2025, 6, 30), genderDoc(52))

	years, err := Consistencies(db)
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, ConsistencyYear{Category: "gender", Year: 2025, Consistent: 0, Failed: 1}, years[0])
}

func addReportingPeriod(t *testing.T, db *gorm.DB, dataset schema.Dataset, end time.Time) {
	period := schema.ReportingPeriod{
		Id:        uuid.New(),
		ProgramId: dataset.ProgramId,
		Begin:     end.AddDate(0, -1, 0),
		End:       end,
	}
	require.NoError(t, db.Create(&period).Error)
}

func TestAdminStatsOverdue(t *testing.T) {
	db := setupStatsDb(t)
	now := day(2026, 7, 15)

	late := makeDataset(t, db, "late", 50)
	addReportingPeriod(t, db, late, day(2026, 6, 30))

	onTime := makeDataset(t, db, "on time", 50)
	addReportingPeriod(t, db, onTime, day(2026, 6, 30))
	persistSnapshot(t, db, onTime.Id, day(2026, 6, 30), genderDoc(55))

	older := makeDataset(t, db, "older", 50)
	addReportingPeriod(t, db, older, day(2026, 4, 30))

	stats, err := ComputeAdminStats(db, now)
	require.NoError(t, err)

	require.Len(t, stats.Overdue, 1, "only prior-month periods count, and published ones are excused")
	assert.Equal(t, late.Id, stats.Overdue[0].DatasetId)
	assert.Equal(t, day(2026, 6, 30), stats.Overdue[0].ReportingPeriodEnd)
}

func TestAdminStatsNothingPublished(t *testing.T) {
	db := setupStatsDb(t)
	now := day(2026, 7, 15)

	silent := makeDataset(t, db, "silent", 50)
	addReportingPeriod(t, db, silent, day(2026, 3, 31))
	addReportingPeriod(t, db, silent, day(2026, 4, 30))
	addReportingPeriod(t, db, silent, day(2026, 5, 31))

	// Two unpublished periods are not enough history to conclude silence.
	young := makeDataset(t, db, "young", 50)
	addReportingPeriod(t, db, young, day(2026, 3, 31))
	addReportingPeriod(t, db, young, day(2026, 4, 30))

	stats, err := ComputeAdminStats(db, now)
	require.NoError(t, err)

	require.Len(t, stats.NeedsAttention, 1)
	assert.Equal(t, silent.Id, stats.NeedsAttention[0].DatasetId)
	assert.Equal(t, []string{NothingPublishedLast3Periods}, stats.NeedsAttention[0].NeedsAttentionTypes)
}

func TestAdminStatsAllZeroCountsAsPublished(t *testing.T) {
	db := setupStatsDb(t)
	now := day(2026, 7, 15)

	a := makeDataset(t, db, "zeroes", 50)
	for _, end := range []time.Time{day(2026, 3, 31), day(2026, 4, 30), day(2026, 5, 31)} {
		addReportingPeriod(t, db, a, end)
		persistSnapshot(t, db, a.Id, end, zeroGenderDoc())
	}

	// All-zero documents are published (not silence) but record nothing, so
	// they are never misses either.
	stats, err := ComputeAdminStats(db, now)
	require.NoError(t, err)
	assert.Empty(t, stats.NeedsAttention)
}

func TestAdminStatsTargetMisses(t *testing.T) {
	db := setupStatsDb(t)
	now := day(2026, 7, 15)

	repeat := makeDataset(t, db, "repeat offender", 50)
	for _, end := range []time.Time{day(2026, 3, 31), day(2026, 4, 30), day(2026, 5, 31)} {
		addReportingPeriod(t, db, repeat, end)
		persistSnapshot(t, db, repeat.Id, end, genderDoc(47))
	}

	deep := makeDataset(t, db, "deep miss", 50)
	addReportingPeriod(t, db, deep, day(2026, 4, 30))
	addReportingPeriod(t, db, deep, day(2026, 5, 31))
	persistSnapshot(t, db, deep.Id, day(2026, 4, 30), genderDoc(55))
	persistSnapshot(t, db, deep.Id, day(2026, 5, 31), genderDoc(20))

	both := makeDataset(t, db, "both flags", 50)
	for _, end := range []time.Time{day(2026, 3, 31), day(2026, 4, 30), day(2026, 5, 31)} {
		addReportingPeriod(t, db, both, end)
		persistSnapshot(t, db, both.Id, end, genderDoc(10))
	}

	stats, err := ComputeAdminStats(db, now)
	require.NoError(t, err)
	require.Len(t, stats.NeedsAttention, 3)

	flags := map[uuid.UUID][]string{}
	for _, flag := range stats.NeedsAttention {
		flags[flag.DatasetId] = flag.NeedsAttentionTypes
	}

	assert.Equal(t, []string{MissedATargetInAllLast3Periods}, flags[repeat.Id])
	assert.Equal(t, []string{MoreThan10PercentBelowATargetLastPeriod}, flags[deep.Id])
	assert.Equal(t,
		[]string{MissedATargetInAllLast3Periods, MoreThan10PercentBelowATargetLastPeriod},
		flags[both.Id], "each flag appears once even when earned repeatedly")
}
