package gql

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"diversity_platform/reporting/auth"
	"diversity_platform/reporting/schema"
	"diversity_platform/reporting/stats"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"gorm.io/gorm"
)

func requestTxn(p graphql.ResolveParams) (*gorm.DB, error) {
	txn := TxnFromContext(p.Context)
	if txn == nil {
		return nil, fmt.Errorf("no transaction bound to request context")
	}
	return txn, nil
}

func argId(p graphql.ResolveParams, name string) (uuid.UUID, error) {
	raw, ok := p.Args[name].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing required argument '%v'", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("argument '%v' is not a valid uuid: %w", name, err)
	}
	return id, nil
}

func sourceAs[T any](p graphql.ResolveParams) (T, error) {
	src, ok := p.Source.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected source type %T for field %v", p.Source, p.Info.FieldName)
	}
	return src, nil
}

func resolveMe(p graphql.ResolveParams) (interface{}, error) {
	user := auth.OptionalUserFromContext(p.Context)
	if user == nil {
		return nil, schema.ErrUserNotFound
	}
	return user, nil
}

func resolveUser(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	id, err := argId(p, "id")
	if err != nil {
		return nil, err
	}
	user, err := schema.GetUser(id, txn)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func resolveUsers(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	var users []*schema.User
	if result := txn.Preload("Roles").Find(&users); result.Error != nil {
		slog.Error("sql error listing users", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return users, nil
}

func resolveTeams(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	var teams []*schema.Team
	if result := txn.Find(&teams); result.Error != nil {
		slog.Error("sql error listing teams", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return teams, nil
}

func resolveTeam(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	id, err := argId(p, "id")
	if err != nil {
		return nil, err
	}
	team, err := schema.GetTeam(id, txn)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func resolvePrograms(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	var programs []*schema.Program
	if result := txn.Find(&programs); result.Error != nil {
		slog.Error("sql error listing programs", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return programs, nil
}

func resolveProgram(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	id, err := argId(p, "id")
	if err != nil {
		return nil, err
	}
	program, err := schema.GetProgram(id, txn)
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func resolveDataset(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	id, err := argId(p, "id")
	if err != nil {
		return nil, err
	}
	dataset, err := schema.GetDataset(id, txn)
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

func resolveTags(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	var tags []*schema.Tag
	if result := txn.Order("name").Find(&tags); result.Error != nil {
		slog.Error("sql error listing tags", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return tags, nil
}

func resolveCategories(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	var categories []*schema.Category
	if result := txn.Order("name").Find(&categories); result.Error != nil {
		slog.Error("sql error listing categories", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return categories, nil
}

func resolvePublishedRecordSets(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	datasetId, err := argId(p, "datasetId")
	if err != nil {
		return nil, err
	}
	var sets []*schema.PublishedRecordSet
	if result := txn.Find(&sets, "dataset_id = ?", datasetId); result.Error != nil {
		slog.Error("sql error listing published record sets", "dataset_id", datasetId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].End.Before(sets[j].End) })
	return sets, nil
}

type headlineTotalRow struct {
	Category     string  `json:"category"`
	Percent      float64 `json:"percent"`
	NoOfDatasets int     `json:"noOfDatasets"`
}

func resolveHeadlineTotals(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	totals, err := stats.HeadlineTotals(txn)
	if err != nil {
		return nil, err
	}
	rows := make([]headlineTotalRow, 0, len(totals))
	for category, total := range totals {
		rows = append(rows, headlineTotalRow{Category: category, Percent: total.Percent, NoOfDatasets: total.NoOfDatasets})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Category < rows[j].Category })
	return rows, nil
}

func resolveOverviews(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	return stats.Overviews(txn)
}

func resolveConsistencies(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	return stats.Consistencies(txn)
}

func resolveAdminStats(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	return stats.ComputeAdminStats(txn, time.Now().UTC())
}

func resolveUserTeamIds(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	user, err := sourceAs[*schema.User](p)
	if err != nil {
		return nil, err
	}
	return schema.GetUserTeamIds(user.Id, txn)
}

func resolveUserTeams(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	user, err := sourceAs[*schema.User](p)
	if err != nil {
		return nil, err
	}
	ids, err := schema.GetUserTeamIds(user.Id, txn)
	if err != nil {
		return nil, err
	}
	var teams []*schema.Team
	if result := txn.Find(&teams, "id in ?", ids); result.Error != nil {
		slog.Error("sql error listing user teams", "user_id", user.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return teams, nil
}

func resolveTeamUsers(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	team, err := sourceAs[*schema.Team](p)
	if err != nil {
		return nil, err
	}
	var memberships []schema.UserTeam
	if result := txn.Find(&memberships, "team_id = ?", team.Id); result.Error != nil {
		slog.Error("sql error listing team members", "team_id", team.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, membership := range memberships {
		ids = append(ids, membership.UserId)
	}
	var users []*schema.User
	if result := txn.Preload("Roles").Find(&users, "id in ?", ids); result.Error != nil {
		slog.Error("sql error listing team members", "team_id", team.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return users, nil
}

func resolveTeamPrograms(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	team, err := sourceAs[*schema.Team](p)
	if err != nil {
		return nil, err
	}
	var programs []*schema.Program
	if result := txn.Find(&programs, "team_id = ?", team.Id); result.Error != nil {
		slog.Error("sql error listing team programs", "team_id", team.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return programs, nil
}

func resolveProgramDatasets(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	program, err := sourceAs[*schema.Program](p)
	if err != nil {
		return nil, err
	}
	var datasets []*schema.Dataset
	if result := txn.Find(&datasets, "program_id = ?", program.Id); result.Error != nil {
		slog.Error("sql error listing program datasets", "program_id", program.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return datasets, nil
}

func resolveProgramTags(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	program, err := sourceAs[*schema.Program](p)
	if err != nil {
		return nil, err
	}
	var tags []*schema.Tag
	if err := txn.Model(program).Association("Tags").Find(&tags); err != nil {
		slog.Error("sql error listing program tags", "program_id", program.Id, "error", err)
		return nil, schema.ErrDbAccessFailed
	}
	return tags, nil
}

func resolveProgramTargets(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	program, err := sourceAs[*schema.Program](p)
	if err != nil {
		return nil, err
	}
	var targets []*schema.Target
	if result := txn.Preload("Tracks").Find(&targets, "program_id = ?", program.Id); result.Error != nil {
		slog.Error("sql error listing program targets", "program_id", program.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return targets, nil
}

func resolveProgramReportingPeriods(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	program, err := sourceAs[*schema.Program](p)
	if err != nil {
		return nil, err
	}
	var periods []*schema.ReportingPeriod
	if result := txn.Find(&periods, "program_id = ?", program.Id); result.Error != nil {
		slog.Error("sql error listing reporting periods", "program_id", program.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].End.Before(periods[j].End) })
	return periods, nil
}

func resolveDatasetRecords(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	dataset, err := sourceAs[*schema.Dataset](p)
	if err != nil {
		return nil, err
	}
	var records []*schema.Record
	if result := txn.Preload("Entries").Find(&records, "dataset_id = ?", dataset.Id); result.Error != nil {
		slog.Error("sql error listing dataset records", "dataset_id", dataset.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return records, nil
}

func resolveDatasetPublishedRecordSets(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	dataset, err := sourceAs[*schema.Dataset](p)
	if err != nil {
		return nil, err
	}
	var sets []*schema.PublishedRecordSet
	if result := txn.Find(&sets, "dataset_id = ?", dataset.Id); result.Error != nil {
		slog.Error("sql error listing dataset published record sets", "dataset_id", dataset.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].End.Before(sets[j].End) })
	return sets, nil
}

func resolveCategoryValues(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	category, err := sourceAs[*schema.Category](p)
	if err != nil {
		return nil, err
	}
	var values []*schema.CategoryValue
	if result := txn.Order("name").Find(&values, "category_id = ?", category.Id); result.Error != nil {
		slog.Error("sql error listing category values", "category_id", category.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return values, nil
}

func resolvePublishedDocument(p graphql.ResolveParams) (interface{}, error) {
	set, err := sourceAs[*schema.PublishedRecordSet](p)
	if err != nil {
		return nil, err
	}
	return string(set.Document), nil
}
