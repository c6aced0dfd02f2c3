package gql

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"diversity_platform/reporting/auth"
	"diversity_platform/reporting/reconcile"
	"diversity_platform/reporting/schema"
	"diversity_platform/reporting/stats"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrTeamNotEmpty            = errors.New("team still has members or programs and cannot be deleted")
	ErrReportingPeriodNotFound = errors.New("reporting period not found")
	ErrAlreadyPublished        = errors.New("a record set is already published for this reporting period")
)

func mutationInput(p graphql.ResolveParams) (map[string]interface{}, error) {
	input, ok := p.Args["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing required argument 'input'")
	}
	return input, nil
}

func stringField(input map[string]interface{}, key string) string {
	value, _ := input[key].(string)
	return value
}

func idField(input map[string]interface{}, key string) (uuid.UUID, error) {
	raw, ok := input[key].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing required input field '%v'", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("input field '%v' is not a valid uuid: %w", key, err)
	}
	return id, nil
}

func timeField(input map[string]interface{}, key string) (time.Time, error) {
	switch value := input[key].(type) {
	case time.Time:
		return value, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("input field '%v' is not a valid timestamp: %w", key, err)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("missing required input field '%v'", key)
	}
}

func listField(input map[string]interface{}, key string) []map[string]interface{} {
	raw, _ := input[key].([]interface{})
	items := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		if item, ok := entry.(map[string]interface{}); ok {
			items = append(items, item)
		}
	}
	return items
}

func resolveConfigureApp(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}

	org := schema.Organization{Id: uuid.New(), Name: stringField(input, "organizationName")}
	if result := txn.Create(&org); result.Error != nil {
		slog.Error("sql error creating organization", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	auth.MarkInitialized()

	return &org, nil
}

func resolveCreateTeam(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}

	team, err := reconcile.NewBatch[schema.Team]().Resolve(txn, stringField(input, "name"), func(name string) *schema.Team {
		return &schema.Team{Id: uuid.New(), Name: name}
	})
	if err != nil {
		return nil, err
	}

	return team, nil
}

func resolveUpdateTeam(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	id, err := idField(input, "id")
	if err != nil {
		return nil, err
	}

	team, err := schema.GetTeam(id, txn)
	if err != nil {
		return nil, err
	}

	team.Name = stringField(input, "name")
	if result := txn.Model(&team).Update("name", team.Name); result.Error != nil {
		slog.Error("sql error updating team", "team_id", id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return &team, nil
}

func resolveDeleteTeam(p graphql.ResolveParams) (interface{}, error) {
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

	var members int64
	if result := txn.Model(&schema.UserTeam{}).Where("team_id = ?", id).Count(&members); result.Error != nil {
		slog.Error("sql error counting team members", "team_id", id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	var programs int64
	if result := txn.Model(&schema.Program{}).Where("team_id = ?", id).Count(&programs); result.Error != nil {
		slog.Error("sql error counting team programs", "team_id", id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	if members > 0 || programs > 0 {
		return nil, ErrTeamNotEmpty
	}

	// An empty team is removed outright, not soft deleted, so the name can be
	// reused later.
	if result := txn.Unscoped().Delete(&team); result.Error != nil {
		slog.Error("sql error deleting team", "team_id", id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return true, nil
}

// resolveProgramTagInputs reuses or creates the tags named in the input,
// deduplicating case-insensitively across the whole request.
func resolveProgramTagInputs(txn *gorm.DB, inputs []map[string]interface{}) ([]*schema.Tag, error) {
	batch := reconcile.NewBatch[schema.Tag]()
	tags := make([]*schema.Tag, 0, len(inputs))
	for _, item := range inputs {
		item := item
		tag, err := batch.Resolve(txn, stringField(item, "name"), func(name string) *schema.Tag {
			tagType := stringField(item, "tagType")
			if tagType == "" {
				tagType = "custom"
			}
			return &schema.Tag{Id: uuid.New(), Name: name, Description: stringField(item, "description"), TagType: tagType}
		})
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func createProgramTargets(txn *gorm.DB, programId uuid.UUID, inputs []map[string]interface{}) error {
	for _, item := range inputs {
		categoryId, err := idField(item, "categoryId")
		if err != nil {
			return err
		}
		percent, _ := item["target"].(float64)

		target := schema.Target{Id: uuid.New(), ProgramId: programId, CategoryId: categoryId, Target: percent}
		for _, trackItem := range listField(item, "tracks") {
			categoryValueId, err := idField(trackItem, "categoryValueId")
			if err != nil {
				return err
			}
			targetMember, _ := trackItem["targetMember"].(bool)
			target.Tracks = append(target.Tracks, schema.Track{
				Id:              uuid.New(),
				TargetId:        target.Id,
				CategoryValueId: categoryValueId,
				TargetMember:    targetMember,
			})
		}

		if result := txn.Create(&target); result.Error != nil {
			slog.Error("sql error creating target", "program_id", programId, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
	}
	return nil
}

func resolveCreateProgram(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	teamId, err := idField(input, "teamId")
	if err != nil {
		return nil, err
	}
	if _, err := schema.GetTeam(teamId, txn); err != nil {
		return nil, err
	}

	program, err := reconcile.NewBatch[schema.Program]().Resolve(txn, stringField(input, "name"), func(name string) *schema.Program {
		return &schema.Program{
			Id:          uuid.New(),
			Name:        name,
			Description: stringField(input, "description"),
			TeamId:      teamId,
		}
	})
	if err != nil {
		return nil, err
	}

	tags, err := resolveProgramTagInputs(txn, listField(input, "tags"))
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := txn.Model(program).Association("Tags").Append(tags); err != nil {
			slog.Error("sql error attaching program tags", "program_id", program.Id, "error", err)
			return nil, schema.ErrDbAccessFailed
		}
	}

	if err := createProgramTargets(txn, program.Id, listField(input, "targets")); err != nil {
		return nil, err
	}

	return program, nil
}

func resolveUpdateProgram(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	id, err := idField(input, "id")
	if err != nil {
		return nil, err
	}

	program, err := schema.GetProgram(id, txn)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name, ok := input["name"].(string); ok {
		updates["name"] = name
		program.Name = name
	}
	if description, ok := input["description"].(string); ok {
		updates["description"] = description
		program.Description = description
	}
	if len(updates) > 0 {
		if result := txn.Model(&program).Updates(updates); result.Error != nil {
			slog.Error("sql error updating program", "program_id", id, "error", result.Error)
			return nil, schema.ErrDbAccessFailed
		}
	}

	if _, ok := input["tags"]; ok {
		tags, err := resolveProgramTagInputs(txn, listField(input, "tags"))
		if err != nil {
			return nil, err
		}
		if err := txn.Model(&program).Association("Tags").Replace(tags); err != nil {
			slog.Error("sql error replacing program tags", "program_id", id, "error", err)
			return nil, schema.ErrDbAccessFailed
		}
	}

	return &program, nil
}

func resolveDeleteProgram(p graphql.ResolveParams) (interface{}, error) {
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

	if result := txn.Delete(&program); result.Error != nil {
		slog.Error("sql error deleting program", "program_id", id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return true, nil
}

func resolveCreateDataset(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	programId, err := idField(input, "programId")
	if err != nil {
		return nil, err
	}
	if _, err := schema.GetProgram(programId, txn); err != nil {
		return nil, err
	}

	dataset := schema.Dataset{
		Id:          uuid.New(),
		Name:        stringField(input, "name"),
		Description: stringField(input, "description"),
		ProgramId:   programId,
	}
	if result := txn.Create(&dataset); result.Error != nil {
		slog.Error("sql error creating dataset", "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return &dataset, nil
}

func resolveDeleteDataset(p graphql.ResolveParams) (interface{}, error) {
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

	if result := txn.Delete(&dataset); result.Error != nil {
		slog.Error("sql error deleting dataset", "dataset_id", id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return true, nil
}

func resolveCreateTag(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}

	tags, err := resolveProgramTagInputs(txn, []map[string]interface{}{input})
	if err != nil {
		return nil, err
	}

	return tags[0], nil
}

func resolveCreateCategory(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}

	category, err := reconcile.NewBatch[schema.Category]().Resolve(txn, stringField(input, "name"), func(name string) *schema.Category {
		return &schema.Category{Id: uuid.New(), Name: name, Description: stringField(input, "description")}
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

func resolveCreateCategoryValue(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	categoryId, err := idField(input, "categoryId")
	if err != nil {
		return nil, err
	}

	var category schema.Category
	if result := txn.First(&category, "id = ?", categoryId); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category not found")
		}
		slog.Error("sql error loading category", "category_id", categoryId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	// Names only need to be unique within their category, so the dedup lookup
	// is scoped to it.
	scoped := txn.Where("category_id = ?", categoryId)
	value, err := reconcile.NewBatch[schema.CategoryValue]().Resolve(scoped, stringField(input, "name"), func(name string) *schema.CategoryValue {
		return &schema.CategoryValue{Id: uuid.New(), Name: name, CategoryId: categoryId}
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

func resolveCreateReportingPeriod(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	programId, err := idField(input, "programId")
	if err != nil {
		return nil, err
	}
	if _, err := schema.GetProgram(programId, txn); err != nil {
		return nil, err
	}
	begin, err := timeField(input, "begin")
	if err != nil {
		return nil, err
	}
	end, err := timeField(input, "end")
	if err != nil {
		return nil, err
	}

	period := schema.ReportingPeriod{
		Id:          uuid.New(),
		ProgramId:   programId,
		Begin:       begin,
		End:         end,
		Description: stringField(input, "description"),
	}
	if result := txn.Create(&period); result.Error != nil {
		slog.Error("sql error creating reporting period", "program_id", programId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return &period, nil
}

func entriesFromInput(recordId uuid.UUID, inputs []map[string]interface{}) ([]schema.Entry, error) {
	entries := make([]schema.Entry, 0, len(inputs))
	for _, item := range inputs {
		categoryValueId, err := idField(item, "categoryValueId")
		if err != nil {
			return nil, err
		}
		personTypeId, err := idField(item, "personTypeId")
		if err != nil {
			return nil, err
		}
		count, _ := item["count"].(int)
		entries = append(entries, schema.Entry{
			Id:              uuid.New(),
			RecordId:        recordId,
			CategoryValueId: categoryValueId,
			PersonTypeId:    personTypeId,
			Count:           count,
		})
	}
	return entries, nil
}

func resolveCreateRecord(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	datasetId, err := idField(input, "datasetId")
	if err != nil {
		return nil, err
	}
	if _, err := schema.GetDataset(datasetId, txn); err != nil {
		return nil, err
	}
	publicationDate, err := timeField(input, "publicationDate")
	if err != nil {
		return nil, err
	}

	record := schema.Record{Id: uuid.New(), DatasetId: datasetId, PublicationDate: publicationDate}
	record.Entries, err = entriesFromInput(record.Id, listField(input, "entries"))
	if err != nil {
		return nil, err
	}

	if result := txn.Create(&record); result.Error != nil {
		slog.Error("sql error creating record", "dataset_id", datasetId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return &record, nil
}

func resolveUpdateRecord(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	id, err := idField(input, "id")
	if err != nil {
		return nil, err
	}

	record, err := schema.GetRecord(id, txn)
	if err != nil {
		return nil, err
	}

	entries, err := entriesFromInput(record.Id, listField(input, "entries"))
	if err != nil {
		return nil, err
	}

	if result := txn.Where("record_id = ?", record.Id).Delete(&schema.Entry{}); result.Error != nil {
		slog.Error("sql error clearing record entries", "record_id", record.Id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	if len(entries) > 0 {
		if result := txn.Create(&entries); result.Error != nil {
			slog.Error("sql error replacing record entries", "record_id", record.Id, "error", result.Error)
			return nil, schema.ErrDbAccessFailed
		}
	}

	record.Entries = entries
	return &record, nil
}

func resolveDeleteRecord(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	id, err := argId(p, "id")
	if err != nil {
		return nil, err
	}

	record, err := schema.GetRecord(id, txn)
	if err != nil {
		return nil, err
	}

	if result := txn.Delete(&record); result.Error != nil {
		slog.Error("sql error deleting record", "record_id", id, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return true, nil
}

func resolveCreatePublishedRecordSet(p graphql.ResolveParams) (interface{}, error) {
	txn, err := requestTxn(p)
	if err != nil {
		return nil, err
	}
	input, err := mutationInput(p)
	if err != nil {
		return nil, err
	}
	datasetId, err := idField(input, "datasetId")
	if err != nil {
		return nil, err
	}
	recordId, err := idField(input, "recordId")
	if err != nil {
		return nil, err
	}
	reportingPeriodId, err := idField(input, "reportingPeriodId")
	if err != nil {
		return nil, err
	}

	dataset, err := schema.GetDataset(datasetId, txn)
	if err != nil {
		return nil, err
	}

	var period schema.ReportingPeriod
	if result := txn.First(&period, "id = ?", reportingPeriodId); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReportingPeriodNotFound
		}
		slog.Error("sql error loading reporting period", "reporting_period_id", reportingPeriodId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	var existing int64
	result := txn.Model(&schema.PublishedRecordSet{}).
		Where("dataset_id = ? and \"end\" = ?", datasetId, period.End).
		Count(&existing)
	if result.Error != nil {
		slog.Error("sql error checking for existing publication", "dataset_id", datasetId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	if existing > 0 {
		return nil, ErrAlreadyPublished
	}

	doc, err := stats.BuildDocument(txn, dataset, recordId, period.Begin, period.End, period.Description)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error serializing published record set document: %w", err)
	}

	set := schema.PublishedRecordSet{
		Id:        uuid.New(),
		DatasetId: datasetId,
		Begin:     period.Begin,
		End:       period.End,
		Document:  datatypes.JSON(raw),
	}
	if result := txn.Create(&set); result.Error != nil {
		slog.Error("sql error creating published record set", "dataset_id", datasetId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	return &set, nil
}
