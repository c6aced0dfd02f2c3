package gql

import (
	"diversity_platform/reporting/auth"

	"github.com/graphql-go/graphql"
)

type schemaBuilder struct {
	role               *graphql.Object
	user               *graphql.Object
	organization       *graphql.Object
	team               *graphql.Object
	program            *graphql.Object
	reportingPeriod    *graphql.Object
	dataset            *graphql.Object
	record             *graphql.Object
	entry              *graphql.Object
	personType         *graphql.Object
	category           *graphql.Object
	categoryValue      *graphql.Object
	tag                *graphql.Object
	target             *graphql.Object
	track              *graphql.Object
	publishedRecordSet *graphql.Object

	headlineTotal   *graphql.Object
	overviewCounts  *graphql.Object
	overview        *graphql.Object
	consistencyYear *graphql.Object
	datasetFlag     *graphql.Object
	adminStats      *graphql.Object
}

// BuildSchema constructs the executable schema and applies the field
// authorization policies in one wrapping pass, so every resolver is guarded
// before the server starts serving traffic.
func BuildSchema() (graphql.Schema, error) {
	b := &schemaBuilder{}
	b.buildTypes()
	b.wireRelationships()

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    b.queryType(),
		Mutation: b.mutationType(),
	})
	if err != nil {
		return schema, err
	}

	b.policies().Apply(&schema)

	return schema, nil
}

func (b *schemaBuilder) buildTypes() {
	b.role = graphql.NewObject(graphql.ObjectConfig{Name: "Role", Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
	}})

	b.user = graphql.NewObject(graphql.ObjectConfig{Name: "User", Fields: graphql.Fields{
		"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"username": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"email":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"roles":    &graphql.Field{Type: graphql.NewList(b.role)},
		"teams":    &graphql.Field{Type: graphql.NewList(graphql.ID), Resolve: resolveUserTeamIds},
	}})

	b.organization = graphql.NewObject(graphql.ObjectConfig{Name: "Organization", Fields: graphql.Fields{
		"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	}})

	b.team = graphql.NewObject(graphql.ObjectConfig{Name: "Team", Fields: graphql.Fields{
		"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	}})

	b.tag = graphql.NewObject(graphql.ObjectConfig{Name: "Tag", Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"tagType":     &graphql.Field{Type: graphql.String},
	}})

	b.personType = graphql.NewObject(graphql.ObjectConfig{Name: "PersonType", Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"personTypeName": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	}})

	b.categoryValue = graphql.NewObject(graphql.ObjectConfig{Name: "CategoryValue", Fields: graphql.Fields{
		"id":         &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"categoryId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
	}})

	b.category = graphql.NewObject(graphql.ObjectConfig{Name: "Category", Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":           &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description":    &graphql.Field{Type: graphql.String},
		"categoryValues": &graphql.Field{Type: graphql.NewList(b.categoryValue), Resolve: resolveCategoryValues},
	}})

	b.track = graphql.NewObject(graphql.ObjectConfig{Name: "Track", Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"categoryValueId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"targetMember":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
	}})

	b.target = graphql.NewObject(graphql.ObjectConfig{Name: "Target", Fields: graphql.Fields{
		"id":         &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"categoryId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"target":     &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"tracks":     &graphql.Field{Type: graphql.NewList(b.track)},
	}})

	b.reportingPeriod = graphql.NewObject(graphql.ObjectConfig{Name: "ReportingPeriod", Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"begin":       &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"end":         &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"description": &graphql.Field{Type: graphql.String},
	}})

	b.entry = graphql.NewObject(graphql.ObjectConfig{Name: "Entry", Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"categoryValueId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"personTypeId":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"count":           &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	}})

	b.record = graphql.NewObject(graphql.ObjectConfig{Name: "Record", Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"datasetId":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"publicationDate": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"entries":         &graphql.Field{Type: graphql.NewList(b.entry)},
	}})

	b.publishedRecordSet = graphql.NewObject(graphql.ObjectConfig{Name: "PublishedRecordSet", Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"datasetId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"begin":     &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"end":       &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"document":  &graphql.Field{Type: graphql.String, Resolve: resolvePublishedDocument},
	}})

	b.dataset = graphql.NewObject(graphql.ObjectConfig{Name: "Dataset", Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"programId":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
	}})

	b.program = graphql.NewObject(graphql.ObjectConfig{Name: "Program", Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"teamId":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
	}})

	b.headlineTotal = graphql.NewObject(graphql.ObjectConfig{Name: "HeadlineTotal", Fields: graphql.Fields{
		"category":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"percent":      &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"noOfDatasets": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	}})

	b.overviewCounts = graphql.NewObject(graphql.ObjectConfig{Name: "OverviewCounts", Fields: graphql.Fields{
		"exceeds": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"lt5":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"lt10":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"gt10":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	}})

	b.overview = graphql.NewObject(graphql.ObjectConfig{Name: "Overview", Fields: graphql.Fields{
		"category": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"filter":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"date":     &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"counts":   &graphql.Field{Type: b.overviewCounts},
	}})

	b.consistencyYear = graphql.NewObject(graphql.ObjectConfig{Name: "ConsistencyYear", Fields: graphql.Fields{
		"category":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"year":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"consistent": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"failed":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	}})

	b.datasetFlag = graphql.NewObject(graphql.ObjectConfig{Name: "DatasetFlag", Fields: graphql.Fields{
		"datasetId":           &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":                &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"reportingPeriodEnd":  &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"needsAttentionTypes": &graphql.Field{Type: graphql.NewList(graphql.String)},
	}})

	b.adminStats = graphql.NewObject(graphql.ObjectConfig{Name: "AdminStats", Fields: graphql.Fields{
		"overdue":        &graphql.Field{Type: graphql.NewList(b.datasetFlag)},
		"needsAttention": &graphql.Field{Type: graphql.NewList(b.datasetFlag)},
	}})
}

// wireRelationships adds the cyclic and lazily loaded relationship fields
// after all object types exist. Must run before graphql.NewSchema so the
// referenced types are collected into the schema's type map.
func (b *schemaBuilder) wireRelationships() {
	b.user.AddFieldConfig("teamList", &graphql.Field{Type: graphql.NewList(b.team), Resolve: resolveUserTeams})

	b.team.AddFieldConfig("users", &graphql.Field{Type: graphql.NewList(b.user), Resolve: resolveTeamUsers})
	b.team.AddFieldConfig("programs", &graphql.Field{Type: graphql.NewList(b.program), Resolve: resolveTeamPrograms})

	b.program.AddFieldConfig("datasets", &graphql.Field{Type: graphql.NewList(b.dataset), Resolve: resolveProgramDatasets})
	b.program.AddFieldConfig("tags", &graphql.Field{Type: graphql.NewList(b.tag), Resolve: resolveProgramTags})
	b.program.AddFieldConfig("targets", &graphql.Field{Type: graphql.NewList(b.target), Resolve: resolveProgramTargets})
	b.program.AddFieldConfig("reportingPeriods", &graphql.Field{Type: graphql.NewList(b.reportingPeriod), Resolve: resolveProgramReportingPeriods})

	b.dataset.AddFieldConfig("records", &graphql.Field{Type: graphql.NewList(b.record), Resolve: resolveDatasetRecords})
	b.dataset.AddFieldConfig("publishedRecordSets", &graphql.Field{Type: graphql.NewList(b.publishedRecordSet), Resolve: resolveDatasetPublishedRecordSets})
}

func (b *schemaBuilder) queryType() *graphql.Object {
	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}

	return graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: graphql.Fields{
		"me":    &graphql.Field{Type: b.user, Resolve: resolveMe},
		"user":  &graphql.Field{Type: b.user, Args: idArg, Resolve: resolveUser},
		"users": &graphql.Field{Type: graphql.NewList(b.user), Resolve: resolveUsers},

		"teams": &graphql.Field{Type: graphql.NewList(b.team), Resolve: resolveTeams},
		"team":  &graphql.Field{Type: b.team, Args: idArg, Resolve: resolveTeam},

		"programs": &graphql.Field{Type: graphql.NewList(b.program), Resolve: resolvePrograms},
		"program":  &graphql.Field{Type: b.program, Args: idArg, Resolve: resolveProgram},
		"dataset":  &graphql.Field{Type: b.dataset, Args: idArg, Resolve: resolveDataset},

		"tags":       &graphql.Field{Type: graphql.NewList(b.tag), Resolve: resolveTags},
		"categories": &graphql.Field{Type: graphql.NewList(b.category), Resolve: resolveCategories},

		"publishedRecordSets": &graphql.Field{
			Type: graphql.NewList(b.publishedRecordSet),
			Args: graphql.FieldConfigArgument{
				"datasetId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: resolvePublishedRecordSets,
		},

		"stats":         &graphql.Field{Type: graphql.NewList(b.headlineTotal), Resolve: resolveHeadlineTotals},
		"overviews":     &graphql.Field{Type: graphql.NewList(b.overview), Resolve: resolveOverviews},
		"consistencies": &graphql.Field{Type: graphql.NewList(b.consistencyYear), Resolve: resolveConsistencies},
		"adminStats":    &graphql.Field{Type: b.adminStats, Resolve: resolveAdminStats},
	}})
}

func (b *schemaBuilder) mutationType() *graphql.Object {
	configureAppInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "ConfigureAppInput", Fields: graphql.InputObjectConfigFieldMap{
		"organizationName": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
	}})

	createTeamInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "CreateTeamInput", Fields: graphql.InputObjectConfigFieldMap{
		"name": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
	}})

	updateTeamInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "UpdateTeamInput", Fields: graphql.InputObjectConfigFieldMap{
		"id":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"name": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
	}})

	tagInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "TagInput", Fields: graphql.InputObjectConfigFieldMap{
		"name":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"tagType":     &graphql.InputObjectFieldConfig{Type: graphql.String},
	}})

	trackInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "TrackInput", Fields: graphql.InputObjectConfigFieldMap{
		"categoryValueId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"targetMember":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Boolean)},
	}})

	targetInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "TargetInput", Fields: graphql.InputObjectConfigFieldMap{
		"categoryId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"target":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		"tracks":     &graphql.InputObjectFieldConfig{Type: graphql.NewList(trackInput)},
	}})

	createProgramInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "CreateProgramInput", Fields: graphql.InputObjectConfigFieldMap{
		"name":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"teamId":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"tags":        &graphql.InputObjectFieldConfig{Type: graphql.NewList(tagInput)},
		"targets":     &graphql.InputObjectFieldConfig{Type: graphql.NewList(targetInput)},
	}})

	updateProgramInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "UpdateProgramInput", Fields: graphql.InputObjectConfigFieldMap{
		"id":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"name":        &graphql.InputObjectFieldConfig{Type: graphql.String},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"tags":        &graphql.InputObjectFieldConfig{Type: graphql.NewList(tagInput)},
	}})

	createDatasetInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "CreateDatasetInput", Fields: graphql.InputObjectConfigFieldMap{
		"name":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"programId":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
	}})

	createCategoryInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "CreateCategoryInput", Fields: graphql.InputObjectConfigFieldMap{
		"name":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
	}})

	createCategoryValueInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "CreateCategoryValueInput", Fields: graphql.InputObjectConfigFieldMap{
		"name":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"categoryId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
	}})

	createReportingPeriodInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "CreateReportingPeriodInput", Fields: graphql.InputObjectConfigFieldMap{
		"programId":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"begin":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.DateTime)},
		"end":         &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.DateTime)},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
	}})

	entryInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "EntryInput", Fields: graphql.InputObjectConfigFieldMap{
		"categoryValueId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"personTypeId":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"count":           &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
	}})

	createRecordInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "CreateRecordInput", Fields: graphql.InputObjectConfigFieldMap{
		"datasetId":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"publicationDate": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.DateTime)},
		"entries":         &graphql.InputObjectFieldConfig{Type: graphql.NewList(entryInput)},
	}})

	updateRecordInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "UpdateRecordInput", Fields: graphql.InputObjectConfigFieldMap{
		"id":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"entries": &graphql.InputObjectFieldConfig{Type: graphql.NewList(entryInput)},
	}})

	createPublishedRecordSetInput := graphql.NewInputObject(graphql.InputObjectConfig{Name: "CreatePublishedRecordSetInput", Fields: graphql.InputObjectConfigFieldMap{
		"datasetId":         &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"recordId":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"reportingPeriodId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
	}})

	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}

	inputArg := func(input *graphql.InputObject) graphql.FieldConfigArgument {
		return graphql.FieldConfigArgument{
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(input)},
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: graphql.Fields{
		"configureApp": &graphql.Field{Type: b.organization, Args: inputArg(configureAppInput), Resolve: resolveConfigureApp},

		"createTeam": &graphql.Field{Type: b.team, Args: inputArg(createTeamInput), Resolve: resolveCreateTeam},
		"updateTeam": &graphql.Field{Type: b.team, Args: inputArg(updateTeamInput), Resolve: resolveUpdateTeam},
		"deleteTeam": &graphql.Field{Type: graphql.Boolean, Args: idArg, Resolve: resolveDeleteTeam},

		"createProgram": &graphql.Field{Type: b.program, Args: inputArg(createProgramInput), Resolve: resolveCreateProgram},
		"updateProgram": &graphql.Field{Type: b.program, Args: inputArg(updateProgramInput), Resolve: resolveUpdateProgram},
		"deleteProgram": &graphql.Field{Type: graphql.Boolean, Args: idArg, Resolve: resolveDeleteProgram},

		"createDataset": &graphql.Field{Type: b.dataset, Args: inputArg(createDatasetInput), Resolve: resolveCreateDataset},
		"deleteDataset": &graphql.Field{Type: graphql.Boolean, Args: idArg, Resolve: resolveDeleteDataset},

		"createTag":           &graphql.Field{Type: b.tag, Args: inputArg(tagInput), Resolve: resolveCreateTag},
		"createCategory":      &graphql.Field{Type: b.category, Args: inputArg(createCategoryInput), Resolve: resolveCreateCategory},
		"createCategoryValue": &graphql.Field{Type: b.categoryValue, Args: inputArg(createCategoryValueInput), Resolve: resolveCreateCategoryValue},

		"createReportingPeriod": &graphql.Field{Type: b.reportingPeriod, Args: inputArg(createReportingPeriodInput), Resolve: resolveCreateReportingPeriod},

		"createRecord": &graphql.Field{Type: b.record, Args: inputArg(createRecordInput), Resolve: resolveCreateRecord},
		"updateRecord": &graphql.Field{Type: b.record, Args: inputArg(updateRecordInput), Resolve: resolveUpdateRecord},
		"deleteRecord": &graphql.Field{Type: graphql.Boolean, Args: idArg, Resolve: resolveDeleteRecord},

		"createPublishedRecordSet": &graphql.Field{Type: b.publishedRecordSet, Args: inputArg(createPublishedRecordSetInput), Resolve: resolveCreatePublishedRecordSet},
	}})
}

// policies declares the permission sets guarding the schema, the static
// equivalent of @needsPermission directives on types and fields. Field
// entries replace the type default, they do not union with it.
func (b *schemaBuilder) policies() *PolicyTable {
	t := NewPolicyTable()

	t.TypeDefault("Query", auth.LoggedIn)
	t.FieldOverride("Query", "users", auth.Admin)
	t.FieldOverride("Query", "adminStats", auth.Admin)

	t.TypeDefault("Mutation", auth.Admin)
	t.FieldOverride("Mutation", "configureApp", auth.BlankSlate)
	t.FieldOverride("Mutation", "createTag", auth.LoggedIn)
	t.FieldOverride("Mutation", "createRecord", auth.Admin, auth.TeamMember)
	t.FieldOverride("Mutation", "updateRecord", auth.Admin, auth.TeamMember)
	t.FieldOverride("Mutation", "deleteRecord", auth.Admin, auth.TeamMember)
	t.FieldOverride("Mutation", "createPublishedRecordSet", auth.Admin, auth.Publisher)

	t.TypeDefault("User", auth.Admin, auth.CurrentUser)
	t.FieldOverride("User", "id", auth.LoggedIn)
	t.FieldOverride("User", "username", auth.LoggedIn)

	// Team names are visible to any logged-in user; the membership roster and
	// the team's programs are not.
	t.TypeDefault("Team", auth.LoggedIn)
	t.FieldOverride("Team", "users", auth.Admin, auth.TeamMember)
	t.FieldOverride("Team", "programs", auth.Admin, auth.TeamMember)

	t.TypeDefault("Program", auth.Admin, auth.TeamMember)
	t.TypeDefault("Dataset", auth.Admin, auth.TeamMember)
	t.TypeDefault("Record", auth.Admin, auth.TeamMember)

	return t
}
