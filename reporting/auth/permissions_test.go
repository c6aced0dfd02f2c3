package auth

import (
	"testing"

	"diversity_platform/reporting/schema"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuthDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(schema.AllModels()...))
	return db
}

func makeUser(t *testing.T, db *gorm.DB, roleNames ...string) *schema.User {
	roles := make([]schema.Role, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := EnsureRole(db, name, "")
		require.NoError(t, err)
		roles = append(roles, role)
	}

	user := schema.User{
		Id:       uuid.New(),
		Username: "user-" + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@mail.com",
		Roles:    roles,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestEmptyPermissionSetAllowsAnyone(t *testing.T) {
	allowed, err := Authorize(nil, nil, nil, Request{})
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLoggedInPermission(t *testing.T) {
	db := setupAuthDb(t)
	user := makeUser(t, db)

	allowed, err := Authorize([]Permission{LoggedIn}, user, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = Authorize([]Permission{LoggedIn}, nil, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestBlankSlatePermission(t *testing.T) {
	db := setupAuthDb(t)
	ResetBlankSlateForTest()
	t.Cleanup(ResetBlankSlateForTest)

	// No organization exists yet, so even anonymous requests pass.
	allowed, err := Authorize([]Permission{BlankSlate}, nil, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, db.Create(&schema.Organization{Id: uuid.New(), Name: "org"}).Error)
	MarkInitialized()

	allowed, err = Authorize([]Permission{BlankSlate}, nil, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestBlankSlateLazyLoad(t *testing.T) {
	db := setupAuthDb(t)
	require.NoError(t, db.Create(&schema.Organization{Id: uuid.New(), Name: "org"}).Error)

	ResetBlankSlateForTest()
	t.Cleanup(ResetBlankSlateForTest)

	uninitialized, err := IsUninitialized(db)
	require.NoError(t, err)
	assert.False(t, uninitialized)
}

func TestRolePermissions(t *testing.T) {
	db := setupAuthDb(t)
	admin := makeUser(t, db, AdminRoleName)
	publisher := makeUser(t, db, PublisherRoleName)
	plain := makeUser(t, db)

	allowed, err := Authorize([]Permission{Admin}, admin, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = Authorize([]Permission{Admin}, publisher, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = Authorize([]Permission{Publisher}, publisher, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = Authorize([]Permission{Admin, Publisher}, plain, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAdminShortCircuitsBeforeExpensiveChecks(t *testing.T) {
	db := setupAuthDb(t)
	admin := makeUser(t, db, AdminRoleName)

	// A nil transaction would fail any db-backed check, so a grant proves the
	// role check decided first.
	allowed, err := Authorize([]Permission{Admin, TeamMember}, admin, nil, Request{Txn: nil})
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCurrentUserPermission(t *testing.T) {
	db := setupAuthDb(t)
	user := makeUser(t, db)
	other := makeUser(t, db)

	allowed, err := Authorize([]Permission{CurrentUser}, user, user, Request{Txn: db})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = Authorize([]Permission{CurrentUser}, user, other, Request{Txn: db})
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = Authorize([]Permission{CurrentUser}, user, &schema.Team{}, Request{Txn: db})
	var invalid *InvalidPermissionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, CurrentUser, invalid.Permission)
}

func setupOwnershipChain(t *testing.T, db *gorm.DB) (schema.Team, schema.Program, schema.Dataset, schema.Record) {
	team := schema.Team{Id: uuid.New(), Name: "newsroom"}
	require.NoError(t, db.Create(&team).Error)

	program := schema.Program{Id: uuid.New(), Name: "morning show", TeamId: team.Id}
	require.NoError(t, db.Create(&program).Error)

	dataset := schema.Dataset{Id: uuid.New(), Name: "guests", ProgramId: program.Id}
	require.NoError(t, db.Create(&dataset).Error)

	record := schema.Record{Id: uuid.New(), DatasetId: dataset.Id}
	require.NoError(t, db.Create(&record).Error)

	return team, program, dataset, record
}

func TestTeamMemberPermission(t *testing.T) {
	db := setupAuthDb(t)
	team, program, dataset, record := setupOwnershipChain(t, db)

	member := makeUser(t, db)
	outsider := makeUser(t, db)
	require.NoError(t, db.Create(&schema.UserTeam{UserId: member.Id, TeamId: team.Id}).Error)

	for _, target := range []interface{}{&team, &program, &dataset, &record} {
		allowed, err := Authorize([]Permission{TeamMember}, member, target, Request{Txn: db})
		require.NoError(t, err)
		assert.True(t, allowed, "expected team member to be allowed on %T", target)

		allowed, err = Authorize([]Permission{TeamMember}, outsider, target, Request{Txn: db})
		require.NoError(t, err)
		assert.False(t, allowed, "expected outsider to be denied on %T", target)
	}
}

func TestTeamMemberOnMutationArguments(t *testing.T) {
	db := setupAuthDb(t)
	team, _, dataset, record := setupOwnershipChain(t, db)

	member := makeUser(t, db)
	require.NoError(t, db.Create(&schema.UserTeam{UserId: member.Id, TeamId: team.Id}).Error)

	allowed, err := Authorize([]Permission{TeamMember}, member, nil, Request{
		Txn:   db,
		Field: "createRecord",
		Args:  map[string]interface{}{"input": map[string]interface{}{"datasetId": dataset.Id.String()}},
	})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = Authorize([]Permission{TeamMember}, member, nil, Request{
		Txn:   db,
		Field: "updateRecord",
		Args:  map[string]interface{}{"input": map[string]interface{}{"id": record.Id.String()}},
	})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = Authorize([]Permission{TeamMember}, member, nil, Request{
		Txn:   db,
		Field: "deleteRecord",
		Args:  map[string]interface{}{"id": record.Id.String()},
	})
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestTeamMemberMissingTargetIsDenied(t *testing.T) {
	db := setupAuthDb(t)
	member := makeUser(t, db)

	// A nonexistent dataset reads as a denial, not a config error, so probing
	// ids cannot distinguish "missing" from "forbidden".
	_, err := Authorize([]Permission{TeamMember}, member, nil, Request{
		Txn:   db,
		Field: "createRecord",
		Args:  map[string]interface{}{"input": map[string]interface{}{"datasetId": uuid.NewString()}},
	})
	var denied *NotAuthorizedError
	require.ErrorAs(t, err, &denied)
}

func TestTeamMemberInvalidShapes(t *testing.T) {
	db := setupAuthDb(t)
	member := makeUser(t, db)

	var invalid *InvalidPermissionError

	// Target entity with no owning team.
	_, err := Authorize([]Permission{TeamMember}, member, &schema.Tag{}, Request{Txn: db})
	require.ErrorAs(t, err, &invalid)

	// Mutation whose arguments the evaluator has no resolution rule for.
	_, err = Authorize([]Permission{TeamMember}, member, nil, Request{Txn: db, Field: "createTeam"})
	require.ErrorAs(t, err, &invalid)
}

func TestUnknownPermissionNeverGrants(t *testing.T) {
	db := setupAuthDb(t)
	admin := makeUser(t, db, AdminRoleName)

	allowed, err := Authorize([]Permission{"SUPERUSER"}, admin, nil, Request{Txn: db})
	require.NoError(t, err)
	assert.False(t, allowed)
}
