package gql

import (
	"context"
	"testing"

	"diversity_platform/reporting/auth"
	"diversity_platform/reporting/schema"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupGqlDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(schema.AllModels()...))
	return db
}

func makeRoleUser(t *testing.T, db *gorm.DB, roleNames ...string) schema.User {
	roles := make([]schema.Role, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := auth.EnsureRole(db, name, "")
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
	return user
}

// exec runs a query against the full schema inside a transaction, optionally
// as the given user.
func exec(t *testing.T, db *gorm.DB, user *schema.User, query string) *graphql.Result {
	s, err := BuildSchema()
	require.NoError(t, err)

	var result *graphql.Result
	_ = db.Transaction(func(txn *gorm.DB) error {
		ctx := WithTxn(context.Background(), txn)
		if user != nil {
			ctx = context.WithValue(ctx, auth.UserRequestContextKey, *user)
		}
		result = graphql.Do(graphql.Params{Schema: s, RequestString: query, Context: ctx})
		return nil
	})
	return result
}

func TestFieldOverrideReplacesTypeDefault(t *testing.T) {
	table := NewPolicyTable()
	table.TypeDefault("Query", auth.LoggedIn)
	table.FieldOverride("Query", "users", auth.Admin)

	assert.Equal(t, []auth.Permission{auth.Admin}, table.effectivePermissions("Query", "users"))
	assert.Equal(t, []auth.Permission{auth.LoggedIn}, table.effectivePermissions("Query", "teams"))
	assert.Nil(t, table.effectivePermissions("Tag", "name"), "unlisted types have no requirements")
}

func TestApplyWrapsEachFieldOnce(t *testing.T) {
	calls := 0
	query := graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: graphql.Fields{
		"ping": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			calls++
			return "pong", nil
		}},
	}})
	s, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	require.NoError(t, err)

	table := NewPolicyTable()
	table.TypeDefault("Query", auth.LoggedIn)
	table.Apply(&s)
	wrappedFields := len(table.wrapped)
	table.Apply(&s)
	assert.Equal(t, wrappedFields, len(table.wrapped), "second pass must not wrap again")

	// Anonymous execution is denied before the resolver runs.
	result := graphql.Do(graphql.Params{Schema: s, RequestString: "{ ping }", Context: context.Background()})
	require.NotEmpty(t, result.Errors)
	assert.Zero(t, calls)

	db := setupGqlDb(t)
	user := makeRoleUser(t, db)
	ctx := context.WithValue(WithTxn(context.Background(), db), auth.UserRequestContextKey, user)
	result = graphql.Do(graphql.Params{Schema: s, RequestString: "{ ping }", Context: ctx})
	require.Empty(t, result.Errors)
	assert.Equal(t, 1, calls)
}

func TestAnonymousQueriesAreDenied(t *testing.T) {
	db := setupGqlDb(t)

	result := exec(t, db, nil, "{ teams { id name } }")
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "not authorized")
}

func TestLoggedInUserMayListTeams(t *testing.T) {
	db := setupGqlDb(t)
	require.NoError(t, db.Create(&schema.Team{Id: uuid.New(), Name: "newsroom"}).Error)

	user := makeRoleUser(t, db)
	result := exec(t, db, &user, "{ teams { id } }")
	assert.Empty(t, result.Errors)
}

func TestUsersQueryRequiresAdmin(t *testing.T) {
	db := setupGqlDb(t)

	plain := makeRoleUser(t, db)
	result := exec(t, db, &plain, "{ users { id } }")
	require.NotEmpty(t, result.Errors)

	admin := makeRoleUser(t, db, auth.AdminRoleName)
	result = exec(t, db, &admin, "{ users { id username } }")
	assert.Empty(t, result.Errors)
}

func TestUserFieldsGuardedPerField(t *testing.T) {
	db := setupGqlDb(t)
	user := makeRoleUser(t, db)

	// id and username are readable by any logged-in user; email is not.
	result := exec(t, db, &user, `{ me { id username } }`)
	assert.Empty(t, result.Errors)

	result = exec(t, db, &user, `{ me { email } }`)
	assert.Empty(t, result.Errors, "reading your own email is allowed via CURRENT_USER")
}

func TestConfigureAppOnlyOnBlankSlate(t *testing.T) {
	db := setupGqlDb(t)
	auth.ResetBlankSlateForTest()
	t.Cleanup(auth.ResetBlankSlateForTest)

	mutation := `mutation { configureApp(input: {organizationName: "acme"}) { id name } }`

	result := exec(t, db, nil, mutation)
	require.Empty(t, result.Errors, "anonymous setup is allowed while no organization exists")

	result = exec(t, db, nil, mutation)
	require.NotEmpty(t, result.Errors, "setup transitions once and never reopens")
}

func TestDeniedFieldDoesNotLeakSiblingData(t *testing.T) {
	db := setupGqlDb(t)
	user := makeRoleUser(t, db)

	result := exec(t, db, &user, "{ teams { id } users { id } }")
	require.NotEmpty(t, result.Errors)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotNil(t, data["teams"], "allowed sibling still resolves")
	assert.Nil(t, data["users"], "denied field is null, not an empty list")
}
