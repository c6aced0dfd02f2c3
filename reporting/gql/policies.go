package gql

import (
	"errors"
	"log/slog"
	"strings"

	"diversity_platform/reporting/auth"
	"diversity_platform/reporting/schema"

	"github.com/graphql-go/graphql"
)

// PolicyTable is the static declaration of which permissions guard which
// graphql fields. A type-level default applies to all fields of the type
// unless a field declares its own set, which replaces (never unions with) the
// default. The table is built once at schema-construction time and applied in
// a single wrapping pass before the server serves traffic.
type PolicyTable struct {
	typeDefaults   map[string][]auth.Permission
	fieldOverrides map[string]map[string][]auth.Permission
	wrapped        map[string]bool
}

func NewPolicyTable() *PolicyTable {
	return &PolicyTable{
		typeDefaults:   map[string][]auth.Permission{},
		fieldOverrides: map[string]map[string][]auth.Permission{},
		wrapped:        map[string]bool{},
	}
}

func (t *PolicyTable) TypeDefault(typeName string, perms ...auth.Permission) {
	t.typeDefaults[typeName] = perms
}

func (t *PolicyTable) FieldOverride(typeName, fieldName string, perms ...auth.Permission) {
	if t.fieldOverrides[typeName] == nil {
		t.fieldOverrides[typeName] = map[string][]auth.Permission{}
	}
	t.fieldOverrides[typeName][fieldName] = perms
}

func (t *PolicyTable) effectivePermissions(typeName, fieldName string) []auth.Permission {
	if overrides, ok := t.fieldOverrides[typeName]; ok {
		if perms, ok := overrides[fieldName]; ok {
			return perms
		}
	}
	return t.typeDefaults[typeName]
}

// Apply wraps the resolver of every field of every object type. Each field is
// wrapped exactly once: the marker guards against double-layering when Apply
// runs again over an already processed schema.
func (t *PolicyTable) Apply(s *graphql.Schema) {
	for typeName, gqlType := range s.TypeMap() {
		if strings.HasPrefix(typeName, "__") {
			continue
		}
		obj, ok := gqlType.(*graphql.Object)
		if !ok {
			continue
		}
		for fieldName, field := range obj.Fields() {
			marker := typeName + "." + fieldName
			if t.wrapped[marker] {
				continue
			}
			t.wrapped[marker] = true
			field.Resolve = t.wrapResolver(typeName, t.effectivePermissions(typeName, fieldName), field.Resolve)
		}
	}
}

// wrapResolver consults the permission evaluator before any resolver work
// happens. On denial it raises NotAuthorized instead of invoking the real
// resolver; the execution engine turns that into a null field plus an entry
// in the response's error list.
func (t *PolicyTable) wrapResolver(typeName string, perms []auth.Permission, inner graphql.FieldResolveFn) graphql.FieldResolveFn {
	if inner == nil {
		inner = graphql.DefaultResolveFn
	}

	return func(p graphql.ResolveParams) (interface{}, error) {
		user := auth.OptionalUserFromContext(p.Context)
		req := auth.Request{Txn: TxnFromContext(p.Context), Field: p.Info.FieldName, Args: p.Args}

		allowed, err := auth.Authorize(perms, user, entityTarget(p.Source), req)
		if err != nil {
			var invalid *auth.InvalidPermissionError
			if errors.As(err, &invalid) {
				// A schema/application bug, not an authorization outcome.
				slog.Error("permission configuration error", "type", typeName, "field", p.Info.FieldName, "error", err)
				invalidPermissionMetric.Inc()
			}
			return nil, err
		}
		if !allowed {
			authorizationDenials.Inc()
			return nil, &auth.NotAuthorizedError{Permissions: perms}
		}

		return inner(p)
	}
}

// entityTarget passes the resolved source object to the evaluator when it is
// a domain entity the evaluator knows how to check. Root fields have no
// resolved target; the evaluator falls back to mutation argument resolution.
func entityTarget(source interface{}) interface{} {
	switch source.(type) {
	case *schema.User, *schema.Team, *schema.Program, *schema.Dataset, *schema.Record:
		return source
	}
	return nil
}
