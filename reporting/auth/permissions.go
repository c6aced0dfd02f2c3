package auth

import (
	"diversity_platform/reporting/schema"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Permission string

const (
	LoggedIn    Permission = "LOGGED_IN"
	BlankSlate  Permission = "BLANK_SLATE"
	Admin       Permission = "ADMIN"
	Publisher   Permission = "PUBLISHER"
	CurrentUser Permission = "CURRENT_USER"
	TeamMember  Permission = "TEAM_MEMBER"
)

const (
	AdminRoleName     = "admin"
	PublisherRoleName = "publisher"
)

// TeamOwned is implemented by entities whose authorization derives from the
// team that transitively owns them (program -> dataset -> record).
type TeamOwned interface {
	OwningTeam(db *gorm.DB) (uuid.UUID, error)
}

// Request carries the request-scoped state the evaluator needs. The evaluator
// never opens its own session, it operates on the transaction already bound
// to the request.
type Request struct {
	Txn   *gorm.DB
	Field string
	Args  map[string]interface{}
}

// Authorize decides whether a user holding any of the required permissions
// may proceed against the target object. Checks run cheapest first and
// short-circuit on the first grant. Unrecognized permissions are inert: they
// contribute nothing and never grant access.
func Authorize(required []Permission, user *schema.User, target interface{}, req Request) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}

	has := func(p Permission) bool {
		for _, r := range required {
			if r == p {
				return true
			}
		}
		return false
	}

	if has(LoggedIn) && user != nil {
		return true, nil
	}

	if has(BlankSlate) {
		uninitialized, err := IsUninitialized(req.Txn)
		if err != nil {
			return false, err
		}
		if uninitialized {
			return true, nil
		}
	}

	// Every remaining permission requires an identity.
	if user == nil {
		return false, nil
	}

	if has(Admin) && user.HasRole(AdminRoleName) {
		return true, nil
	}

	if has(Publisher) && user.HasRole(PublisherRoleName) {
		return true, nil
	}

	if has(CurrentUser) {
		targetUser, ok := target.(*schema.User)
		if !ok {
			return false, &InvalidPermissionError{
				Permission: CurrentUser,
				Reason:     fmt.Sprintf("target object %T is not a user", target),
			}
		}
		if targetUser.Id == user.Id {
			return true, nil
		}
	}

	if has(TeamMember) {
		member, err := checkTeamMember(user, target, req)
		if err != nil {
			return false, err
		}
		if member {
			return true, nil
		}
	}

	return false, nil
}

func checkTeamMember(user *schema.User, target interface{}, req Request) (bool, error) {
	owned, err := teamOwnedTarget(target, req)
	if err != nil {
		return false, err
	}

	teamId, err := owned.OwningTeam(req.Txn)
	if err != nil {
		return false, err
	}

	return schema.IsTeamMember(teamId, user.Id, req.Txn)
}

// teamOwnedTarget returns the entity whose owning team decides membership.
// For mutations the target is not resolved yet, so it is looked up from the
// mutation's input arguments by known field name.
func teamOwnedTarget(target interface{}, req Request) (TeamOwned, error) {
	if target != nil {
		owned, ok := target.(TeamOwned)
		if !ok {
			return nil, &InvalidPermissionError{
				Permission: TeamMember,
				Reason:     fmt.Sprintf("target object %T has no owning team", target),
			}
		}
		return owned, nil
	}

	switch req.Field {
	case "createRecord":
		datasetId, err := inputArgUUID(req.Args, "datasetId")
		if err != nil {
			return nil, err
		}
		dataset, err := schema.GetDataset(datasetId, req.Txn)
		if err != nil {
			return nil, notFoundAsDenial(err)
		}
		return &dataset, nil

	case "updateRecord":
		recordId, err := inputArgUUID(req.Args, "id")
		if err != nil {
			return nil, err
		}
		record, err := schema.GetRecord(recordId, req.Txn)
		if err != nil {
			return nil, notFoundAsDenial(err)
		}
		return &record, nil

	case "deleteRecord":
		recordId, err := argUUID(req.Args, "id")
		if err != nil {
			return nil, err
		}
		record, err := schema.GetRecord(recordId, req.Txn)
		if err != nil {
			return nil, notFoundAsDenial(err)
		}
		return &record, nil
	}

	return nil, &InvalidPermissionError{
		Permission: TeamMember,
		Reason:     fmt.Sprintf("no target object and mutation %q has no known target shape", req.Field),
	}
}

func notFoundAsDenial(err error) error {
	if errors.Is(err, schema.ErrDatasetNotFound) || errors.Is(err, schema.ErrRecordNotFound) {
		return &NotAuthorizedError{Permissions: []Permission{TeamMember}}
	}
	return err
}

func argUUID(args map[string]interface{}, key string) (uuid.UUID, error) {
	value, ok := args[key].(string)
	if !ok {
		return uuid.Nil, &InvalidPermissionError{
			Permission: TeamMember,
			Reason:     fmt.Sprintf("missing %q argument for team membership check", key),
		}
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid uuid '%v' provided: %w", value, err)
	}
	return id, nil
}

func inputArgUUID(args map[string]interface{}, key string) (uuid.UUID, error) {
	input, ok := args["input"].(map[string]interface{})
	if !ok {
		return uuid.Nil, &InvalidPermissionError{
			Permission: TeamMember,
			Reason:     "missing input argument for team membership check",
		}
	}
	return argUUID(input, key)
}

// AdminOnly guards REST endpoints that are restricted to platform admins.
func AdminOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !user.HasRole(AdminRoleName) {
				http.Error(w, fmt.Sprintf("user %v is not an admin", user.Id), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
