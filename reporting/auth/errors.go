package auth

import (
	"fmt"
	"strings"
)

// NotAuthorizedError is the normal denial outcome: the request is well formed
// and the user is known, but none of the required permissions was granted.
// GraphQL execution converts this into a null field plus an error entry, so
// other fields in the same query may still resolve.
type NotAuthorizedError struct {
	Permissions []Permission
}

func (e *NotAuthorizedError) Error() string {
	names := make([]string, 0, len(e.Permissions))
	for _, p := range e.Permissions {
		names = append(names, string(p))
	}
	return fmt.Sprintf("not authorized, requires permission: %v", strings.Join(names, ", "))
}

// InvalidPermissionError indicates a schema or application bug, not a
// user-caused failure: a permission was declared against an object type or
// mutation shape the evaluator cannot check.
type InvalidPermissionError struct {
	Permission Permission
	Reason     string
}

func (e *InvalidPermissionError) Error() string {
	return fmt.Sprintf("invalid permission %v: %v", e.Permission, e.Reason)
}
