package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"diversity_platform/reporting/schema"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFoundWithEmail = errors.New("no user found for given email")
	ErrInvalidCredentials    = errors.New("invalid login credentials")
	ErrGeneratingJwt         = errors.New("error generating jwt")
	ErrEmailAlreadyInUse     = errors.New("email is already in use")
	ErrUsernameAlreadyInUse  = errors.New("username is already in use")
)

type LoginResult struct {
	UserId      uuid.UUID
	AccessToken string
}

type IdentityProvider interface {
	// AuthMiddleware rejects requests without a valid token.
	AuthMiddleware() chi.Middlewares

	// OptionalAuthMiddleware resolves the user when a valid token is present
	// and passes anonymous requests through untouched. The GraphQL boundary
	// uses this; field-level permissions decide what anonymous users may do.
	OptionalAuthMiddleware() chi.Middlewares

	AllowDirectSignup() bool

	LoginWithEmail(email, password string) (LoginResult, error)

	CreateUser(username, email, password string) (uuid.UUID, error)
}

// EnsureRole returns the role with the given name, creating it if missing.
func EnsureRole(db *gorm.DB, name, description string) (schema.Role, error) {
	var role schema.Role
	err := db.Transaction(func(txn *gorm.DB) error {
		result := txn.Limit(1).Find(&role, "name = ?", name)
		if result.Error != nil {
			slog.Error("sql error checking for existing role", "role", name, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected != 0 {
			return nil
		}

		role = schema.Role{Id: uuid.New(), Name: name, Description: description}
		if result := txn.Create(&role); result.Error != nil {
			slog.Error("sql error creating role", "role", name, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		return nil
	})
	if err != nil {
		return schema.Role{}, err
	}
	return role, nil
}

func addInitialAdminToDb(db *gorm.DB, userId uuid.UUID, username, email string, password []byte) error {
	adminRole, err := EnsureRole(db, AdminRoleName, "platform administrator")
	if err != nil {
		return fmt.Errorf("error ensuring admin role: %w", err)
	}
	if _, err := EnsureRole(db, PublisherRoleName, "may publish record sets"); err != nil {
		return fmt.Errorf("error ensuring publisher role: %w", err)
	}

	user := schema.User{
		Id:       userId,
		Username: username,
		Email:    email,
		Roles:    []schema.Role{adminRole},
	}
	if password != nil {
		user.Password = password
	}

	err = db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "id = ? or username = ? or email = ?", userId, username, email)
		if result.Error != nil {
			slog.Error("sql error checking if admin has already been added", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected == 0 {
			result := txn.Create(&user)
			if result.Error != nil {
				slog.Error("sql error creating initial admin user", "error", result.Error)
				return schema.ErrDbAccessFailed
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding initial admin to db: %w", err)
	}

	return nil
}
