// Package services holds the REST endpoints that sit next to the GraphQL API:
// account management and health. Tokens issued here are what the GraphQL
// boundary later resolves to a user.
package services

import (
	"errors"
	"net/http"

	"diversity_platform/reporting/auth"
	"diversity_platform/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func NewUserService(db *gorm.DB, userAuth auth.IdentityProvider) UserService {
	return UserService{db: db, userAuth: userAuth}
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/login", s.Login)
	if s.userAuth.AllowDirectSignup() {
		r.Post("/signup", s.Signup)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Get("/info", s.Info)
	})

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserId      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"access_token"`
}

func (s *UserService) Login(w http.ResponseWriter, r *http.Request) {
	var params loginRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	result, err := s.userAuth.LoginWithEmail(params.Email, params.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFoundWithEmail) || errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, "invalid login credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, loginResponse{UserId: result.UserId, AccessToken: result.AccessToken})
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	UserId uuid.UUID `json:"user_id"`
}

func (s *UserService) Signup(w http.ResponseWriter, r *http.Request) {
	var params signupRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	userId, err := s.userAuth.CreateUser(params.Username, params.Email, params.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameAlreadyInUse) || errors.Is(err, auth.ErrEmailAlreadyInUse) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, signupResponse{UserId: userId})
}

type userInfoResponse struct {
	Id       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
}

func (s *UserService) Info(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}

	utils.WriteJsonResponse(w, userInfoResponse{Id: user.Id, Username: user.Username, Email: user.Email, Roles: roles})
}
