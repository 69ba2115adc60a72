package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/api/responses"
	"github.com/storefronthq/storefront-backend/api/validators"
	"github.com/storefronthq/storefront-backend/internal/accounts"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=1,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type userLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type adminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
}

// UserRegisterHandler creates a shopper account.
func UserRegisterHandler(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Register(r.Context(), accounts.RegisterInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusCreated, user)
	}
}

// UserLoginHandler exchanges shopper credentials for a token.
func UserLoginHandler(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var req userLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LoginUser(r.Context(), accounts.UserLoginInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, loginResponse{
			AccessToken: result.Token,
			UserID:      result.PrincipalID,
			Username:    result.Username,
			Email:       result.Email,
		})
	}
}

// AdminLoginHandler exchanges back-office credentials for a token.
func AdminLoginHandler(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var req adminLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LoginAdmin(r.Context(), accounts.AdminLoginInput{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, map[string]string{
			"message":      "login successful",
			"access_token": result.Token,
		})
	}
}
