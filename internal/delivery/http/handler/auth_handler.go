package handler

import (
	"encoding/json"
	"net/http"

	"puppychop-api/internal/delivery/dto"
	"puppychop-api/internal/usecase"
	"puppychop-api/pkg/response"
	"puppychop-api/pkg/validator"
)

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	validator   *validator.CustomValidator
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, validator *validator.CustomValidator) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		validator:   validator,
	}
}

// IssueToken exchanges the staff API key for a bearer token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req dto.StaffTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	token, err := h.authUsecase.IssueStaffToken(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidCredentials:
			response.Unauthorized(w, "Invalid API key")
		case usecase.ErrStaffAuthDisabled:
			response.Error(w, http.StatusServiceUnavailable, "Staff authentication is not configured", nil)
		default:
			response.InternalServerError(w, "Failed to issue token")
		}
		return
	}

	response.Success(w, http.StatusOK, "Token issued successfully", token)
}
