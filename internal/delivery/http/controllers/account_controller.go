package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"campushub/internal/delivery/http/helpers"
	"campushub/internal/domain"
)

// RequestCodeRequest is the request body for POST /auth/verification-codes.
type RequestCodeRequest struct {
	Email string `json:"email"`
}

// Validate implements Validator.
func (r RequestCodeRequest) Validate() []string {
	if r.Email == "" {
		return []string{"email is required"}
	}
	if !emailRegex.MatchString(strings.TrimSpace(r.Email)) {
		return []string{"email must be a valid email address"}
	}
	return nil
}

// VerifyCodeRequest is the request body for POST /auth/verification-codes/verify.
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Validate implements Validator.
func (r VerifyCodeRequest) Validate() []string {
	var errs []string
	if r.Email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegex.MatchString(strings.TrimSpace(r.Email)) {
		errs = append(errs, "email must be a valid email address")
	}
	if strings.TrimSpace(r.Code) == "" {
		errs = append(errs, "code is required")
	}
	return errs
}

// RequestCodeResponse is the data payload for POST /auth/verification-codes (202).
type RequestCodeResponse struct {
	Status string `json:"status"`
}

// RequestCodeSuccessResponse is the success response envelope for POST /auth/verification-codes.
type RequestCodeSuccessResponse struct {
	Data  RequestCodeResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// VerifyCodeResponse is the data payload for a successful verification.
type VerifyCodeResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      *domain.User `json:"user"`
}

// VerifyCodeSuccessResponse is the success response envelope for POST /auth/verification-codes/verify.
type VerifyCodeSuccessResponse struct {
	Data  VerifyCodeResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// AccountController handles passwordless sign-in through emailed codes.
type AccountController struct {
	Logger  *slog.Logger
	Service domain.AccountService
}

func NewAccountController(logger *slog.Logger, svc domain.AccountService) *AccountController {
	return &AccountController{
		Logger:  logger,
		Service: svc,
	}
}

// RequestCode godoc
// @Summary Request a verification code
// @Description Emails a 6-digit code valid for 10 minutes. One code per email per minute.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RequestCodeRequest true "Email address"
// @Success 202 {object} controllers.RequestCodeSuccessResponse "code sent"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/verification-codes [post]
func (c *AccountController) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.RequestVerificationCode(r.Context(), req.Email); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, RequestCodeResponse{Status: "sent"})
}

// VerifyCode godoc
// @Summary Verify a code and sign in
// @Description Consumes the code, creates the account on first use and returns a bearer token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body VerifyCodeRequest true "Email and code"
// @Success 200 {object} controllers.VerifyCodeSuccessResponse "data contains token and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or invalid_code"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/verification-codes/verify [post]
func (c *AccountController) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := c.Service.VerifyCode(r.Context(), req.Email, strings.TrimSpace(req.Code))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, VerifyCodeResponse{Token: token, TokenType: "Bearer", User: user})
}

// UserSuccessResponse is the success response envelope for GET /me.
type UserSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// GetMe godoc
// @Summary Get current user
// @Description Returns the authenticated user's profile.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UserSuccessResponse "data contains the user"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me [get]
func (c *AccountController) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	user, err := c.Service.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}
