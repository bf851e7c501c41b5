package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/conferencer/conferencer/internal/apierror"
	"github.com/conferencer/conferencer/internal/identity"
)

// Handler exposes signup, login and profile endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type signupRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
	Surname  string `json:"surname" form:"surname"`
	Phone    string `json:"phone" form:"phone"`
}

type signupResponse struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" query:"email"`
	Password string `json:"password" form:"password" query:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Message   string    `json:"message"`
}

type roleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Authorities []string `json:"authorities"`
}

type profileResponse struct {
	UserID    string        `json:"userId"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Surname   string        `json:"surname"`
	Phone     string        `json:"phone"`
	Role      *roleResponse `json:"role,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Signup registers a new account.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return apierror.Validation("request body must be a JSON object")
	}
	res, err := h.svc.Signup(c.UserContext(), SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Surname:  req.Surname,
		Phone:    req.Phone,
	})
	if err != nil {
		return toAPIError(err)
	}
	return c.Status(http.StatusCreated).JSON(signupResponse{UserID: res.UserID, Message: res.Message})
}

// Login verifies credentials sent in the body or, failing that, as query parameters.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apierror.Validation("request body must be a JSON object")
		}
	}
	if req.Email == "" && req.Password == "" {
		if err := c.QueryParser(&req); err != nil {
			return apierror.Validation("invalid query parameters")
		}
	}
	res, err := h.svc.Login(c.UserContext(), LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return toAPIError(err)
	}
	return c.Status(http.StatusOK).JSON(loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, Message: res.Message})
}

// Me returns the profile of the bearer of the request's token.
func (h *Handler) Me(c *fiber.Ctx) error {
	email, ok := identity.ActorFrom(c.UserContext())
	if !ok {
		return apierror.Unauthorized("missing bearer token")
	}
	user, err := h.svc.Profile(c.UserContext(), email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return apierror.New(http.StatusNotFound, apierror.CodeNotFound, "User not found.")
		}
		return err
	}

	resp := profileResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Surname:   user.Surname,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	}
	if user.Role != nil {
		role := &roleResponse{ID: user.Role.ID, Name: user.Role.Name, Authorities: []string{}}
		for _, a := range user.Role.Authorities {
			role.Authorities = append(role.Authorities, a.Name)
		}
		resp.Role = role
	}
	return c.Status(http.StatusOK).JSON(resp)
}

func toAPIError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return apierror.Validation(err.Error())
	case errors.Is(err, ErrDuplicateUser):
		return apierror.UserAlreadyExists()
	case errors.Is(err, ErrInvalidCredentials):
		return apierror.InvalidCredentials()
	default:
		return err
	}
}
