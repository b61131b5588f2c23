package api

// Request DTOs handled by the frontend

type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}
