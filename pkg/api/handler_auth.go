package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const loginTokenTTL = 12 * time.Hour

// loginHandler handles POST /api/auth/login.
func (s *Server) loginHandler(c *echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	subj, err := s.store.GetSubjectByEmail(c.Request().Context(), req.Email)
	if err != nil || !subj.Active {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(subj.PasswordHash), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	now := time.Now()
	claims := authClaims{
		Role: string(subj.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subj.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(loginTokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not issue token")
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// meHandler handles GET /api/auth/users/me.
func (s *Server) meHandler(c *echo.Context) error {
	subj := subjectFrom(c)
	row, err := s.store.GetSubject(c.Request().Context(), subj.ID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, row)
}
