package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/logger"
)

// Role is the account role sent on registration.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Fullname string `json:"Fullname"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// messageResponse is the answer of the session endpoints.
type messageResponse struct {
	Message string `json:"message"`
}

// Login authenticates the operator. The backend sets the session cookie,
// which the client's jar keeps for every later call.
func (c *Client) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return shared.ErrInvalidInput.WithMessage("Email and password are required")
	}
	if err := c.send(ctx, http.MethodPost, "/user/login", "/user/login",
		loginRequest{Email: email, Password: password}, nil); err != nil {
		logger.WithLogger(ctx, c.logger).Warn("Login failed", zap.String("email", email), zap.Error(err))
		return err
	}
	logger.WithLogger(ctx, c.logger).Info("Logged in", zap.String("email", email))
	return nil
}

// Register creates an account. The backend answers by sending an OTP to the
// email address, which VerifyOTP then confirms.
func (c *Client) Register(ctx context.Context, fullname, email string, role Role, password string) (string, error) {
	if role == "" {
		role = RoleUser
	}
	if role != RoleUser && role != RoleAdmin {
		return "", shared.ErrInvalidInput.WithMessagef("Unknown role %q", role)
	}
	if strings.TrimSpace(fullname) == "" || strings.TrimSpace(email) == "" || password == "" {
		return "", shared.ErrInvalidInput.WithMessage("Full name, email and password are required")
	}
	var out messageResponse
	err := c.send(ctx, http.MethodPost, "/user/register", "/user/register", registerRequest{
		Fullname: strings.TrimSpace(fullname),
		Email:    strings.TrimSpace(email),
		Role:     role,
		Password: password,
	}, &out)
	return out.Message, err
}

// VerifyOTP confirms a registration with the code the backend emailed.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(otp) == "" {
		return "", shared.ErrInvalidInput.WithMessage("Email and OTP are required")
	}
	var out messageResponse
	err := c.send(ctx, http.MethodPost, "/user/verify-otp", "/user/verify-otp",
		verifyOTPRequest{Email: strings.TrimSpace(email), OTP: strings.TrimSpace(otp)}, &out)
	return out.Message, err
}

// Logout ends the session. Local cookies are dropped even when the backend
// call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.send(ctx, http.MethodPost, "/user/logout", "/user/logout", struct{}{}, nil)
	c.clearSession()
	if err != nil {
		logger.WithLogger(ctx, c.logger).Warn("Logout failed", zap.Error(err))
	}
	return err
}

// sessionCookie returns the session cookie currently held for the backend.
func (c *Client) sessionCookie() (*http.Cookie, bool) {
	if c.httpClient.Jar == nil {
		return nil, false
	}
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == c.cookieName && ck.Value != "" {
			return ck, true
		}
	}
	return nil, false
}

// Authenticated reports whether a session cookie is held and, when it is a
// JWT with an expiry, whether that expiry is still ahead.
func (c *Client) Authenticated() bool {
	if _, ok := c.sessionCookie(); !ok {
		return false
	}
	exp, ok := c.ExpiresAt()
	return !ok || time.Now().Before(exp)
}

// ExpiresAt reads the exp claim of the session token. The signature is not
// checked: the backend is the only party that can verify it.
func (c *Client) ExpiresAt() (time.Time, bool) {
	ck, ok := c.sessionCookie()
	if !ok {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(ck.Value, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Client) clearSession() {
	if c.httpClient.Jar == nil {
		return
	}
	expired := &http.Cookie{Name: c.cookieName, Value: "", Path: "/", MaxAge: -1}
	c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{expired})
}
