package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"navlens/internal/config"
	"navlens/internal/tokens"
	"navlens/internal/users"
)

const authCookieName = "auth_token"

// rememberTTL is how long a remember-me session stays valid.
const rememberTTL = 7 * 24 * time.Hour

type loginParams struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"remember"`
}

// LoginAction authenticates a username/password pair and sets the
// encrypted session cookie. The response carries no body; the cookie is
// the session.
func LoginAction(ctx *cartridge.Context) error {
	var params loginParams
	if err := ctx.BodyParser(&params); err != nil || params.Username == "" || params.Password == "" {
		ctx.Logger.Warn("Missing username or password")
		return ctx.Status(http.StatusBadRequest).SendString("invalid login request")
	}

	db := ctx.DBManager.GetConnection()
	user, err := users.Authenticate(db, params.Username, params.Password)
	if err != nil {
		ctx.Logger.Warn("Wrong username or password", slog.String("username", params.Username))
		return ctx.Status(http.StatusUnauthorized).SendString("wrong username or password")
	}

	ttl := time.Duration(0)
	if params.Remember {
		ttl = rememberTTL
	}
	token, err := tokens.IssueAuthToken(tokens.AuthSession{
		UserID:     user.ID,
		Username:   user.Username,
		Role:       user.Role,
		RememberMe: params.Remember,
	}, ttl)
	if err != nil {
		ctx.Logger.Error("Failed to issue auth token", slog.Any("error", err))
		return ctx.SendStatus(http.StatusInternalServerError)
	}

	setAuthCookie(ctx, token, params.Remember)
	ctx.Logger.Info("Login success", slog.String("username", user.Username))
	return ctx.SendStatus(http.StatusNoContent)
}

// VerifyAction validates the session cookie and echoes the session
// payload, re-setting the cookie so remembered sessions keep sliding.
func VerifyAction(ctx *cartridge.Context) error {
	token := ctx.Cookies(authCookieName)
	session, err := tokens.ReadAuthToken(token)
	if err != nil {
		return ctx.Status(http.StatusUnauthorized).SendString("unauthorized")
	}

	setAuthCookie(ctx, token, session.RememberMe)
	return ctx.JSON(fiber.Map{
		"id":       session.UserID,
		"username": session.Username,
		"role":     session.Role,
		"remember": session.RememberMe,
	})
}

// LogoutAction discards the session cookie.
func LogoutAction(ctx *cartridge.Context) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return ctx.SendStatus(http.StatusNoContent)
}

func setAuthCookie(ctx *cartridge.Context, token string, remember bool) {
	cookie := &fiber.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   config.GetConfig().IsProduction(),
		SameSite: fiber.CookieSameSiteStrictMode,
	}
	if remember {
		cookie.MaxAge = int(rememberTTL.Seconds())
	}
	ctx.Cookie(cookie)
}
