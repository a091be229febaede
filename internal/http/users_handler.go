package http

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"navlens/internal/http/middleware"
	"navlens/internal/users"
)

type userView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Root     bool   `json:"root"`
}

// UsersIndexAction lists accounts without their credentials.
func UsersIndexAction(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	all, err := users.ListUsers(db)
	if err != nil {
		ctx.Logger.Error("Failed to list users", slog.Any("error", err))
		return ctx.SendStatus(http.StatusInternalServerError)
	}

	views := make([]userView, len(all))
	for i, user := range all {
		views[i] = userView{ID: user.ID, Username: user.Username, Role: user.Role, Root: user.Root}
	}
	return ctx.JSON(views)
}

type createUserParams struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
}

// UserCreateAction registers a new account.
func UserCreateAction(ctx *cartridge.Context) error {
	var params createUserParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).SendString("invalid request")
	}
	if !users.ValidateUsername(params.Username) {
		return ctx.Status(http.StatusBadRequest).SendString("invalid username")
	}
	if !users.ValidatePassword(params.Password) {
		return ctx.Status(http.StatusBadRequest).SendString("invalid password")
	}

	db := ctx.DBManager.GetConnection()
	user, err := users.CreateUser(db, params.Username, params.Password, params.Role)
	if err != nil {
		if errors.Is(err, users.ErrUserExists) {
			return ctx.Status(http.StatusConflict).SendString("username taken")
		}
		ctx.Logger.Error("Failed to create user", slog.Any("error", err))
		return ctx.SendStatus(http.StatusInternalServerError)
	}

	ctx.Logger.Info("User created", slog.String("username", user.Username))
	return ctx.Status(http.StatusCreated).JSON(userView{
		ID: user.ID, Username: user.Username, Role: user.Role,
	})
}

// UserDeleteAction removes a non-root account by id.
func UserDeleteAction(ctx *cartridge.Context) error {
	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return ctx.Status(http.StatusBadRequest).SendString("invalid user id")
	}

	db := ctx.DBManager.GetConnection()
	if err := users.DeleteUser(db, uint(id)); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return ctx.Status(http.StatusNotFound).SendString("user not found")
		}
		ctx.Logger.Error("Failed to delete user", slog.Any("error", err))
		return ctx.SendStatus(http.StatusInternalServerError)
	}
	return ctx.SendStatus(http.StatusNoContent)
}

type changePasswordParams struct {
	Password string `json:"password" form:"password"`
}

// ChangePasswordAction updates the password of the authenticated account.
func ChangePasswordAction(ctx *cartridge.Context) error {
	session := middleware.SessionFromLocals(ctx.Ctx)
	if session == nil {
		return ctx.SendStatus(http.StatusUnauthorized)
	}

	var params changePasswordParams
	if err := ctx.BodyParser(&params); err != nil || !users.ValidatePassword(params.Password) {
		return ctx.Status(http.StatusBadRequest).SendString("invalid password")
	}

	db := ctx.DBManager.GetConnection()
	if err := users.ChangePassword(db, session.Username, params.Password); err != nil {
		ctx.Logger.Error("Failed to change password", slog.Any("error", err))
		return ctx.SendStatus(http.StatusInternalServerError)
	}

	ctx.Logger.Info("Password changed", slog.String("username", session.Username))
	return ctx.SendStatus(http.StatusNoContent)
}
