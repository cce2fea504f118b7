package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/kbukum/usersvc/database/query"
	apperrors "github.com/kbukum/usersvc/errors"
	"github.com/kbukum/usersvc/server"
	"github.com/kbukum/usersvc/server/middleware"
	"github.com/kbukum/usersvc/users"
)

// Token is the body returned by the login and signup endpoints.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// credentialsForm is the OAuth2 password-flow form.
type credentialsForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (a *App) routes(r *gin.RouterGroup) {
	r.GET("", a.root)
	r.POST("/token", a.login)
	r.POST("/signup", a.signup)

	v1 := r.Group("/v1/users", middleware.Auth(a.validator), a.currentUser())
	v1.GET("/me", middleware.RequirePermission(a.checker, PermReadSelf, role), a.me)

	admin := v1.Group("", middleware.RequirePermission(a.checker, PermUsersAdmin, role))
	admin.GET("", a.listUsers)
	admin.POST("", a.createUser)
	admin.GET("/:id", a.getUser)
	admin.PUT("/:id", a.updateUser)
	admin.DELETE("/:id", a.deleteUser)
}

func (a *App) root(c *gin.Context) {
	server.RespondOK(c, gin.H{"message": "Hello World"})
}

func (a *App) login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		abort(c, bindError(err))
		return
	}
	u, err := scope(c).Users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		abort(c, err)
		return
	}
	a.respondToken(c, u)
}

func (a *App) signup(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		abort(c, bindError(err))
		return
	}
	u, err := scope(c).Users.SignUp(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		abort(c, err)
		return
	}
	a.respondToken(c, u)
}

func (a *App) respondToken(c *gin.Context, u *users.User) {
	token, err := a.IssueToken(u)
	if err != nil {
		abort(c, apperrors.Internal(err))
		return
	}
	server.RespondOK(c, Token{AccessToken: token, TokenType: "bearer"})
}

func (a *App) me(c *gin.Context) {
	server.RespondOK(c, scope(c).User)
}

func (a *App) listUsers(c *gin.Context) {
	params := query.Parse(c.Request.URL.Query(), users.ListConfig)
	res, err := scope(c).Users.ListUsers(c.Request.Context(), params)
	if err != nil {
		abort(c, err)
		return
	}
	if res.Data == nil {
		res.Data = []users.User{}
	}
	c.Header("Content-Range", res.ContentRange("users"))
	server.RespondOK(c, res.Data)
}

func (a *App) createUser(c *gin.Context) {
	var in users.UserCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		abort(c, bindError(err))
		return
	}
	u, err := scope(c).Users.CreateUser(c.Request.Context(), in)
	if err != nil {
		abort(c, err)
		return
	}
	server.RespondCreated(c, u)
}

func (a *App) getUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	u, err := scope(c).Users.GetUser(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	server.RespondOK(c, u)
}

func (a *App) updateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var in users.UserUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		abort(c, bindError(err))
		return
	}
	u, err := scope(c).Users.UpdateUser(c.Request.Context(), id, in)
	if err != nil {
		abort(c, err)
		return
	}
	server.RespondOK(c, u)
}

func (a *App) deleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	u, err := scope(c).Users.DeleteUser(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	server.RespondOK(c, u)
}

func userID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		abort(c, apperrors.InvalidInput("id", "must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

func abort(c *gin.Context, err error) {
	server.RespondWithError(c, err)
}

func unauthorized() *apperrors.AppError {
	return apperrors.Unauthorized(middleware.CredentialsError)
}

func inactive() *apperrors.AppError {
	return apperrors.InactiveUser()
}

// bindError turns binding failures into a validation error naming the
// offending fields.
func bindError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation("Malformed request body")
	}
	fields := make(map[string]any, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		fields[name] = fe.Tag()
		names = append(names, name)
	}
	return apperrors.Validation("Invalid or missing fields: " + strings.Join(names, ", ")).WithDetails(fields)
}
