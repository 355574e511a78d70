package accounts

import (
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// RegisterAccountRoutes mounts the signup, verification and login routes on app
func RegisterAccountRoutes[T any](app router.Router[T], svc *Service, opts ...HTTPControllerOption) *HTTPController {
	controller := NewHTTPController(svc, opts...)
	controller.RegisterRoutes(app)
	return controller
}

type HTTPControllerRoutes struct {
	Signup string
	Verify string
	Resend string
	Login  string
}

type HTTPController struct {
	Debug   bool
	Logger  Logger
	Service *Service
	Routes  *HTTPControllerRoutes
	// LinkBase is the public address verification links point to
	LinkBase string
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func WithLinkBase(base string) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.LinkBase = base
		return c
	}
}

func WithControllerLogger(l Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithDebug(debug bool) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Debug = debug
		return c
	}
}

func NewHTTPController(svc *Service, opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger:  nopLogger{},
		Service: svc,
		Routes: &HTTPControllerRoutes{
			Signup: "/signup",
			Verify: VerificationPath,
			Resend: "/verification/resend",
			Login:  "/login",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing Service in accounts controller...")
	}

	if c.LinkBase == "" {
		panic("Missing LinkBase in accounts controller...")
	}

	return c
}

// RegisterRoutes mounts the account routes on r
func (a *HTTPController) RegisterRoutes(r RouteRegistrar) {
	r.Post(a.Routes.Signup, a.Signup).SetName("account.signup")
	r.Get(a.Routes.Verify+":token", a.Verify).SetName("account.verify")
	r.Post(a.Routes.Resend, a.Resend).SetName("account.verification.resend")
	r.Post(a.Routes.Login, a.Login).SetName("account.login")
}

// SignupRequest is the signup body
type SignupRequest struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 320), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *HTTPController) Signup(ctx router.Context) error {
	payload := new(SignupRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload: %v", err)
		return a.fail(ctx, router.StatusBadRequest, "failed to parse body", nil)
	}

	payload.Email = NormalizeEmail(payload.Email)
	if err := payload.Validate(); err != nil {
		return a.fail(ctx, router.StatusBadRequest, "validation failed", FormatValidationErrorToMap(err))
	}

	if a.Debug {
		a.Logger.Debug("======= ACCOUNT SIGNUP ======\n%s", print.MaybePrettyJSON(map[string]string{
			"email": payload.Email,
		}))
	}

	result, err := a.Service.Signup(ctx.Context(), SignupPayload{
		Email:    payload.Email,
		Password: payload.Password,
	}, a.LinkBase)
	if err != nil {
		return a.handleError(ctx, "signup", err)
	}

	status := router.StatusOK
	if result == SignupCreated {
		status = http.StatusCreated
	}
	return ctx.JSON(status, map[string]any{"result": result.String()})
}

func (a *HTTPController) Verify(ctx router.Context) error {
	result, err := a.Service.VerifyAccount(ctx.Context(), ctx.Param("token"))
	if err != nil {
		return a.handleError(ctx, "verify", err)
	}

	status := router.StatusOK
	if result == VerifyNotFound {
		status = http.StatusNotFound
	}
	return ctx.JSON(status, map[string]any{"result": result.String()})
}

// ResendRequest is the resend verification body
type ResendRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ResendRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *HTTPController) Resend(ctx router.Context) error {
	payload := new(ResendRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("resend parse payload: %v", err)
		return a.fail(ctx, router.StatusBadRequest, "failed to parse body", nil)
	}

	payload.Email = NormalizeEmail(payload.Email)
	if err := payload.Validate(); err != nil {
		return a.fail(ctx, router.StatusBadRequest, "validation failed", FormatValidationErrorToMap(err))
	}

	result, err := a.Service.ResendVerification(ctx.Context(), payload.Email, a.LinkBase)
	if err != nil {
		return a.handleError(ctx, "resend", err)
	}

	status := http.StatusAccepted
	if result == ResendNotFound {
		status = http.StatusNotFound
	}
	return ctx.JSON(status, map[string]any{"result": result.String()})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *HTTPController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.fail(ctx, router.StatusBadRequest, "failed to parse body", nil)
	}

	payload.Email = NormalizeEmail(payload.Email)
	if err := payload.Validate(); err != nil {
		return a.fail(ctx, router.StatusBadRequest, "validation failed", FormatValidationErrorToMap(err))
	}

	res, err := a.Service.CheckCredentials(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.handleError(ctx, "login", err)
	}

	if !res.Matched {
		return a.fail(ctx, router.StatusUnauthorized, "invalid credentials", nil)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"result":     "matched",
		"account_id": res.Account.ID,
	})
}

func (a *HTTPController) handleError(ctx router.Context, op string, err error) error {
	status := StatusFromError(err)
	if status >= router.StatusInternalServerError {
		a.Logger.Error("%s failed: %v", op, err)
		return a.fail(ctx, status, "internal error", nil)
	}

	var meta map[string]any
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		meta = map[string]any{"code": richErr.TextCode}
	}
	return a.fail(ctx, status, err.Error(), meta)
}

func (a *HTTPController) fail(ctx router.Context, status int, message string, details map[string]any) error {
	body := map[string]any{"error": message}
	if len(details) > 0 {
		body["details"] = details
	}
	return ctx.JSON(status, body)
}

// StatusFromError maps rich errors to HTTP status codes
func StatusFromError(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return router.StatusInternalServerError
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryOperation:
		return http.StatusServiceUnavailable
	default:
		return router.StatusInternalServerError
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors by field
func FormatValidationErrorToMap(err error) map[string]any {
	out := map[string]any{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, e := range verrs {
			out[field] = e.Error()
		}
		return out
	}
	out["form"] = fmt.Sprint(err)
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}
