package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ghdir/ghdir/internal/github"
	"github.com/ghdir/ghdir/internal/version"
)

// Directory 是路由依赖的用户目录仓库，测试中可注入假实现。
type Directory interface {
	PerPage() int
	ListUsers(ctx context.Context, perPage, since int) ([]github.User, error)
	UserDetails(ctx context.Context, login string) (github.UserDetails, error)
	Forget(login string) error
}

// AppOptions controls the dependencies of the Fiber application.
type AppOptions struct {
	Logger    *logrus.Logger
	Directory Directory
}

const (
	contextKeyRequestID = "_ghdir_request_id"
	maxPerPage          = 100
)

// NewApp builds the Fiber application with request-ID middleware, the user
// directory routes and the /-/ diagnostics endpoints.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Directory == nil {
		return nil, errors.New("directory is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	h := &handlers{dir: opts.Directory, logger: opts.Logger}
	app.Get("/users", h.listUsers)
	app.Get("/users/:login", h.userDetails)
	app.Delete("/-/cache/users/:login", h.forgetUser)
	app.Get("/-/version", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"version": version.Full()})
	})

	return app, nil
}

// requestContextMiddleware 生成请求 ID 并在请求结束后输出访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		started := time.Now()
		err := c.Next()

		logger.WithFields(logrus.Fields{
			"action":     "http",
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"request_id": reqID,
			"elapsed_ms": time.Since(started).Milliseconds(),
		}).Info("http_request")
		return err
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

type handlers struct {
	dir    Directory
	logger *logrus.Logger
}

func (h *handlers) listUsers(c fiber.Ctx) error {
	since, err := queryInt(c, "since", 0)
	if err != nil || since < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_since"})
	}
	perPage, err := queryInt(c, "per_page", h.dir.PerPage())
	if err != nil || perPage < 1 || perPage > maxPerPage {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_per_page"})
	}

	users, err := h.dir.ListUsers(c.Context(), perPage, since)
	if err != nil {
		h.logFailure(c, "list_users", err)
		return renderError(c, err)
	}
	if users == nil {
		users = []github.User{}
	}
	return c.JSON(fiber.Map{
		"users":      users,
		"next_since": github.NextSince(users),
	})
}

func (h *handlers) userDetails(c fiber.Ctx) error {
	details, err := h.dir.UserDetails(c.Context(), c.Params("login"))
	if err != nil {
		h.logFailure(c, "user_details", err)
		return renderError(c, err)
	}
	return c.JSON(details)
}

func (h *handlers) forgetUser(c fiber.Ctx) error {
	if err := h.dir.Forget(c.Params("login")); err != nil {
		return renderError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) logFailure(c fiber.Ctx, action string, err error) {
	h.logger.WithFields(logrus.Fields{
		"action":     action,
		"request_id": RequestID(c),
		"status":     statusForError(err),
	}).WithError(err).Warn("directory request failed")
}

func queryInt(c fiber.Ctx, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
