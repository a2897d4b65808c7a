package taskapp

import (
	"context"
	"io"

	"github.com/Buanaoda/task-app/middleware/bearerware"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// ControllerRoutes holds the mount points for the HTTP API.
type ControllerRoutes struct {
	Users  string
	Tasks  string
	Login  string
	Logout string
}

// Controller exposes the account and task operations over a fiber app
// as a JSON API.
type Controller struct {
	Logger   Logger
	Accounts *Accounts
	Tasks    TaskStore
	Avatars  AvatarProcessor
	Routes   *ControllerRoutes

	contextKey      string
	tokenContextKey string
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAvatarProcessor(p AvatarProcessor) ControllerOption {
	return func(c *Controller) *Controller {
		if p != nil {
			c.Avatars = p
		}
		return c
	}
}

func NewController(accounts *Accounts, tasks TaskStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:   defLogger{},
		Accounts: accounts,
		Tasks:    tasks,
		Avatars:  PNGAvatarProcessor{},
		Routes: &ControllerRoutes{
			Users:  "/users",
			Tasks:  "/tasks",
			Login:  "/users/login",
			Logout: "/users/logout",
		},
		contextKey:      "user",
		tokenContextKey: "token",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Accounts == nil {
		panic("Missing Accounts in controller...")
	}

	if c.Tasks == nil {
		panic("Missing TaskStore in controller...")
	}

	return c
}

// RegisterRoutes mounts every route on the app. Routes that operate on
// the caller's own account or tasks sit behind the bearer middleware.
func (h *Controller) RegisterRoutes(app *fiber.App) {
	guard := bearerware.New(bearerware.Config{
		ContextKey:      h.contextKey,
		TokenContextKey: h.tokenContextKey,
		Authenticate: func(ctx context.Context, token string) (any, string, error) {
			return h.Accounts.AuthenticateToken(ctx, token)
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			if user, ok := c.Locals(h.contextKey).(*User); ok {
				ctx := WithUser(c.UserContext(), user)
				if token, ok := c.Locals(h.tokenContextKey).(string); ok {
					ctx = WithToken(ctx, token)
				}
				c.SetUserContext(ctx)
			}
			return c.Next()
		},
	})

	app.Post(h.Routes.Users, h.Signup)
	app.Post(h.Routes.Login, h.Login)

	app.Post(h.Routes.Logout, guard, h.Logout)
	app.Post(h.Routes.Logout+"All", guard, h.LogoutAll)

	app.Get(h.Routes.Users+"/me", guard, h.Me)
	app.Patch(h.Routes.Users+"/me", guard, h.UpdateMe)
	app.Delete(h.Routes.Users+"/me", guard, h.DeleteMe)

	app.Post(h.Routes.Users+"/me/avatar", guard, h.UploadAvatar)
	app.Delete(h.Routes.Users+"/me/avatar", guard, h.DeleteAvatar)
	app.Get(h.Routes.Users+"/:id/avatar", h.GetAvatar)
	app.Get(h.Routes.Users+"/:id", h.GetUser)

	app.Post(h.Routes.Tasks, guard, h.CreateTask)
	app.Get(h.Routes.Tasks, guard, h.ListTasks)
	app.Get(h.Routes.Tasks+"/:id", guard, h.GetTask)
	app.Patch(h.Routes.Tasks+"/:id", guard, h.UpdateTask)
	app.Delete(h.Routes.Tasks+"/:id", guard, h.DeleteTask)
}

// CurrentUser returns the authenticated user the middleware stored in
// the request locals.
func (h *Controller) CurrentUser(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(h.contextKey).(*User)
	return user, ok && user != nil
}

// CurrentToken returns the raw token the request authenticated with.
func (h *Controller) CurrentToken(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(h.tokenContextKey).(string)
	return token, ok && token != ""
}

func (h *Controller) Signup(c *fiber.Ctx) error {
	input := SignupInput{}
	if err := c.BodyParser(&input); err != nil {
		return h.fail(c, ErrInvalidCredential)
	}

	user, token, err := h.Accounts.Signup(c.UserContext(), input)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (h *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return h.fail(c, ErrInvalidCredential)
	}

	user, token, err := h.Accounts.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (h *Controller) Logout(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	token, tok := h.CurrentToken(c)
	if !ok || !tok {
		return h.fail(c, ErrUnauthenticated)
	}

	if err := h.Accounts.LogoutOne(c.UserContext(), user, token); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *Controller) LogoutAll(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	if err := h.Accounts.LogoutAll(c.UserContext(), user); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *Controller) Me(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}
	return c.JSON(user)
}

func (h *Controller) GetUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	user, err := h.Accounts.GetUser(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(user)
}

func (h *Controller) UpdateMe(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	updates := map[string]any{}
	if err := c.BodyParser(&updates); err != nil {
		return h.fail(c, ErrInvalidUpdate)
	}

	user, err := h.Accounts.UpdateFields(c.UserContext(), user, updates)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(user)
}

func (h *Controller) DeleteMe(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	if err := h.Accounts.Delete(c.UserContext(), user); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(user)
}

func (h *Controller) UploadAvatar(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	header, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "please upload an avatar",
		})
	}

	file, err := header.Open()
	if err != nil {
		return h.fail(c, errors.Wrap(err, errors.CategoryBadInput, "failed to read upload"))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return h.fail(c, errors.Wrap(err, errors.CategoryBadInput, "failed to read upload"))
	}

	avatar, err := h.Avatars.Process(data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.Accounts.SetAvatar(c.UserContext(), user, avatar); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *Controller) DeleteAvatar(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	if len(user.Avatar) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no avatar picture found",
		})
	}

	if err := h.Accounts.SetAvatar(c.UserContext(), user, nil); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *Controller) GetAvatar(c *fiber.Ctx) error {
	user, err := h.Accounts.GetUser(c.UserContext(), c.Params("id"))
	if err != nil || len(user.Avatar) == 0 {
		return c.SendStatus(fiber.StatusNotFound)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(user.Avatar)
}

// TaskInput is the payload for creating and updating tasks.
type TaskInput struct {
	Description string `form:"description" json:"description"`
	Completed   bool   `form:"completed" json:"completed"`
}

func (h *Controller) CreateTask(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	input := TaskInput{}
	if err := c.BodyParser(&input); err != nil {
		return h.fail(c, ErrInvalidUpdate)
	}

	task, err := h.Accounts.CreateTask(c.UserContext(), user, input.Description, input.Completed)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *Controller) ListTasks(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	tasks, err := h.Tasks.ListByOwner(c.UserContext(), user.ID.String())
	if err != nil {
		return h.fail(c, err)
	}

	if completed := c.Query("completed"); completed != "" {
		want := completed == "true"
		filtered := make([]*Task, 0, len(tasks))
		for _, task := range tasks {
			if task.Completed == want {
				filtered = append(filtered, task)
			}
		}
		tasks = filtered
	}

	return c.JSON(tasks)
}

func (h *Controller) GetTask(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	task, err := h.ownedTask(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(task)
}

func (h *Controller) UpdateTask(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	updates := map[string]any{}
	if err := c.BodyParser(&updates); err != nil {
		return h.fail(c, ErrInvalidUpdate)
	}

	task, err := h.ownedTask(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	task, err = h.Accounts.UpdateTaskFields(c.UserContext(), task, updates)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(task)
}

func (h *Controller) DeleteTask(c *fiber.Ctx) error {
	user, ok := h.CurrentUser(c)
	if !ok {
		return h.fail(c, ErrUnauthenticated)
	}

	task, err := h.ownedTask(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.Tasks.Delete(c.UserContext(), task); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(task)
}

// ownedTask fetches a task and hides other users' tasks behind a not
// found error so ownership cannot be probed.
func (h *Controller) ownedTask(ctx context.Context, user *User, id string) (*Task, error) {
	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.OwnerID != user.ID {
		return nil, errors.New("record not found", errors.CategoryNotFound)
	}

	return task, nil
}

func (h *Controller) fail(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		h.Logger.Error("request failed", "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": publicMessage(err, status),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrInvalidUpdate):
		return fiber.StatusBadRequest
	case errors.IsNotFound(err), repository.IsRecordNotFound(err):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func publicMessage(err error, status int) string {
	if status == fiber.StatusInternalServerError {
		return "internal server error"
	}
	if status == fiber.StatusNotFound {
		return "record not found"
	}

	var rich *errors.Error
	if errors.As(err, &rich) && rich.Message != "" {
		return rich.Message
	}
	return err.Error()
}
