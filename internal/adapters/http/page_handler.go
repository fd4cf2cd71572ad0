package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eyetracktask/eyetrack/internal/board"
	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// PageHandler renders the browser pages
type PageHandler struct {
	authService    ports.AuthService
	boardService   ports.BoardService
	profileService ports.ProfileService
	cookie         SessionCookie
	logger         *logger.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(
	authService ports.AuthService,
	boardService ports.BoardService,
	profileService ports.ProfileService,
	cookie SessionCookie,
	logger *logger.Logger,
) *PageHandler {
	return &PageHandler{
		authService:    authService,
		boardService:   boardService,
		profileService: profileService,
		cookie:         cookie,
		logger:         logger,
	}
}

type loginPage struct {
	SignedIn bool
	Email    string
	Error    string
	Notice   string
}

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Action   string `form:"action"`
}

type boardPage struct {
	SignedIn  bool
	Projects  []entities.Project
	Current   *entities.Project
	CurrentID string
	Query     string
	Filter    entities.TaskStatus
	Statuses  []entities.StatusColumn
	Columns   []board.Column
	Scheduled []board.ScheduledItem
	Today     entities.Date
}

type calendarDay struct {
	Day    int
	Events []board.CalendarEvent
}

type calendarPage struct {
	SignedIn bool
	Month    time.Time
	Prev     string
	Next     string
	Weekdays []string
	Days     []calendarDay
}

type profilePage struct {
	SignedIn bool
	Profile  *entities.UserProfile
}

const monthLayout = "2006-01"

// Login renders the sign-in / sign-up form
func (h *PageHandler) Login(c echo.Context) error {
	return c.Render(http.StatusOK, "login", loginPage{})
}

// LoginSubmit signs in or signs up from the login form and re-renders it
// with the auth error inline.
func (h *PageHandler) LoginSubmit(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusBadRequest, "login", loginPage{Error: "Invalid request format"})
	}
	page := loginPage{Email: form.Email}
	ctx := c.Request().Context()

	if form.Action == "signup" {
		req := ports.SignUpRequest{Email: form.Email, Password: form.Password}
		if err := c.Validate(&req); err != nil {
			page.Error = "Enter a valid email and a password of at least 6 characters"
			return c.Render(http.StatusBadRequest, "login", page)
		}
		if _, err := h.authService.SignUp(ctx, req); err != nil {
			page.Error = authMessage(err)
			return c.Render(StatusFor(err), "login", page)
		}
		page.Notice = "Check your email for the confirmation link"
		return c.Render(http.StatusOK, "login", page)
	}

	req := ports.SignInRequest{Email: form.Email, Password: form.Password}
	if err := c.Validate(&req); err != nil {
		page.Error = "Enter your email and password"
		return c.Render(http.StatusBadRequest, "login", page)
	}
	session, err := h.authService.SignIn(ctx, req)
	if err != nil {
		page.Error = authMessage(err)
		return c.Render(StatusFor(err), "login", page)
	}

	h.cookie.set(c, session.AccessToken)
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout ends the session and returns to the login page
func (h *PageHandler) Logout(c echo.Context) error {
	if userID, err := userIDFromContext(c); err == nil {
		if err := h.authService.SignOut(c.Request().Context(), userID); err != nil {
			h.logger.Warnw("Sign-out failed", "error", err, "user_id", userID)
		}
	}
	h.cookie.clear(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

// AuthCodeError renders the page shown for an invalid confirmation link
func (h *PageHandler) AuthCodeError(c echo.Context) error {
	return c.Render(http.StatusOK, "auth_error", loginPage{})
}

// Board renders the kanban board of the selected project
func (h *PageHandler) Board(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	projects, err := h.boardService.FetchBoard(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	page := boardPage{
		SignedIn: true,
		Projects: projects,
		Query:    c.QueryParam("q"),
		Statuses: entities.StatusColumns,
		Today:    entities.Today(),
	}
	if status, err := entities.ParseTaskStatus(c.QueryParam("status")); err == nil {
		page.Filter = status
	}
	if len(projects) > 0 {
		i, ok := entities.FindProject(projects, c.QueryParam("project"))
		if !ok {
			i = 0
		}
		page.Current = &projects[i]
		page.CurrentID = projects[i].ID
		page.Columns = board.ProjectColumns(projects[i], page.Query, page.Filter)
	}
	page.Scheduled = board.ScheduledTasks(projects, page.Today)

	return c.Render(http.StatusOK, "board", page)
}

// Calendar renders one month of due dates
func (h *PageHandler) Calendar(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	month := time.Now()
	if m := c.QueryParam("month"); m != "" {
		parsed, err := time.Parse(monthLayout, m)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid month")
		}
		month = parsed
	}
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)

	projects, err := h.boardService.FetchBoard(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	events := board.EventsInMonth(board.CalendarEvents(projects), first.Year(), first.Month())

	return c.Render(http.StatusOK, "calendar", calendarPage{
		SignedIn: true,
		Month:    first,
		Prev:     first.AddDate(0, -1, 0).Format(monthLayout),
		Next:     first.AddDate(0, 1, 0).Format(monthLayout),
		Weekdays: []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		Days:     monthGrid(first, events),
	})
}

// monthGrid lays out a month starting on Sunday; leading blanks have Day 0.
func monthGrid(first time.Time, events map[int][]board.CalendarEvent) []calendarDay {
	days := make([]calendarDay, int(first.Weekday()))
	last := first.AddDate(0, 1, -1).Day()
	for d := 1; d <= last; d++ {
		days = append(days, calendarDay{Day: d, Events: events[d]})
	}
	return days
}

// Profile renders the profile of the signed-in user
func (h *PageHandler) Profile(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	profile, err := h.profileService.Get(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Render(http.StatusOK, "profile", profilePage{SignedIn: true, Profile: profile})
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, entities.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, entities.ErrEmailNotConfirmed):
		return "Confirm your email before signing in"
	case errors.Is(err, entities.ErrEmailTaken):
		return "An account with this email already exists"
	}
	return "Something went wrong, please try again"
}
