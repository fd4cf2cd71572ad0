package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// BoardHandler handles project, task and sub-task requests
type BoardHandler struct {
	boardService ports.BoardService
	logger       *logger.Logger
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(boardService ports.BoardService, logger *logger.Logger) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		logger:       logger,
	}
}

// GetBoard godoc
// @Summary Get the board
// @Description All projects of the signed-in user with tasks and sub-tasks nested
// @Tags board
// @Produce json
// @Success 200 {array} entities.Project
// @Failure 401 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /board [get]
func (h *BoardHandler) GetBoard(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	projects, err := h.boardService.FetchBoard(c.Request().Context(), userID)
	if err != nil {
		h.logger.Errorw("Fetch board failed", "error", err, "user_id", userID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, projects)
}

// CreateProject godoc
// @Summary Create a project
// @Tags projects
// @Accept json
// @Produce json
// @Param request body ports.CreateProjectRequest true "Project data"
// @Success 201 {object} entities.Project
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /projects [post]
func (h *BoardHandler) CreateProject(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	var req ports.CreateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.boardService.CreateProject(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Errorw("Create project failed", "error", err, "user_id", userID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, project)
}

// UpdateProject godoc
// @Summary Rename a project or change its icon
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body ports.UpdateProjectRequest true "Fields to change"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /projects/{id} [patch]
func (h *BoardHandler) UpdateProject(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	projectID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.boardService.UpdateProject(c.Request().Context(), userID, projectID, req); err != nil {
		h.logger.Errorw("Update project failed", "error", err, "project_id", projectID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Project updated"})
}

// DeleteProject godoc
// @Summary Delete a project with its tasks
// @Description The last remaining project cannot be deleted
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 204
// @Failure 404 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /projects/{id} [delete]
func (h *BoardHandler) DeleteProject(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	projectID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.boardService.DeleteProject(c.Request().Context(), userID, projectID); err != nil {
		h.logger.Errorw("Delete project failed", "error", err, "project_id", projectID)
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// CreateTask godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *BoardHandler) CreateTask(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.boardService.CreateTask(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Errorw("Create task failed", "error", err, "project_id", req.ProjectID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// UpdateTask godoc
// @Summary Update a task
// @Description Partial update. An empty dueDate clears the due date.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Fields to change"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [patch]
func (h *BoardHandler) UpdateTask(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.boardService.UpdateTask(c.Request().Context(), userID, taskID, req); err != nil {
		h.logger.Errorw("Update task failed", "error", err, "task_id", taskID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task updated"})
}

// DeleteTask godoc
// @Summary Delete a task with its sub-tasks
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *BoardHandler) DeleteTask(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.boardService.DeleteTask(c.Request().Context(), userID, taskID); err != nil {
		h.logger.Errorw("Delete task failed", "error", err, "task_id", taskID)
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// CreateSubTask godoc
// @Summary Add a sub-task
// @Tags subtasks
// @Accept json
// @Produce json
// @Param request body ports.CreateSubTaskRequest true "Sub-task data"
// @Success 201 {object} entities.SubTask
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /subtasks [post]
func (h *BoardHandler) CreateSubTask(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	var req ports.CreateSubTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	subTask, err := h.boardService.CreateSubTask(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Errorw("Create sub-task failed", "error", err, "task_id", req.TaskID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, subTask)
}

// UpdateSubTask godoc
// @Summary Rename or toggle a sub-task
// @Tags subtasks
// @Accept json
// @Produce json
// @Param id path string true "Sub-task ID"
// @Param request body ports.UpdateSubTaskRequest true "Fields to change"
// @Success 200 {object} MessageResponse
// @Security BearerAuth
// @Router /subtasks/{id} [patch]
func (h *BoardHandler) UpdateSubTask(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	subTaskID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateSubTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.boardService.UpdateSubTask(c.Request().Context(), userID, subTaskID, req); err != nil {
		h.logger.Errorw("Update sub-task failed", "error", err, "subtask_id", subTaskID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Sub-task updated"})
}

// DeleteSubTask godoc
// @Summary Delete a sub-task
// @Tags subtasks
// @Param id path string true "Sub-task ID"
// @Success 204
// @Security BearerAuth
// @Router /subtasks/{id} [delete]
func (h *BoardHandler) DeleteSubTask(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	subTaskID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.boardService.DeleteSubTask(c.Request().Context(), userID, subTaskID); err != nil {
		h.logger.Errorw("Delete sub-task failed", "error", err, "subtask_id", subTaskID)
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Calendar godoc
// @Summary Tasks with due dates
// @Description Defaults to the current month
// @Tags calendar
// @Produce json
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {array} ports.CalendarEntry
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /calendar [get]
func (h *BoardHandler) Calendar(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	from, to, err := calendarRange(c.QueryParam("from"), c.QueryParam("to"), entities.Today())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entries, err := h.boardService.Calendar(c.Request().Context(), userID, from, to)
	if err != nil {
		h.logger.Errorw("Calendar failed", "error", err, "user_id", userID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, entries)
}

// calendarRange parses the optional bounds; missing ones default to the
// month containing today.
func calendarRange(fromStr, toStr string, today entities.Date) (entities.Date, entities.Date, error) {
	first := entities.NewDate(today.Year(), today.Month(), 1)
	from, to := first, entities.DateOf(first.AddDate(0, 1, -1))

	if fromStr != "" {
		d, err := entities.ParseDate(fromStr)
		if err != nil {
			return from, to, err
		}
		from = d
	}
	if toStr != "" {
		d, err := entities.ParseDate(toStr)
		if err != nil {
			return from, to, err
		}
		to = d
	}

	return from, to, nil
}
