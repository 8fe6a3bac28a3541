package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/jyanimaulik/task-manager/domain"
)

// Register wires up all API routes on the provided Echo instance. deduper may
// be nil, in which case creates are not deduplicated.
func Register(e *echo.Echo, store Storage, deduper Deduper, defaultLimit int, logger *log.Logger) {
	e.GET("/health", health())
	e.POST("/tasks", postTask(store, deduper))
	e.GET("/tasks", getTasks(store, defaultLimit, logger))
	e.GET("/tasks/search", searchTasks(store, defaultLimit, logger))
	e.GET("/tasks/:id", getTaskByID(store))
	e.PUT("/tasks/:id", putTask(store))
	e.DELETE("/tasks/:id", deleteTask(store))
}

func health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}

func postTask(store Storage, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		lr := io.LimitReader(c.Request().Body, taskBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req createTaskRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := domain.ValidateTitle(req.Title); err != nil {
			return c.String(http.StatusUnprocessableEntity, err.Error())
		}
		if err := domain.ValidateDescription(req.Description); err != nil {
			return c.String(http.StatusUnprocessableEntity, err.Error())
		}

		idemKey := c.Request().Header.Get("Idempotency-Key")
		if deduper != nil && idemKey != "" {
			added, err := deduper.Add(ctx, idemKey)
			if err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, "idempotency check failed")
			}
			if !added {
				return c.String(http.StatusConflict, "duplicate request")
			}
		}

		task, err := store.CreateTask(ctx, req.Title, req.Description)
		if err != nil {
			if deduper != nil && idemKey != "" {
				if remErr := deduper.Remove(ctx, idemKey); remErr != nil {
					c.Logger().Errorf("release idempotency key: %v", remErr)
				}
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func getTasks(store Storage, defaultLimit int, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, spanCtx := newTaskRequestMetrics(c.Request().Context(), logger, "/tasks")
		c.SetRequest(c.Request().WithContext(spanCtx))
		metrics.SetRequestID(requestID(c))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		skip, limit, paramErr := pageParams(c, defaultLimit)
		if paramErr != nil {
			metrics.SetErrorStage("invalid_params")
			err = c.String(http.StatusBadRequest, paramErr.Error())
			return err
		}

		fetchStart := time.Now()
		items, total, fetchErr := store.ListTasks(spanCtx, skip, limit)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		metrics.SetItemsReturned(len(items))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, taskPage{Items: items, Total: total, Skip: skip, Limit: limit})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func searchTasks(store Storage, defaultLimit int, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, spanCtx := newTaskRequestMetrics(c.Request().Context(), logger, "/tasks/search")
		c.SetRequest(c.Request().WithContext(spanCtx))
		metrics.SetRequestID(requestID(c))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		// The query parameter is required; an empty provided query matches all.
		if !c.QueryParams().Has("query") {
			metrics.SetErrorStage("missing_query")
			err = c.String(http.StatusUnprocessableEntity, "query is required")
			return err
		}
		query := c.QueryParam("query")

		skip, limit, paramErr := pageParams(c, defaultLimit)
		if paramErr != nil {
			metrics.SetErrorStage("invalid_params")
			err = c.String(http.StatusBadRequest, paramErr.Error())
			return err
		}

		fetchStart := time.Now()
		items, total, fetchErr := store.SearchTasks(spanCtx, query, skip, limit)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		metrics.SetItemsReturned(len(items))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, taskPage{Items: items, Total: total, Skip: skip, Limit: limit})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getTaskByID(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusNotFound, "task not found")
		}
		task, err := store.GetTask(c.Request().Context(), id)
		if err != nil {
			return taskError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func putTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusNotFound, "task not found")
		}

		lr := io.LimitReader(c.Request().Body, taskBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req updateTaskRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		patch := domain.TaskPatch{Title: req.Title, Description: req.Description, IsDone: req.IsDone}
		if err := patch.Validate(); err != nil {
			return c.String(http.StatusUnprocessableEntity, err.Error())
		}

		task, err := store.UpdateTask(c.Request().Context(), id, patch)
		if err != nil {
			return taskError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusNotFound, "task not found")
		}
		if err := store.DeleteTask(c.Request().Context(), id); err != nil {
			return taskError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// taskError maps repository errors onto responses: the not-found signal
// becomes a 404, anything else a 500.
func taskError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrTaskNotFound) {
		return c.String(http.StatusNotFound, "task not found")
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}

func taskIDParam(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// pageParams reads skip and limit, defaulting to 0 and defaultLimit. Values
// must be non-negative integers.
func pageParams(c echo.Context, defaultLimit int) (int, int, error) {
	skip := 0
	if v := strings.TrimSpace(c.QueryParam("skip")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, errors.New("invalid skip")
		}
		skip = n
	}
	limit := defaultLimit
	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = n
	}
	return skip, limit, nil
}
