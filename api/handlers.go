package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

const (
	createScope   = "create-task"
	healthTimeout = 3 * time.Second
)

// Register wires up all API routes on the provided Echo instance. deduper may
// be nil, in which case Idempotency-Key headers are ignored.
func Register(e *echo.Echo, tasks Tasks, store Pinger, deduper Deduper, logger *log.Logger) {
	if logger == nil {
		panic("api.Register: logger is nil")
	}
	e.JSONSerializer = sonicSerializer{}

	g := e.Group("/api")
	g.GET("", root())
	g.GET("/", root())
	g.GET("/tasks", listTasks(tasks, logger))
	g.POST("/tasks", createTask(tasks, deduper, logger))
	g.PUT("/tasks/reorder/batch", reorderTasks(tasks, logger))
	g.PUT("/tasks/:id", updateTask(tasks, logger))
	g.DELETE("/tasks/:id", deleteTask(tasks, logger))

	e.GET("/healthz", healthz(store))
}

func root() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, messageResponse{Message: "To-Do List API"})
	}
}

func healthz(store Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if store == nil {
			return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			metricsFrom(c).Fail("ping", err)
			return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		}
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}

func listTasks(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics := metricsFrom(c)
		start := time.Now()
		list, err := tasks.List(c.Request().Context())
		metrics.ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		metrics.SetTasksReturned(len(list))
		return c.JSON(http.StatusOK, list)
	}
}

func createTask(tasks Tasks, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		body, err := readBody(c)
		if err != nil {
			return respondError(c, logger, err)
		}
		in, err := domain.DecodeTaskCreate(body)
		if err != nil {
			return respondError(c, logger, err)
		}

		key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
		claimed := false
		if key != "" && deduper != nil {
			added, derr := deduper.Add(ctx, createScope, key)
			switch {
			case derr != nil:
				logger.WithError(derr).WithField("key", key).Warn("idempotency check failed; creating without it")
			case !added:
				metricsFrom(c).SetErrorStage("duplicate")
				return c.JSON(http.StatusConflict, errorResponse{Detail: "duplicate request"})
			default:
				claimed = true
			}
		}

		start := time.Now()
		task, err := tasks.Create(ctx, in)
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			if claimed {
				if rerr := deduper.Remove(context.WithoutCancel(ctx), createScope, key); rerr != nil {
					logger.WithError(rerr).WithField("key", key).Error("idempotency rollback failed")
				}
			}
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTask(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := readBody(c)
		if err != nil {
			return respondError(c, logger, err)
		}
		in, err := domain.DecodeTaskUpdate(body)
		if err != nil {
			return respondError(c, logger, err)
		}
		start := time.Now()
		task, err := tasks.Update(c.Request().Context(), c.Param("id"), in)
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := tasks.Delete(c.Request().Context(), c.Param("id"))
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
	}
}

func reorderTasks(tasks Tasks, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := readBody(c)
		if err != nil {
			return respondError(c, logger, err)
		}
		in, err := domain.DecodeTaskReorder(body)
		if err != nil {
			return respondError(c, logger, err)
		}
		start := time.Now()
		err = tasks.Reorder(c.Request().Context(), in)
		metricsFrom(c).ObserveStore(time.Since(start))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Tasks reordered successfully"})
	}
}

var errBodyTooLarge = errors.New("request body too large")

func readBody(c echo.Context) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, requestMaxSize+1))
	if err != nil {
		return nil, &domain.ValidationError{Message: "unreadable body"}
	}
	if len(data) > requestMaxSize {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// respondError maps service errors to status codes and the {"detail": ...} body.
func respondError(c echo.Context, logger *log.Logger, err error) error {
	metrics := metricsFrom(c)
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		metrics.Fail("validation", err)
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: ve.Error()})
	case errors.Is(err, errBodyTooLarge):
		metrics.Fail("body_size", err)
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		metrics.Fail("not_found", err)
		return c.JSON(http.StatusNotFound, errorResponse{Detail: "Task not found"})
	default:
		metrics.Fail("storage", err)
		logger.WithError(err).WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
		}).Error("request failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
	}
}
