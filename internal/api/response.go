package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Cloudbox/internal/bridge"
	"github.com/shaiso/Cloudbox/internal/remote"
	"github.com/shaiso/Cloudbox/internal/repo"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeTooLarge           ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeStorageTimeout     ErrorCode = "STORAGE_TIMEOUT"
	ErrCodeStorageError       ErrorCode = "STORAGE_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total,omitempty"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// Accepted отправляет ответ о принятой в работу операции (202).
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// NoContent отправляет ответ без тела (204).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict отправляет ошибку 409.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, ErrCodeConflict, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleRepoError преобразует ошибку репозитория в HTTP ответ.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, repo.ErrNotFound) {
		NotFound(w, notFoundMsg)
		return true
	}

	if errors.Is(err, repo.ErrInvalidReference) {
		NotFound(w, err.Error())
		return true
	}

	InternalError(w, logger, err)
	return true
}

// HandleBridgeError преобразует ошибку хранилища в HTTP ответ.
//
//   - сервис не готов / нет учётных данных / воркер упал — 503
//   - результат не пришёл вовремя — 504
//   - сообщение не найдено — 404
//   - ошибка конкретной команды — 502
func HandleBridgeError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, bridge.ErrNotReady),
		errors.Is(err, bridge.ErrMissingCredentials),
		errors.Is(err, bridge.ErrWorkerCrashed),
		errors.Is(err, bridge.ErrWorkerStopped),
		errors.Is(err, bridge.ErrQueueFull),
		errors.Is(err, remote.ErrNotConnected),
		errors.Is(err, remote.ErrUnauthorized):
		logger.Warn("storage unavailable", "error", err)
		Error(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, err.Error())

	case errors.Is(err, bridge.ErrResultTimeout):
		logger.Warn("storage timeout", "error", err)
		Error(w, http.StatusGatewayTimeout, ErrCodeStorageTimeout, err.Error())

	case errors.Is(err, remote.ErrNotFound):
		NotFound(w, err.Error())

	case errors.Is(err, bridge.ErrTaskIDInUse):
		Conflict(w, err.Error())

	default:
		logger.Error("storage command failed", "error", err)
		Error(w, http.StatusBadGateway, ErrCodeStorageError, err.Error())
	}
	return true
}
