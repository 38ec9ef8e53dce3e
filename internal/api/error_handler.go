package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/cindycandyy/fe-kpl/internal/domain/booking"
	"github.com/cindycandyy/fe-kpl/internal/domain/event"
	"github.com/cindycandyy/fe-kpl/internal/domain/selection"
	"github.com/cindycandyy/fe-kpl/internal/pkg/logger"
)

// ログイン画面への誘導先
const LoginPath = "/auth/login"

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     int    `json:"code,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type errorMapping struct {
	target error
	status int
	kind   string
}

// 先に一致したものを採用する（SubmissionFailed は原因側を優先）
var errorMappings = []errorMapping{
	{selection.ErrAuthenticationRequired, http.StatusUnauthorized, "authentication_required"},
	{booking.ErrSubmissionInProgress, http.StatusConflict, "submission_in_progress"},
	{booking.ErrIdempotencyKeyReused, http.StatusConflict, "idempotency_key_reused"},
	{booking.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{selection.ErrSoldOut, http.StatusConflict, "sold_out"},
	{selection.ErrUnknownTicketType, http.StatusNotFound, "unknown_ticket_type"},
	{event.ErrEventNotFound, http.StatusNotFound, "not_found"},
	{booking.ErrBookingNotFound, http.StatusNotFound, "not_found"},
	{selection.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{selection.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{event.ErrEventTitleRequired, http.StatusBadRequest, "invalid_input"},
	{event.ErrInvalidMaxTicketsPerUser, http.StatusBadRequest, "invalid_input"},
	{event.ErrNoTicketTypes, http.StatusBadRequest, "invalid_input"},
	{event.ErrDuplicateTicketType, http.StatusBadRequest, "invalid_input"},
	{event.ErrTicketTypeIDRequired, http.StatusBadRequest, "invalid_input"},
	{event.ErrInvalidPrice, http.StatusBadRequest, "invalid_input"},
	{event.ErrInvalidQuota, http.StatusBadRequest, "invalid_input"},
	{event.ErrInvalidAvailability, http.StatusBadRequest, "invalid_input"},
	{event.ErrEventUnavailable, http.StatusServiceUnavailable, "unavailable"},
	{booking.ErrSubmissionFailed, http.StatusBadGateway, "submission_failed"},
}

// StatusFor はドメインエラーに対応するHTTPステータスと種別を返す
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.kind
		}
	}
	return http.StatusInternalServerError, "internal"
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    int
		kind    string
		message string
	)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		code, kind = StatusFor(err)
		message = err.Error()
		if code == http.StatusInternalServerError {
			message = "内部サーバーエラー"
		}
	}

	log := logger.FromContext(c.Request().Context())
	if code >= 500 {
		log.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	resp := ErrorResponse{Error: message, Code: code, Kind: kind}
	if errors.Is(err, selection.ErrAuthenticationRequired) {
		resp.Redirect = LoginPath
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		log.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
