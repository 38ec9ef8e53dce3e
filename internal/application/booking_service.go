package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cindycandyy/fe-kpl/internal/domain/booking"
	"github.com/cindycandyy/fe-kpl/internal/domain/event"
	"github.com/cindycandyy/fe-kpl/internal/domain/selection"
	"github.com/cindycandyy/fe-kpl/internal/pkg/logger"
	"github.com/cindycandyy/fe-kpl/internal/pkg/metrics"
)

// EventProvider はイベントのスナップショット提供元
type EventProvider interface {
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	InvalidateSnapshot(ctx context.Context, eventID string)
}

// SubmissionLocker は同一試行の送信をインスタンス間で直列化する
// 送信中なら booking.ErrSubmissionInProgress を返す
type SubmissionLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type BookingService struct {
	events    EventProvider
	submitter booking.Submitter
	bookings  booking.Repository
	locker    SubmissionLocker
	notifier  booking.Notifier
	metrics   *metrics.Metrics

	submitTimeout time.Duration
	lockTTL       time.Duration
}

type BookingServiceOption func(*BookingService)

// WithSubmissionTimeout は送信サービス呼び出しのタイムアウトを設定する
func WithSubmissionTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) { s.submitTimeout = d }
}

// WithSubmissionLock は分散ロックを設定する
func WithSubmissionLock(l SubmissionLocker, ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = l
		s.lockTTL = ttl
	}
}

func WithNotifier(n booking.Notifier) BookingServiceOption {
	return func(s *BookingService) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) { s.metrics = m }
}

func NewBookingService(events EventProvider, submitter booking.Submitter, bookings booking.Repository, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		events:        events,
		submitter:     submitter,
		bookings:      bookings,
		metrics:       metrics.NewNop(),
		submitTimeout: 10 * time.Second,
		lockTTL:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SubmitInput struct {
	HasSession     bool
	UserID         string
	EventID        string
	TicketTypeID   string
	Quantity       int
	IdempotencyKey string // 空なら生成する
}

// Book は新しい試行で予約を送信する
func (s *BookingService) Book(ctx context.Context, input SubmitInput) (*booking.Booking, error) {
	return s.Submit(ctx, booking.NewAttempt(), input)
}

// Submit は試行の状態を進めながら予約を送信する
// 検証エラーは送信サービスを呼ぶ前に返し、自動リトライはしない
func (s *BookingService) Submit(ctx context.Context, attempt *booking.Attempt, input SubmitInput) (*booking.Booking, error) {
	if err := attempt.Begin(); err != nil {
		s.countBooking("in_progress")
		return nil, err
	}

	log := logger.FromContext(ctx).With(
		zap.String("event_id", input.EventID),
		zap.String("ticket_type_id", input.TicketTypeID),
		zap.Int("quantity", input.Quantity),
	)

	// 認証は選択内容の検証より先に確認する
	if selection.RequiresAuthentication(input.HasSession) {
		return nil, s.reject(attempt, selection.ErrAuthenticationRequired, "unauthenticated")
	}

	ev, err := s.events.GetEvent(ctx, input.EventID)
	if err != nil {
		return nil, s.reject(attempt, err, "rejected")
	}

	// 残数に由来するエラーは、確定済み予約の再送を通すため冪等性チェックの後に返す
	_, quoteErr := selection.QuoteSelection(ev, input.TicketTypeID, input.Quantity)
	if quoteErr != nil && !dependsOnAvailability(quoteErr, input.Quantity) {
		return nil, s.reject(attempt, quoteErr, "rejected")
	}

	req := booking.Request{
		EventID:        ev.ID,
		TicketTypeID:   input.TicketTypeID,
		UserID:         input.UserID,
		Quantity:       input.Quantity,
		IdempotencyKey: input.IdempotencyKey,
	}

	if existing := s.findExisting(ctx, log, req); existing != nil {
		if !existing.Matches(req) {
			if quoteErr != nil {
				return nil, s.reject(attempt, quoteErr, "rejected")
			}
			return nil, s.reject(attempt, booking.ErrIdempotencyKeyReused, "rejected")
		}
		if err := attempt.StartSubmitting(); err != nil {
			return nil, err
		}
		log.Info("既存の予約を返します", zap.String("booking_id", existing.ID))
		attempt.Succeed(existing)
		s.countBooking("succeeded")
		return existing, nil
	}
	if quoteErr != nil {
		return nil, s.reject(attempt, quoteErr, "rejected")
	}

	lockKey := req.UserID + ":" + req.IdempotencyKey
	if req.IdempotencyKey == "" {
		// キーがない場合は同じ選択内容の同時送信を1件にまとめる
		lockKey = fmt.Sprintf("%s:%s:%s:%d", req.UserID, req.EventID, req.TicketTypeID, req.Quantity)
		req.IdempotencyKey = uuid.NewString()
	}
	if err := req.Validate(); err != nil {
		return nil, s.reject(attempt, fmt.Errorf("%w: %w", selection.ErrInvalidInput, err), "rejected")
	}

	unlock := func(context.Context) error { return nil }
	if s.locker != nil {
		unlock, err = s.locker.TryLock(ctx, lockKey, s.lockTTL)
		if err != nil {
			if errors.Is(err, booking.ErrSubmissionInProgress) {
				return nil, s.reject(attempt, err, "in_progress")
			}
			return nil, s.reject(attempt, fmt.Errorf("ロック取得に失敗: %w", err), "rejected")
		}
	}

	if err := attempt.StartSubmitting(); err != nil {
		_ = unlock(context.WithoutCancel(ctx))
		return nil, err
	}

	b, err := s.callSubmitter(ctx, req)
	if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
		log.Warn("ロック解放に失敗", zap.Error(uerr))
	}

	if err != nil {
		failure := fmt.Errorf("%w: %w", booking.ErrSubmissionFailed, err)
		if !attempt.Fail(failure) {
			log.Info("画面が破棄されたため失敗結果を破棄しました")
		}
		s.countBooking("failed")
		log.Warn("予約送信に失敗", zap.Error(err))
		s.notifyFailed(ctx, req, failure)
		return nil, failure
	}

	if !attempt.Succeed(b) {
		log.Info("画面が破棄されたため予約結果を破棄しました", zap.String("booking_id", b.ID))
	}
	s.countBooking("succeeded")
	log.Info("予約が確定しました", zap.String("booking_id", b.ID))

	s.events.InvalidateSnapshot(ctx, ev.ID)
	s.notifySucceeded(ctx, b)
	return b, nil
}

// findExisting は同じ冪等性キーで確定済みの予約を返す。なければ nil
func (s *BookingService) findExisting(ctx context.Context, log *zap.Logger, req booking.Request) *booking.Booking {
	if req.IdempotencyKey == "" || s.bookings == nil {
		return nil
	}
	existing, err := s.bookings.GetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		if !errors.Is(err, booking.ErrBookingNotFound) {
			log.Warn("冪等性チェックに失敗", zap.Error(err))
		}
		return nil
	}
	return existing
}

// dependsOnAvailability は残数が減ったことで生じうるエラーかを返す
func dependsOnAvailability(err error, quantity int) bool {
	if quantity < 1 {
		return false
	}
	return errors.Is(err, selection.ErrSoldOut) || errors.Is(err, selection.ErrInvalidQuantity)
}

// callSubmitter は呼び出し元のキャンセルから切り離して送信する
func (s *BookingService) callSubmitter(ctx context.Context, req booking.Request) (*booking.Booking, error) {
	submitCtx := context.WithoutCancel(ctx)
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(submitCtx, s.submitTimeout)
		defer cancel()
	}

	s.metrics.SubmissionsInFlight.Inc()
	defer s.metrics.SubmissionsInFlight.Dec()

	start := time.Now()
	b, err := s.submitter.Submit(submitCtx, req)
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	s.metrics.SubmissionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return b, err
}

func (s *BookingService) reject(attempt *booking.Attempt, reason error, status string) error {
	_ = attempt.Reject(reason)
	s.countBooking(status)
	return reason
}

func (s *BookingService) notifySucceeded(ctx context.Context, b *booking.Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingSucceeded(context.WithoutCancel(ctx), b); err != nil {
		logger.FromContext(ctx).Warn("予約成功の通知に失敗", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func (s *BookingService) notifyFailed(ctx context.Context, req booking.Request, cause error) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingFailed(context.WithoutCancel(ctx), req, cause); err != nil {
		logger.FromContext(ctx).Warn("予約失敗の通知に失敗", zap.Error(err))
	}
}

func (s *BookingService) countBooking(status string) {
	s.metrics.BookingsTotal.WithLabelValues(status).Inc()
}

// GetBooking は本人の予約を取得する。他人の予約は見つからない扱い
func (s *BookingService) GetBooking(ctx context.Context, id, userID string) (*booking.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, booking.ErrBookingNotFound
	}
	return b, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookings.ListByUser(ctx, userID, limit, offset)
}
