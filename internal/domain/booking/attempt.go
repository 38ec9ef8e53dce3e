package booking

import "sync"

// State は予約試行の状態を表す
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateRejected   State = "rejected"
)

// IsTerminal は試行が終了した状態かを返す
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateRejected
}

// IsBusy は送信処理中かを返す
func (s State) IsBusy() bool {
	return s == StateValidating || s == StateSubmitting
}

var transitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateSubmitting, StateRejected},
	StateSubmitting: {StateSucceeded, StateFailed},
	StateSucceeded:  {StateValidating},
	StateFailed:     {StateValidating},
	StateRejected:   {StateValidating},
}

// CanTransition は from から to へ遷移できるかを返す
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Attempt は1つの画面インスタンスにおける予約試行
// Validating/Submitting 中の再送信は拒否される
type Attempt struct {
	mu       sync.Mutex
	state    State
	detached bool
	result   *Booking
	err      error
}

// NewAttempt は Idle 状態の試行を作成する
func NewAttempt() *Attempt {
	return &Attempt{state: StateIdle}
}

// State は現在の状態を返す
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Result は最後に成功した予約と最後のエラーを返す
func (a *Attempt) Result() (*Booking, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, a.err
}

// Begin は新しい試行を開始する
func (a *Attempt) Begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.IsBusy() {
		return ErrSubmissionInProgress
	}
	if a.detached {
		return ErrInvalidTransition
	}
	a.state = StateValidating
	a.result = nil
	a.err = nil
	return nil
}

// Reject は検証エラーで試行を終了する
func (a *Attempt) Reject(reason error) error {
	return a.finish(StateValidating, StateRejected, nil, reason)
}

// StartSubmitting は送信を開始する
func (a *Attempt) StartSubmitting() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !CanTransition(a.state, StateSubmitting) {
		return ErrInvalidTransition
	}
	a.state = StateSubmitting
	return nil
}

// Succeed は送信成功を記録する。切り離し済みの場合は結果を破棄して false を返す
func (a *Attempt) Succeed(b *Booking) bool {
	return a.finish(StateSubmitting, StateSucceeded, b, nil) == nil
}

// Fail は送信失敗を記録する。切り離し済みの場合は結果を破棄して false を返す
func (a *Attempt) Fail(cause error) bool {
	return a.finish(StateSubmitting, StateFailed, nil, cause) == nil
}

// Detach は画面が破棄されたことを記録する
// 以降の送信結果は状態に反映されない（送信自体は取り消されない）
func (a *Attempt) Detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detached = true
}

// Detached は切り離し済みかを返す
func (a *Attempt) Detached() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detached
}

func (a *Attempt) finish(from, to State, b *Booking, err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return ErrInvalidTransition
	}
	if a.state != from {
		return ErrInvalidTransition
	}
	a.state = to
	a.result = b
	a.err = err
	return nil
}
