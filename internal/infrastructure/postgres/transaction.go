package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/cindycandyy/fe-kpl/internal/domain/transaction"
)

// txWrapper は sqlx.Tx を transaction.Tx として扱う
type txWrapper struct {
	*sqlx.Tx
}

// TxManager は sqlx.DB を使用したトランザクションマネージャー
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txWrapper{Tx: tx}, nil
}

// unwrapTx は transaction.Tx から sqlx.Tx を取り出す
func unwrapTx(tx transaction.Tx) *sqlx.Tx {
	if w, ok := tx.(*txWrapper); ok {
		return w.Tx
	}
	return nil
}

var _ transaction.Manager = (*TxManager)(nil)
