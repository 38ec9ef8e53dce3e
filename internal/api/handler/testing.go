package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/cindycandyy/fe-kpl/internal/api"
)

// NewTestEcho はテスト用のEchoインスタンスを作成する
// エラーは本番と同じハンドラーでJSONに変換される
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}
