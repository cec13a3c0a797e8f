//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"caption-story-api/internal/config"
	"caption-story-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		InferenceSet,
		RedisSet,
		HTTPSet,
	)
	return nil, nil, nil
}
