package common

import (
	"net/http"

	"github.com/twinlyai/bot-backend/internal/config"
	pkgHTTP "github.com/twinlyai/bot-backend/pkg/http"
	"go.uber.org/zap"
)

// NewBaseConnector creates a JSON connector for services called directly over HTTP
func NewBaseConnector(cfg config.HTTPClientConfig, logger *zap.Logger) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:  logger,
		BaseURL: cfg.Url,
	}

	return pkgHTTP.NewConnector(
		connCfg,
		append(transportOptions(cfg), pkgHTTP.WithAuthToken(cfg.Token))...,
	)
}

// NewHTTPClient creates a client for SDKs that do their own request encoding.
// Authorization is left to the SDK.
func NewHTTPClient(cfg config.HTTPClientConfig) *http.Client {
	return pkgHTTP.NewClient(transportOptions(cfg)...)
}

func transportOptions(cfg config.HTTPClientConfig) []pkgHTTP.HttpOpts {
	return []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
	}
}
