package lark

import (
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// DefaultAPITimeout bounds one OpenAPI request when none is configured
const DefaultAPITimeout = 30 * time.Second

// SDKClient wraps the Lark SDK client
type SDKClient struct {
	client    *lark.Client
	appID     string
	appSecret string
	logger    *zap.Logger
}

// Config holds Lark client configuration
type Config struct {
	AppID      string
	AppSecret  string
	APITimeout time.Duration
}

// NewSDKClient creates a new Lark SDK client
func NewSDKClient(cfg Config, logger *zap.Logger) *SDKClient {
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = DefaultAPITimeout
	}

	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
		lark.WithReqTimeout(timeout),
	)

	return &SDKClient{
		client:    client,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		logger:    logger,
	}
}

// GetClient returns the underlying Lark SDK client
func (c *SDKClient) GetClient() *lark.Client {
	return c.client
}

// GetAppID returns the app ID
func (c *SDKClient) GetAppID() string {
	return c.appID
}

// GetAppSecret returns the app secret
func (c *SDKClient) GetAppSecret() string {
	return c.appSecret
}
