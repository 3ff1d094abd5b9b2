package server

import (
	"antigravity-gateway/internal/config"
	"antigravity-gateway/internal/handlers/common"
	mw "antigravity-gateway/internal/middleware"
	"antigravity-gateway/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// RegisterAnthropicRoutes mounts the Anthropic Messages-compatible endpoint,
// sharing the OpenAI-compatible key pool since both surfaces front the same
// upstream credentials.
func RegisterAnthropicRoutes(root *gin.RouterGroup, cfg *config.Config, orch *orchestrator.Orchestrator) {
	var auth gin.HandlerFunc
	if cm := config.GetConfigManager(); cm != nil {
		if fc := cm.GetConfig(); fc != nil && len(fc.APIKeys) > 0 {
			auth = mw.MultiKeyAuth(fc.APIKeys)
		}
	}
	if auth == nil {
		auth = mw.UnifiedAuth(mw.AuthConfig{RequiredKey: cfg.Upstream.OpenAIKey, AcceptCookieName: ""})
	}

	v1 := root.Group("/v1")
	v1.Use(auth)
	v1.POST("/messages", func(c *gin.Context) {
		req, err := common.ParseOpenAIRequest(c, "")
		if err != nil {
			common.AbortWithValidationError(c, err)
			return
		}
		orch.Handle(c, orchestrator.Request{
			Dialect: orchestrator.DialectAnthropic,
			Model:   req.Model,
			Body:    req.RawJSON,
			Stream:  req.Stream,
		})
	})
}
