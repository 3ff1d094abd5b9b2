package server

import (
	"antigravity-gateway/internal/config"
	"antigravity-gateway/internal/handlers/common"
	mw "antigravity-gateway/internal/middleware"
	"antigravity-gateway/internal/models"
	"antigravity-gateway/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// RegisterOpenAIRoutes mounts OpenAI-compatible endpoints under the given
// router group, translating each request into an Orchestrator call.
func RegisterOpenAIRoutes(root *gin.RouterGroup, cfg *config.Config, orch *orchestrator.Orchestrator) {
	var openaiAuth gin.HandlerFunc
	if cm := config.GetConfigManager(); cm != nil {
		if fc := cm.GetConfig(); fc != nil && len(fc.APIKeys) > 0 {
			openaiAuth = mw.MultiKeyAuth(fc.APIKeys)
		}
	}
	if openaiAuth == nil {
		openaiAuth = mw.UnifiedAuth(mw.AuthConfig{RequiredKey: cfg.Upstream.OpenAIKey})
	}

	v1 := root.Group("/v1")
	v1.Use(openaiAuth)

	v1.GET("/models", func(c *gin.Context) { listOpenAIModels(c, cfg) })
	v1.GET("/models/:id", func(c *gin.Context) { getOpenAIModel(c, cfg) })
	v1.POST("/chat/completions", func(c *gin.Context) {
		req, err := common.ParseOpenAIChatRequest(c, "")
		if err != nil {
			common.AbortWithValidationError(c, err)
			return
		}
		orch.Handle(c, orchestrator.Request{
			Dialect: orchestrator.DialectOpenAI,
			Model:   req.Model,
			Body:    req.RawJSON,
			Stream:  req.Stream,
		})
	})
	v1.POST("/completions", func(c *gin.Context) {
		req, err := common.ParseOpenAIRequest(c, "")
		if err != nil {
			common.AbortWithValidationError(c, err)
			return
		}
		orch.Handle(c, orchestrator.Request{
			Dialect: orchestrator.DialectOpenAI,
			Model:   req.Model,
			Body:    req.RawJSON,
			Stream:  req.Stream,
		})
	})
}

func listOpenAIModels(c *gin.Context, cfg *config.Config) {
	ids := models.ExposedModelIDs(cfg)
	data := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]any{"id": id, "object": "model", "owned_by": "antigravity-gateway"})
	}
	c.JSON(200, gin.H{"object": "list", "data": data})
}

func getOpenAIModel(c *gin.Context, cfg *config.Config) {
	id := c.Param("id")
	for _, m := range models.ExposedModelIDs(cfg) {
		if m == id {
			c.JSON(200, gin.H{"id": id, "object": "model", "owned_by": "antigravity-gateway"})
			return
		}
	}
	common.AbortWithError(c, 404, "invalid_request_error", "model not found: "+id)
}
