package server

import (
	"antigravity-gateway/internal/config"
	"antigravity-gateway/internal/handlers/common"
	mw "antigravity-gateway/internal/middleware"
	"antigravity-gateway/internal/models"
	"antigravity-gateway/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// RegisterGeminiRoutes mounts Gemini-native endpoints under the given router
// group, translating each request into an Orchestrator call.
func RegisterGeminiRoutes(root *gin.RouterGroup, cfg *config.Config, orch *orchestrator.Orchestrator) {
	var geminiAuth gin.HandlerFunc
	if cm := config.GetConfigManager(); cm != nil {
		if fc := cm.GetConfig(); fc != nil && len(fc.APIKeys) > 0 {
			geminiAuth = mw.MultiKeyAuth(fc.APIKeys)
		}
	}
	if geminiAuth == nil {
		geminiAuth = mw.UnifiedAuth(mw.AuthConfig{RequiredKey: cfg.Upstream.GeminiKey, AllowMultipleSources: true})
	}

	v1 := root.Group("/v1")
	v1.Use(geminiAuth)
	{
		v1.GET("/models", func(c *gin.Context) { listGeminiModels(c, cfg) })
		v1.GET("/models/:id", func(c *gin.Context) { getGeminiModel(c, cfg) })
		// Gin cannot mix a path param with a literal colon suffix in one
		// segment, so dispatch the trailing :action on a wildcard.
		v1.POST("/models/:model/*action", func(c *gin.Context) {
			handleGeminiAction(c, orch)
		})
	}

	v1beta := root.Group("/v1beta")
	v1beta.Use(geminiAuth)
	{
		v1beta.GET("/models", func(c *gin.Context) { listGeminiModels(c, cfg) })
		v1beta.GET("/models/:id", func(c *gin.Context) { getGeminiModel(c, cfg) })
		v1beta.POST("/models/:model/*action", func(c *gin.Context) {
			handleGeminiAction(c, orch)
		})
	}
}

func handleGeminiAction(c *gin.Context, orch *orchestrator.Orchestrator) {
	model := c.Param("model")
	action := c.Param("action")
	stream := false
	switch action {
	case ":generateContent":
	case ":streamGenerateContent":
		stream = true
	case ":countTokens":
		c.JSON(200, gin.H{"totalTokens": 0})
		return
	default:
		common.AbortWithError(c, 404, "invalid_request_error", "unknown action: "+action)
		return
	}

	req, err := common.ParseGeminiRequest(c, model)
	if err != nil {
		common.AbortWithValidationError(c, err)
		return
	}
	orch.Handle(c, orchestrator.Request{
		Dialect: orchestrator.DialectGemini,
		Model:   req.Model,
		Body:    req.RawJSON,
		Stream:  stream,
	})
}

func listGeminiModels(c *gin.Context, cfg *config.Config) {
	ids := models.ExposedModelIDs(cfg)
	data := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]any{"name": "models/" + id, "displayName": id})
	}
	c.JSON(200, gin.H{"models": data})
}

func getGeminiModel(c *gin.Context, cfg *config.Config) {
	id := c.Param("id")
	for _, m := range models.ExposedModelIDs(cfg) {
		if m == id {
			c.JSON(200, gin.H{"name": "models/" + id, "displayName": id})
			return
		}
	}
	common.AbortWithError(c, 404, "invalid_request_error", "model not found: "+id)
}
