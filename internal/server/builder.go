package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"antigravity-gateway/internal/config"
	"antigravity-gateway/internal/credential"
	"antigravity-gateway/internal/logging"
	mw "antigravity-gateway/internal/middleware"
	monenh "antigravity-gateway/internal/monitoring"
	"antigravity-gateway/internal/orchestrator"
	"antigravity-gateway/internal/translator"
	"antigravity-gateway/internal/usage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const adminAssetVersion = "20251026"

// Dependencies encapsulates runtime services required to build the HTTP engines.
type Dependencies struct {
	Pool            *credential.Pool
	UsageStore      *usage.Store
	EnhancedMetrics *monenh.EnhancedMetrics
}

// BuildEngines constructs the OpenAI/Anthropic-compatible and Gemini-native
// Gin engines, both wired through the same Orchestrator instance.
func BuildEngines(cfg *config.Config, deps Dependencies) (*gin.Engine, *gin.Engine) {
	// Safety: when remote management is enabled, never allow upstream header passthrough
	if cfg.Security.ManagementAllowRemote && cfg.Security.HeaderPassThrough {
		log.Warn("ManagementAllowRemote=true -> forcing HeaderPassthrough=false for safety")
		cfg.Security.HeaderPassThrough = false
		cfg.HeaderPassThrough = false
	}
	if !cfg.Security.Debug && cfg.Routing.DebugHeaders {
		log.Warn("Debug=false -> disabling RoutingDebugHeaders for safety")
		cfg.Routing.DebugHeaders = false
	}
	metricsEnhanced := deps.EnhancedMetrics
	if metricsEnhanced == nil {
		metricsEnhanced = monenh.NewEnhancedMetrics()
	}
	deps.EnhancedMetrics = metricsEnhanced

	orch := orchestrator.New(cfg, deps.Pool, translator.NewAdapter(), deps.UsageStore, saveInlineImage)

	openaiEngine := buildOpenAIEngine(cfg, deps, orch)
	geminiEngine := buildGeminiEngine(cfg, deps, orch)
	return openaiEngine, geminiEngine
}

// saveInlineImage hands inline-data images back as data URLs: the gateway
// has no object storage configured by default, so this is the ImageSaver
// the Streaming Engine calls instead of writing to disk.
func saveInlineImage(data []byte, mime string) (string, error) {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func buildOpenAIEngine(cfg *config.Config, deps Dependencies, orch *orchestrator.Orchestrator) *gin.Engine {
	engine := gin.New()
	applyStandardEngineSettings(engine, cfg, "openai")
	logging.InstallWebSocketLogging()

	if cfg.ResponseShaping.PprofEnabled {
		registerPprof(engine)
	}

	basePath := cfg.Server.BasePath
	root := engine.Group(basePath)

	RegisterOpenAIRoutes(root, cfg, orch)
	RegisterAnthropicRoutes(root, cfg, orch)

	root.GET("/meta/routes", func(c *gin.Context) {
		c.JSON(http.StatusOK, buildRoutesJSON(cfg))
	})
	registerMetaBasePath(root, cfg)

	if basePath != "" {
		engine.GET(basePath, func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, joinBasePath(cfg.Server.BasePath, "/admin"))
		})
	}
	root.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, joinBasePath(cfg.Server.BasePath, "/admin"))
	})
	root.GET("/login", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, joinBasePath(cfg.Server.BasePath, "/admin"))
	})

	if cfg.Server.WebAdminEnabled {
		root.GET("/admin", func(c *gin.Context) { serveAdminOrLogin(c) })
		root.HEAD("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })
		root.GET("/admin/", func(c *gin.Context) { serveAdminOrLogin(c) })
		root.HEAD("/admin/", func(c *gin.Context) { c.Status(http.StatusOK) })
		registerAdminStatic(root)
		if basePath != "" {
			registerAdminStatic(engine)
		}
	}

	root.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	root.GET("/metrics", mw.MetricsHandler)

	RegisterManagementRoutes(root, cfg, deps)
	return engine
}

func buildGeminiEngine(cfg *config.Config, deps Dependencies, orch *orchestrator.Orchestrator) *gin.Engine {
	engine := gin.New()
	applyStandardEngineSettings(engine, cfg, "gemini")

	basePath := cfg.Server.BasePath
	root := engine.Group(basePath)

	RegisterGeminiRoutes(root, cfg, orch)

	root.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	root.GET("/metrics", mw.MetricsHandler)
	return engine
}

func serveAdminOrLogin(c *gin.Context) {
	if token, err := c.Cookie("mgmt_session"); err != nil || !validateAdminSession(strings.TrimSpace(token)) {
		serveLoginHTML(c)
		return
	}
	serveAdminHTML(c)
}
