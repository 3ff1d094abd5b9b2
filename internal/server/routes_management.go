package server

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"antigravity-gateway/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// adminSession tracks one authenticated panel login issued via /admin/login.
type adminSession struct {
	expiresAt time.Time
}

var (
	adminSessionsMu sync.Mutex
	adminSessions   = map[string]adminSession{}
)

const adminSessionTTL = 12 * time.Hour

func issueAdminSession() string {
	token := uuid.NewString()
	adminSessionsMu.Lock()
	adminSessions[token] = adminSession{expiresAt: time.Now().Add(adminSessionTTL)}
	adminSessionsMu.Unlock()
	return token
}

func validateAdminSession(token string) bool {
	if token == "" {
		return false
	}
	adminSessionsMu.Lock()
	defer adminSessionsMu.Unlock()
	s, ok := adminSessions[token]
	if !ok {
		return false
	}
	if time.Now().After(s.expiresAt) {
		delete(adminSessions, token)
		return false
	}
	return true
}

func revokeAdminSession(token string) {
	adminSessionsMu.Lock()
	delete(adminSessions, token)
	adminSessionsMu.Unlock()
}

func constantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RegisterManagementRoutes mounts the panel login and the read-only
// credential/usage inspection API consumed by the embedded admin UI.
func RegisterManagementRoutes(root *gin.RouterGroup, cfg *config.Config, deps Dependencies) {
	root.POST("/admin/login", func(c *gin.Context) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, http.StatusBadRequest, "invalid json", err.Error())
			return
		}
		if cfg.Security.PanelUser == "" || !constantTimeEquals(body.Username, cfg.Security.PanelUser) ||
			!constantTimeEquals(body.Password, cfg.Security.PanelPassword) {
			respondError(c, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		token := issueAdminSession()
		c.SetCookie("mgmt_session", token, int(adminSessionTTL.Seconds()), "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	root.POST("/admin/logout", func(c *gin.Context) {
		if token, err := c.Cookie("mgmt_session"); err == nil {
			revokeAdminSession(token)
		}
		c.SetCookie("mgmt_session", "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	mgmt := root.Group("/admin/api")
	mgmt.Use(requireAdminSession())
	mgmt.Use(managementRemoteGuard("/admin/api", cfg))
	if cfg.Security.ManagementReadOnly {
		mgmt.Use(managementReadOnlyGuard())
	}

	mgmt.GET("/credentials", func(c *gin.Context) {
		if deps.Pool == nil {
			c.JSON(http.StatusOK, gin.H{"credentials": []any{}})
			return
		}
		creds := deps.Pool.Enumerate()
		out := make([]map[string]any, 0, len(creds))
		for _, cr := range creds {
			out = append(out, map[string]any{
				"project_id":   cr.ProjectID,
				"email":        cr.Email,
				"enabled":      cr.Enabled,
				"created_at":   cr.CreatedAt,
				"last_used_at": cr.LastUsedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"credentials": out})
	})

	mgmt.GET("/usage/summary", func(c *gin.Context) {
		if deps.UsageStore == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, deps.UsageStore.UsageSummary())
	})

	mgmt.GET("/usage/recent", func(c *gin.Context) {
		if deps.UsageStore == nil {
			c.JSON(http.StatusOK, gin.H{"logs": []any{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": deps.UsageStore.RecentLogs(200)})
	})
}

func requireAdminSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("mgmt_session")
		if err != nil || !validateAdminSession(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
