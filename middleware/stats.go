package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seoaudit/logging"
)

// saveEvery is how many audit requests pass between statistics writes.
const saveEvery = 100

// AuditTargetKey is the context key under which handlers store the URL an
// audit request asked for.
const AuditTargetKey = "auditTarget"

// Stats tracks visitors and audit requests. Audit handlers are the routes in
// auditPaths.
func Stats(stats *logging.Statistics, log *logging.Logger, auditPaths ...string) gin.HandlerFunc {
	tracked := make(map[string]bool, len(auditPaths))
	for _, p := range auditPaths {
		tracked[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if c.Request.Method != http.MethodPost || !tracked[c.FullPath()] {
			return
		}
		loadTime := float64(time.Since(start).Milliseconds())
		stats.TrackAnalysis(c.GetString(AuditTargetKey), loadTime, c.Writer.Status() >= http.StatusBadRequest)

		if stats.Requests()%saveEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					log.Warn("Saving statistics: %v", err)
				}
			}()
		}
	}
}
