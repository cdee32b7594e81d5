package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// IndexPage is served for the site root.
const IndexPage = "basestations.html"

// NewRouter wires the API and the static frontend in webDir. nearby may be
// nil when no database is configured.
func NewRouter(stations *StationsHandler, nearby *NearbyHandler, webDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	api.GET("/stations", stations.List)
	api.GET("/stations/:caster", stations.ListByCaster)
	if nearby != nil {
		api.GET("/nearby", nearby.Nearby)
	}

	r.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(webDir, IndexPage))
	})
	r.NoRoute(gin.WrapH(http.FileServer(http.Dir(webDir))))

	return r
}
