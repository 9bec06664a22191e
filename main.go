package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"smscompiler/handlers"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	r := gin.Default()

	// CORS — origins configurable via CORS_ORIGINS env var (comma-separated).
	// Defaults to * for local development; set a specific origin in production.
	originsEnv := os.Getenv("CORS_ORIGINS")
	if originsEnv == "" {
		originsEnv = "*"
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: strings.Split(originsEnv, ","),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/examples", handlers.ListExamples)
		api.POST("/compile", handlers.Compile)
		api.POST("/compile/report", handlers.CompileReport)
	}

	if err := r.Run(*addr); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}
