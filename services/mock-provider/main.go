package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hatch/messaging/services/mock-provider/internal/mock"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}

	store := mock.NewStore(envPercent("MOCK_RATE_LIMIT_PERCENT"), envPercent("MOCK_FAILURE_PERCENT"))

	r := gin.Default()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider endpoints
	r.POST("/sms/send", handleSend(store, "sms"))
	r.POST("/email/send", handleSend(store, "email"))

	// Admin endpoints for testing
	admin := r.Group("/admin")
	{
		admin.GET("/messages", handleListMessages(store))
		admin.POST("/reset", handleReset(store))
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting mock provider on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

// envPercent reads a 0-100 simulation knob from the environment.
func envPercent(name string) int {
	value := os.Getenv(name)
	if value == "" {
		return 0
	}
	percent, err := strconv.Atoi(value)
	if err != nil || percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

func handleSend(store *mock.Store, channel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		if retryAfter, limited := store.RateLimit(); limited {
			if retryAfter != "" {
				c.Header("Retry-After", retryAfter)
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}

		if store.Fail() {
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
			return
		}

		id := store.Record(channel, payload)
		c.JSON(http.StatusOK, gin.H{"status": "sent", "channel": channel, "id": id})
	}
}

func handleListMessages(store *mock.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		messages := store.Messages()
		c.JSON(http.StatusOK, gin.H{"count": len(messages), "messages": messages})
	}
}

func handleReset(store *mock.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		store.Reset()
		c.JSON(http.StatusOK, gin.H{"status": "reset"})
	}
}
