package handlers

import "github.com/gin-gonic/gin"

// getMemberID extracts the authenticated member ID from gin context.
func getMemberID(c *gin.Context) uint64 {
	val, exists := c.Get("memberID")
	if !exists {
		return 0
	}
	id, ok := val.(uint64)
	if !ok {
		return 0
	}
	return id
}

// getMerchantID extracts the authenticated merchant ID from gin context.
func getMerchantID(c *gin.Context) uint64 {
	val, exists := c.Get("merchantID")
	if !exists {
		return 0
	}
	id, ok := val.(uint64)
	if !ok {
		return 0
	}
	return id
}
