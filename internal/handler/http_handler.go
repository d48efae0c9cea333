package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dave1206/Memory-App-sub000/internal/presence"
	"github.com/Dave1206/Memory-App-sub000/internal/repository"
	"github.com/Dave1206/Memory-App-sub000/internal/service"
)

// HTTPHandler serves the REST collaborator endpoints: conversation listing
// and creation, history pages, notification inbox, presence.
type HTTPHandler struct {
	chat    service.ChatService
	history service.HistoryService
	notify  service.NotificationService
	online  presence.OnlineChecker
}

func NewHTTPHandler(
	chat service.ChatService,
	history service.HistoryService,
	notify service.NotificationService,
	online presence.OnlineChecker,
) *HTTPHandler {
	return &HTTPHandler{
		chat:    chat,
		history: history,
		notify:  notify,
		online:  online,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/conversations", h.listConversations)
	r.POST("/conversations", h.createConversation)
	r.GET("/conversations/:id/messages", h.listMessages)
	r.GET("/notifications/:userId", h.listNotifications)
	r.POST("/notifications/mark-read", h.markNotificationsRead)
	r.DELETE("/notifications", h.deleteNotifications)
	r.GET("/presence/:userId", h.getPresence)
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
}

func (h *HTTPHandler) listConversations(c *gin.Context) {
	userID, ok := parseUintQuery(c, "userId")
	if !ok {
		return
	}

	summaries, err := h.chat.Conversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

type createConversationRequest struct {
	CreatorID uint   `json:"creator_id" binding:"required"`
	MemberIDs []uint `json:"member_ids" binding:"required"`
	Title     string `json:"title"`
}

func (h *HTTPHandler) createConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.chat.CreateConversation(c.Request.Context(), req.CreatorID, req.MemberIDs, req.Title)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *HTTPHandler) listMessages(c *gin.Context) {
	conversationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := parseTimestamp(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before cursor"})
			return
		}
		before = &t
	}

	messages, err := h.history.Messages(c.Request.Context(), uint(conversationID), limit, offset, before)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *HTTPHandler) listNotifications(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	notifications, err := h.notify.ForRecipient(c.Request.Context(), uint(userID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

type notificationIDsRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	IDs    []uint `json:"ids" binding:"required"`
}

func (h *HTTPHandler) markNotificationsRead(c *gin.Context) {
	var req notificationIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notify.MarkRead(c.Request.Context(), req.UserID, req.IDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notifications read"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) deleteNotifications(c *gin.Context) {
	var req notificationIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notify.Delete(c.Request.Context(), req.UserID, req.IDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete notifications"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) getPresence(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"online":  h.online.IsOnline(c.Request.Context(), uint(userID)),
	})
}

func parseUintQuery(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// parseTimestamp accepts unix milliseconds or RFC3339.
func parseTimestamp(raw string) (time.Time, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
