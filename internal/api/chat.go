package api

import (
	"context"      // Context for DB operations
	"errors"       // Error inspection
	"net/http"     // HTTP status codes
	"strconv"      // String conversion
	"strings"      // String manipulation
	"time"         // Read timestamps
	"unicode/utf8" // Message length in characters

	"marketplace/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// OpenRoomRequest is the body of POST /chat/rooms
type OpenRoomRequest struct {
	SellerID  uint  `json:"seller_id" binding:"required"` // Seller to talk to
	ServiceID *uint `json:"service_id"`                   // Optional service the chat is about
}

// SendMessageRequest is the body of POST /chat/rooms/:id/messages
type SendMessageRequest struct {
	Body string `json:"body" binding:"required"` // Message text
}

// RoomSummary is one entry of the caller's inbox
type RoomSummary struct {
	domain.ChatRoom
	CounterpartID   uint   `json:"counterpart_id"`
	CounterpartName string `json:"counterpart_name"`
	Unread          int64  `json:"unread"`
}

// UnreadCounts is the caller's chat badge state
type UnreadCounts struct {
	Messages int64 `json:"unread_messages"`
	Rooms    int   `json:"unread_rooms"`
}

// unreadRoomIDs returns the room of every message addressed to userID that is still unread,
// one entry per message
func unreadRoomIDs(ctx context.Context, db *gorm.DB, userID uint) ([]uint, error) {
	var roomIDs []uint
	// Messages in the caller's rooms sent by someone else
	err := db.WithContext(ctx).Table("messages").
		Joins("JOIN chat_rooms ON chat_rooms.id = messages.room_id").
		Where("(chat_rooms.buyer_id = ? OR chat_rooms.seller_id = ?) AND messages.sender_id <> ? AND messages.read_at IS NULL",
			userID, userID, userID).
		Pluck("messages.room_id", &roomIDs).Error
	return roomIDs, err
}

func countUnread(ctx context.Context, db *gorm.DB, userID uint) (UnreadCounts, error) {
	roomIDs, err := unreadRoomIDs(ctx, db, userID)
	if err != nil {
		return UnreadCounts{}, err
	}
	// Distinct rooms
	rooms := make(map[uint]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		rooms[id] = struct{}{}
	}
	return UnreadCounts{Messages: int64(len(roomIDs)), Rooms: len(rooms)}, nil
}

// UnreadCountHandler returns how many unread messages and rooms the caller has
func UnreadCountHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		counts, err := countUnread(c.Request.Context(), db, userID)
		if err != nil {
			respondError(c, err, "Failed to count unread messages")
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}

// OpenRoomHandler opens a conversation with a seller, reusing the existing room for the same service
func OpenRoomHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyerID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req OpenRoomRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		// Prevent talking to yourself
		if req.SellerID == buyerID {
			badRequest(c, "You cannot message yourself")
			return
		}
		ctx := c.Request.Context()
		var seller domain.User // Seller must exist
		if err := db.WithContext(ctx).Select("id").First(&seller, req.SellerID).Error; err != nil {
			respondError(c, notFoundOr(err, "Seller"), "Failed to open chat")
			return
		}
		room := domain.ChatRoom{BuyerID: buyerID, SellerID: req.SellerID}
		// Tie the room to a service of that seller
		if req.ServiceID != nil {
			var svc domain.Service
			if err := db.WithContext(ctx).Select("id", "seller_id").First(&svc, *req.ServiceID).Error; err != nil {
				respondError(c, notFoundOr(err, "Service"), "Failed to open chat")
				return
			}
			if svc.SellerID != req.SellerID {
				badRequest(c, "Service does not belong to this seller")
				return
			}
			room.ServiceID = svc.ID
		}
		// Reuse the room if it already exists
		var existing domain.ChatRoom
		res := db.WithContext(ctx).
			Where("buyer_id = ? AND seller_id = ? AND service_id = ?", room.BuyerID, room.SellerID, room.ServiceID).
			Limit(1).Find(&existing)
		if res.Error != nil {
			respondError(c, res.Error, "Failed to open chat")
			return
		}
		if res.RowsAffected > 0 {
			c.JSON(http.StatusOK, gin.H{"room": existing})
			return
		}
		// Create room; the unique index catches a concurrent open
		if err := db.WithContext(ctx).Create(&room).Error; err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, err, "Failed to open chat")
				return
			}
			// Lost a race with a concurrent open; return the winner's room
			if err := db.WithContext(ctx).
				Where("buyer_id = ? AND seller_id = ? AND service_id = ?", room.BuyerID, room.SellerID, room.ServiceID).
				First(&existing).Error; err != nil {
				respondError(c, err, "Failed to open chat")
				return
			}
			c.JSON(http.StatusOK, gin.H{"room": existing})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"room": room})
	}
}

// ListRoomsHandler lists the caller's rooms, most recently active first, with per-room unread counts
func ListRoomsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		ctx := c.Request.Context()
		page, pageSize := parsePage(c) // Parse pagination
		query := db.WithContext(ctx).Model(&domain.ChatRoom{}).Where("buyer_id = ? OR seller_id = ?", userID, userID)
		var total int64 // Count for pagination
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count rooms")
			return
		}
		var rooms []domain.ChatRoom // Rooms without messages sort by creation
		if err := query.Order("COALESCE(last_message_at, created_at) desc, id desc").
			Offset((page - 1) * pageSize).Limit(pageSize).Find(&rooms).Error; err != nil {
			respondError(c, err, "Failed to fetch rooms")
			return
		}

		// Unread per room
		roomIDs, err := unreadRoomIDs(ctx, db, userID)
		if err != nil {
			respondError(c, err, "Failed to count unread messages")
			return
		}
		unread := make(map[uint]int64, len(roomIDs))
		for _, id := range roomIDs {
			unread[id]++
		}
		// Look up the other participants' names in one query
		counterpartIDs := make([]uint, 0, len(rooms))
		for i := range rooms {
			counterpartIDs = append(counterpartIDs, rooms[i].Counterpart(userID))
		}
		names := map[uint]string{}
		if len(counterpartIDs) > 0 {
			var users []domain.User
			if err := db.WithContext(ctx).Select("id", "name").Where("id IN ?", counterpartIDs).Find(&users).Error; err != nil {
				respondError(c, err, "Failed to load participants")
				return
			}
			for _, u := range users {
				names[u.ID] = u.Name
			}
		}
		// Build summaries
		items := make([]RoomSummary, len(rooms))
		for i, r := range rooms {
			other := r.Counterpart(userID)
			items[i] = RoomSummary{ChatRoom: r, CounterpartID: other, CounterpartName: names[other], Unread: unread[r.ID]}
		}
		c.JSON(http.StatusOK, newPage(items, page, pageSize, total))
	}
}

// ListMessagesHandler returns up to ?limit messages older than ?before_id, oldest first
func ListMessagesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		roomID, ok := idParam(c, "id") // Parse room id
		if !ok {
			return
		}
		ctx := c.Request.Context()
		// Participants only
		if _, err := loadRoomFor(db.WithContext(ctx), roomID, userID); err != nil {
			respondError(c, err, "Failed to load room")
			return
		}
		limit := 50 // Default page
		if l := c.Query("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
				limit = v
			}
		}
		query := db.WithContext(ctx).Where("room_id = ?", roomID)
		// Cursor for older pages
		if before := c.Query("before_id"); before != "" {
			v, err := strconv.ParseUint(before, 10, 64)
			if err != nil {
				badRequest(c, "Invalid before_id")
				return
			}
			query = query.Where("id < ?", v)
		}
		var msgs []domain.Message
		if err := query.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
			respondError(c, err, "Failed to fetch messages")
			return
		}
		// Newest page first from the DB, oldest first on the wire
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
		if msgs == nil {
			msgs = []domain.Message{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs, "has_more": len(msgs) == limit})
	}
}

// SendMessageHandler posts a message to a room the caller belongs to
func SendMessageHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		roomID, ok := idParam(c, "id") // Parse room id
		if !ok {
			return
		}
		var req SendMessageRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Message cannot be empty")
			return
		}
		// Whitespace-only messages are empty
		body := strings.TrimSpace(req.Body)
		if body == "" {
			badRequest(c, "Message cannot be empty")
			return
		}
		if utf8.RuneCountInString(body) > domain.MaxMessageLength {
			badRequest(c, "Message is too long")
			return
		}
		var msg domain.Message
		// Store, bump and notify atomically
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			room, err := loadRoomFor(tx, roomID, userID)
			if err != nil {
				return err
			}
			msg, err = postMessage(tx, room, userID, body)
			return err
		})
		if err != nil {
			respondError(c, err, "Failed to send message")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": msg})
	}
}

// MarkRoomReadHandler marks every message the caller received in a room as read
func MarkRoomReadHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		roomID, ok := idParam(c, "id") // Parse room id
		if !ok {
			return
		}
		ctx := c.Request.Context()
		// Participants only
		if _, err := loadRoomFor(db.WithContext(ctx), roomID, userID); err != nil {
			respondError(c, err, "Failed to load room")
			return
		}
		// Own messages are never unread for the sender
		res := db.WithContext(ctx).Model(&domain.Message{}).
			Where("room_id = ? AND sender_id <> ? AND read_at IS NULL", roomID, userID).
			Update("read_at", time.Now())
		if res.Error != nil {
			respondError(c, res.Error, "Failed to mark messages read")
			return
		}
		c.JSON(http.StatusOK, gin.H{"marked": res.RowsAffected})
	}
}

// postMessage stores a message, bumps the room and notifies the other participant
func postMessage(tx *gorm.DB, room *domain.ChatRoom, senderID uint, body string) (domain.Message, error) {
	msg := domain.Message{RoomID: room.ID, SenderID: senderID, Body: body}
	if err := tx.Create(&msg).Error; err != nil {
		return msg, err
	}
	// Keep the inbox ordering current
	if err := tx.Model(&domain.ChatRoom{}).Where("id = ?", room.ID).Update("last_message_at", msg.CreatedAt).Error; err != nil {
		return msg, err
	}
	// Notification shows the first 80 characters
	preview := body
	if utf8.RuneCountInString(preview) > 80 {
		preview = string([]rune(preview)[:80]) + "…"
	}
	err := notify(tx, room.Counterpart(senderID), domain.NotifyNewMessage, "New message", preview,
		map[string]any{"room_id": room.ID, "message_id": msg.ID})
	return msg, err
}

// loadRoomFor loads a room the caller participates in; others get 404
func loadRoomFor(db *gorm.DB, roomID, userID uint) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	if err := db.First(&room, roomID).Error; err != nil {
		return nil, notFoundOr(err, "Chat room")
	}
	if !room.HasParticipant(userID) {
		return nil, notFound("Chat room")
	}
	return &room, nil
}
