package handlers

import (
	"github.com/gin-gonic/gin"

	"friendgraph/database"
	"friendgraph/middleware"
	"friendgraph/models"
	"friendgraph/utils"
	"friendgraph/websocket"
)

type FriendRequestBody struct {
	UserID    string `json:"user_id" binding:"required"`
	RequestID string `json:"request_id"`
}

func GetFriends(c *gin.Context) {
	userID := middleware.GetUserID(c)

	rows, err := database.DB.Query(`
		SELECT f.id, f.user_a, f.user_b, f.created_at,
			   u.id, u.username, u.nickname, u.created_at
		FROM friendships f
		JOIN users u ON u.id = IF(f.user_a = ?, f.user_b, f.user_a)
		WHERE ? IN (f.user_a, f.user_b)
		ORDER BY u.nickname
	`, userID, userID)
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}
	defer rows.Close()

	friends := []models.FriendWithUser{}
	for rows.Next() {
		var f models.FriendWithUser
		var user models.User
		if err := rows.Scan(
			&f.ID, &f.UserA, &f.UserB, &f.CreatedAt,
			&user.ID, &user.Username, &user.Nickname, &user.CreatedAt,
		); err != nil {
			continue
		}
		f.Friend = *user.ToResponse()
		friends = append(friends, f)
	}

	utils.Success(c, friends)
}

// GetFriendRequests returns both pending directions, each decorated with the
// counterpart's profile.
func GetFriendRequests(c *gin.Context) {
	userID := middleware.GetUserID(c)

	pending, err := Graph.ListPending(c.Request.Context(), userID)
	if err != nil {
		utils.InternalError(c, "failed to load pending requests")
		return
	}

	utils.Success(c, gin.H{
		"incoming": decorateRequests(pending.Incoming, userID),
		"outgoing": decorateRequests(pending.Outgoing, userID),
	})
}

func decorateRequests(requests []models.FriendRequest, userID string) []models.RequestWithUser {
	out := []models.RequestWithUser{}
	for _, r := range requests {
		otherID := r.FromUserID
		if otherID == userID {
			otherID = r.ToUserID
		}

		var user models.User
		err := database.DB.QueryRow(
			"SELECT id, username, nickname, created_at FROM users WHERE id = ?",
			otherID,
		).Scan(&user.ID, &user.Username, &user.Nickname, &user.CreatedAt)
		if err != nil {
			continue
		}

		out = append(out, models.RequestWithUser{FriendRequest: r, User: *user.ToResponse()})
	}
	return out
}

func GetFriendStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	otherID := c.Param("user_id")

	status, err := Graph.CheckStatus(c.Request.Context(), userID, otherID)
	if err != nil {
		utils.RelationshipError(c, err, nil)
		return
	}

	utils.Success(c, gin.H{"status": status})
}

func SendFriendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req FriendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var exists bool
	err := database.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", req.UserID).Scan(&exists)
	if err != nil || !exists {
		utils.NotFound(c, "user not found")
		return
	}

	status, err := Graph.SendRequest(c.Request.Context(), userID, req.UserID)
	if err != nil {
		utils.RelationshipError(c, err, status)
		return
	}

	websocket.NotifyUsers("friend.request", gin.H{"from": userID, "status": status}, req.UserID)
	utils.Success(c, gin.H{"status": status})
}

func CancelFriendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	otherID := c.Param("user_id")

	status, err := Graph.CancelRequest(c.Request.Context(), userID, otherID, c.Query("request_id"))
	if err != nil {
		utils.RelationshipError(c, err, status)
		return
	}

	websocket.NotifyUsers("friend.cancel", gin.H{"from": userID, "status": status}, otherID)
	utils.Success(c, gin.H{"status": status})
}

func AcceptFriendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	otherID := c.Param("user_id")

	status, err := Graph.AcceptRequest(c.Request.Context(), userID, otherID, c.Query("request_id"))
	if err != nil {
		utils.RelationshipError(c, err, status)
		return
	}

	websocket.NotifyUsers("friend.accept", gin.H{"from": userID, "status": status}, otherID)
	utils.Success(c, gin.H{"status": status})
}

func RejectFriendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	otherID := c.Param("user_id")

	status, err := Graph.RejectRequest(c.Request.Context(), userID, otherID, c.Query("request_id"))
	if err != nil {
		utils.RelationshipError(c, err, status)
		return
	}

	websocket.NotifyUsers("friend.reject", gin.H{"from": userID, "status": status}, otherID)
	utils.Success(c, gin.H{"status": status})
}

func DeleteFriend(c *gin.Context) {
	userID := middleware.GetUserID(c)
	otherID := c.Param("user_id")

	status, err := Graph.RemoveFriend(c.Request.Context(), userID, otherID)
	if err != nil {
		utils.RelationshipError(c, err, status)
		return
	}

	websocket.NotifyUsers("friend.remove", gin.H{"from": userID, "status": status}, otherID)
	utils.Success(c, gin.H{"status": status})
}
