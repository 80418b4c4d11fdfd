package handlers

import (
	"database/sql"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"friendgraph/database"
	"friendgraph/middleware"
	"friendgraph/models"
	"friendgraph/utils"
)

type UpdateUserRequest struct {
	Nickname string `json:"nickname"`
}

func GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var user models.User
	err := database.DB.QueryRow(
		"SELECT id, username, nickname, created_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.Username, &user.Nickname, &user.CreatedAt)

	if err == sql.ErrNoRows {
		utils.NotFound(c, "user not found")
		return
	}
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}

	utils.Success(c, user.ToResponse())
}

func UpdateCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	_, err := database.DB.Exec(
		"UPDATE users SET nickname = COALESCE(NULLIF(?, ''), nickname), updated_at = ? WHERE id = ?",
		req.Nickname, time.Now(), userID,
	)
	if err != nil {
		utils.InternalError(c, "failed to update user")
		return
	}

	GetCurrentUser(c)
}

// UserWithStatus is one search hit with its resolved relationship status.
type UserWithStatus struct {
	models.UserSummary
	Status models.RelationshipStatus `json:"status"`
}

// SearchUsers runs a one-shot directory search and resolves each hit's
// relationship status through the engine before responding. The live,
// debounced variant lives on the websocket surface; this endpoint waits for
// the whole batch.
func SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.BadRequest(c, "search query is required")
		return
	}

	userID := middleware.GetUserID(c)

	rows, err := database.DB.Query(`
		SELECT id, username, nickname FROM users
		WHERE id != ? AND (username LIKE ? OR nickname LIKE ?)
		ORDER BY username
		LIMIT 20
	`, userID, "%"+query+"%", "%"+query+"%")
	if err != nil {
		utils.InternalError(c, "database error")
		return
	}
	defer rows.Close()

	var summaries []models.UserSummary
	ids := []string{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName); err != nil {
			continue
		}
		summaries = append(summaries, u)
		ids = append(ids, u.ID)
	}

	var mu sync.Mutex
	statuses := make(map[string]models.RelationshipStatus, len(ids))
	batch := Graph.Resolve(c.Request.Context(), userID, ids, func(id string, status models.RelationshipStatus) {
		mu.Lock()
		statuses[id] = status
		mu.Unlock()
	})
	<-batch.Done()

	results := []UserWithStatus{}
	for _, u := range summaries {
		status, ok := statuses[u.ID]
		if !ok {
			status = models.None()
		}
		results = append(results, UserWithStatus{UserSummary: u, Status: status})
	}

	utils.Success(c, results)
}
