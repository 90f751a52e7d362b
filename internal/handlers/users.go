package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"fleetwatch-backend/internal/models"
	"fleetwatch-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// CreateUser creates a dispatcher or admin account. Admin only.
func CreateUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" || req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "email, password and name are required")
			return
		}
		if req.Role != "dispatcher" && req.Role != "admin" {
			utils.RespondError(w, http.StatusBadRequest, "role must be 'dispatcher' or 'admin'")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		user := models.User{
			ID:    uuid.NewString(),
			Email: req.Email,
			Name:  req.Name,
			Role:  req.Role,
		}

		_, err = db.Exec(
			`INSERT INTO users (id, email, password, name, role) VALUES ($1, $2, $3, $4, $5)`,
			user.ID, user.Email, string(hash), user.Name, user.Role,
		)
		if err != nil {
			log.Printf("❌ Failed to create user: %v", err)
			utils.RespondError(w, http.StatusConflict, "Failed to create user (email taken?)")
			return
		}

		log.Printf("✅ Created user %s (%s)", user.Email, user.Role)
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    user.ToUserResponse(),
		})
	}
}
