package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fleet_allocator/internal/config"
	"fleet_allocator/internal/middleware"
	"fleet_allocator/internal/models"
)

type signupInput struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
	Phone         string `json:"phone"`
	Role          string `json:"role"`
	LicenseNumber string `json:"license_number"`
}

func SignupUser(c *gin.Context) {
	var input signupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	role, err := validateAndNormalizeRole(input.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	input.Role = role

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not hash password"})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not start transaction"})
		return
	}

	user, err := createUserRecord(tx, input, hashedPassword)
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not create user: " + err.Error()})
		return
	}

	if err := createActorRecord(tx, &user, input); err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "required for driver role") {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not create actor record: " + err.Error()})
		}
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not commit transaction: " + err.Error()})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   token,
		"data":    user,
	})
}

func LoginUser(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var user models.User
	query := config.DB.Where("email = ?", body.Email).
		Preload("Driver").
		Preload("Agent")

	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not found or invalid credentials"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error: " + err.Error()})
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "incorrect password"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"data":    user,
	})
}

func validateAndNormalizeRole(roleInput string) (string, error) {
	role := strings.ToLower(strings.TrimSpace(roleInput))
	if role == "" {
		role = "agent"
	}
	switch role {
	case "driver", "agent", "dispatcher", "admin":
		return role, nil
	default:
		return "", errors.New("invalid role")
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func createUserRecord(tx *gorm.DB, input signupInput, hashedPassword string) (models.User, error) {
	user := models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: hashedPassword,
		Phone:    input.Phone,
		Role:     input.Role,
	}
	if err := tx.Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func createActorRecord(tx *gorm.DB, user *models.User, input signupInput) error {
	switch user.Role {
	case "driver":
		if input.LicenseNumber == "" {
			return errors.New("license_number is required for driver role")
		}
		driver := models.Driver{
			UserID:        user.ID,
			Name:          input.Name,
			Phone:         input.Phone,
			LicenseNumber: input.LicenseNumber,
			Active:        true,
		}
		if err := tx.Create(&driver).Error; err != nil {
			return err
		}
		user.Driver = &driver
	case "agent":
		agent := models.Agent{
			UserID: user.ID,
			Name:   input.Name,
			Phone:  input.Phone,
		}
		if err := tx.Create(&agent).Error; err != nil {
			return err
		}
		user.Agent = &agent
	}
	return nil
}
