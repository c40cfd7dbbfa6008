package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ecostage/backend/internal/config"
	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/internal/utils"
	"github.com/ecostage/backend/pkg/logger"
	"github.com/ecostage/backend/pkg/response"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
	codes     *VerificationCodeStore
	mailer    *Mailer
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, codes *VerificationCodeStore, mailer *Mailer) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg, codes: codes, mailer: mailer}
}

type RegisterDevice struct {
	Name       string `json:"name" binding:"required"`
	Category   string `json:"category" binding:"required,oneof=desktop laptop"`
	CPUModelID uint   `json:"cpu_model_id" binding:"required"`
	GPUModelID uint   `json:"gpu_model_id" binding:"required"`
	RAMModelID uint   `json:"ram_model_id" binding:"required"`
	PSUModelID uint   `json:"psu_model_id" binding:"required"`
	RAMCount   int    `json:"ram_count" binding:"omitempty,min=1"`
}

type RegisterRequest struct {
	Username     string         `json:"username" binding:"required,min=3,max=100"`
	Email        string         `json:"email" binding:"required,email"`
	Password     string         `json:"password" binding:"required,min=8"`
	Nickname     string         `json:"nickname"`
	Organization string         `json:"organization"`
	Region       string         `json:"region"`
	Device       RegisterDevice `json:"device" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
	User            *models.User
}

type RefreshResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
}

// Register creates a user together with their first device, which becomes
// the current one. All device fields are required up front because sessions
// cannot accrue without a wattage profile.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		user = models.User{
			Username:     req.Username,
			Email:        req.Email,
			Password:     hash,
			Nickname:     req.Nickname,
			Organization: req.Organization,
			Region:       req.Region,
			Role:         "user",
			IsActive:     true,
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return response.NewConflict("username or email already taken")
			}
			return err
		}

		if err := validateHardwareRefs(tx, &req.Device); err != nil {
			return err
		}

		ramCount := req.Device.RAMCount
		if ramCount == 0 {
			ramCount = 1
		}
		device := models.Device{
			UserID:     user.ID,
			Name:       req.Device.Name,
			Category:   req.Device.Category,
			CPUModelID: req.Device.CPUModelID,
			GPUModelID: req.Device.GPUModelID,
			RAMModelID: req.Device.RAMModelID,
			PSUModelID: req.Device.PSUModelID,
			RAMCount:   ramCount,
		}
		if err := tx.Create(&device).Error; err != nil {
			return err
		}

		return tx.Model(&user).Update("current_device_id", device.ID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return &user, nil
}

// Login authenticates a user and issues an access/refresh token pair.
func (s *AuthService) Login(req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, response.NewForbidden("account is disabled")
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, response.NewUnauthorized("invalid username or password")
	}

	accessHours := s.jwtConfig.ExpireHour
	if accessHours <= 0 {
		accessHours = 24
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, accessHours)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshExpireAt := time.Now().Add(30 * 24 * time.Hour)
	record := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   refreshExpireAt,
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.Save(&user)

	return &LoginResult{
		AccessToken:     token,
		AccessExpireAt:  time.Now().Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refreshToken,
		RefreshExpireAt: refreshExpireAt,
		User:            &user,
	}, nil
}

// Refresh rotates a refresh token and issues a fresh access token.
func (s *AuthService) Refresh(refreshToken, clientIP, userAgent string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, response.NewBadRequest("refresh token required")
	}

	hash := hashRefreshToken(refreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ?", hash).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}

	if stored.RevokedAt != nil {
		return nil, response.NewUnauthorized("refresh token revoked")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, response.NewUnauthorized("refresh token expired")
	}

	var user models.User
	if err := s.db.First(&user, stored.UserID).Error; err != nil {
		return nil, response.NewUnauthorized("user no longer exists")
	}
	if !user.IsActive {
		return nil, response.NewForbidden("account is disabled")
	}

	accessHours := s.jwtConfig.ExpireHour
	if accessHours <= 0 {
		accessHours = 24
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, accessHours)
	if err != nil {
		return nil, err
	}

	newToken, newHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshExpireAt := time.Now().Add(30 * 24 * time.Hour)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		replacement := models.RefreshToken{
			UserID:      user.ID,
			TokenHash:   newHash,
			ExpiresAt:   refreshExpireAt,
			CreatedByIP: clientIP,
			UserAgent:   userAgent,
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&stored).Updates(map[string]interface{}{
			"revoked_at":           now,
			"replaced_by_token_id": replacement.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:     token,
		AccessExpireAt:  time.Now().Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    newToken,
		RefreshExpireAt: refreshExpireAt,
	}, nil
}

// Logout revokes the presented refresh token.
func (s *AuthService) Logout(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	now := time.Now()
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashRefreshToken(refreshToken)).
		Update("revoked_at", now).Error
}

// RequestPasswordReset issues a one-time code to the account's email. The
// code lives in redis with a TTL, never in process memory.
func (s *AuthService) RequestPasswordReset(email string) error {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Do not reveal whether the address exists.
			return nil
		}
		return err
	}

	code, err := s.codes.Issue(email)
	if err != nil {
		return err
	}

	s.mailer.QueueMail(email,
		"EcoStage password reset",
		fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.",
			code, int(codeTTL.Minutes())))
	return nil
}

// ResetPassword consumes a valid code and replaces the password. All refresh
// tokens are revoked so stolen sessions die with the old password.
func (s *AuthService) ResetPassword(email, code, newPassword string) error {
	ok, err := s.codes.Consume(email, code)
	if err != nil {
		return err
	}
	if !ok {
		return response.NewUnauthorized("invalid or expired reset code")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("user not found")
			}
			return err
		}
		if err := tx.Model(&user).Update("password", hash).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", user.ID).
			Update("revoked_at", now).Error
	})
}

// CreateAdminIfNotExists seeds the default admin account on first boot.
func (s *AuthService) CreateAdminIfNotExists() error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.User{
		Username: "admin",
		Email:    "admin@ecostage.dev",
		Password: hash,
		Nickname: "Administrator",
		Role:     "admin",
		IsActive: true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}

	logger.Warn().Msg("default admin account created; change the password immediately")
	return nil
}

func validateHardwareRefs(tx *gorm.DB, d *RegisterDevice) error {
	checks := []struct {
		model interface{}
		id    uint
		name  string
	}{
		{&models.CPUModel{}, d.CPUModelID, "cpu"},
		{&models.GPUModel{}, d.GPUModelID, "gpu"},
		{&models.RAMModel{}, d.RAMModelID, "ram"},
		{&models.PSUModel{}, d.PSUModelID, "psu"},
	}
	for _, c := range checks {
		var count int64
		if err := tx.Model(c.model).
			Where("id = ? AND category = ?", c.id, d.Category).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return response.NewBadRequest("unknown " + c.name + " model for category " + d.Category)
		}
	}
	return nil
}

func generateRefreshToken() (token string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
