package services

import (
	"errors"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"

	"gorm.io/gorm"
)

// InterfaceUserService 定义用户服务接口
type InterfaceUserService interface {
	Register(user *models.User) error
	Login(email, password string) (*models.User, string, error)
	GetUserByID(id uint) (*models.User, error)
	UpdateProfile(id uint, updates *models.User) (*models.User, error)
	GetEmergencyContacts(id uint) ([]models.EmergencyContact, error)
}

// UserService 用户服务的实现
type UserService struct {
	DB         *gorm.DB
	JWTService InterfaceJWTService
}

// NewUserService 创建一个新的用户服务
func NewUserService(db *gorm.DB, jwtService InterfaceJWTService) *UserService {
	return &UserService{
		DB:         db,
		JWTService: jwtService,
	}
}

// Register 注册新用户，邮箱必须唯一
func (s *UserService) Register(user *models.User) error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailAlreadyExist
	}

	// 密码哈希由模型的BeforeCreate钩子完成
	return s.DB.Create(user).Error
}

// Login 校验邮箱和密码，成功后签发JWT令牌
func (s *UserService) Login(email, password string) (*models.User, string, error) {
	var user models.User
	err := s.DB.Preload("EmergencyContacts").Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", err
	}

	if !models.CheckPasswordHash(password, user.Password) {
		return nil, "", ErrPasswordIncorrect
	}

	token, err := s.JWTService.GenerateToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// GetUserByID 根据ID获取用户及其紧急联系人
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	err := s.DB.Preload("EmergencyContacts").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile 更新用户资料
// 传入联系人列表时整体替换，保证资料和联系人在同一事务内一致
func (s *UserService) UpdateProfile(id uint, updates *models.User) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if updates.Name != "" {
			user.Name = updates.Name
		}
		if updates.Phone != "" {
			user.Phone = updates.Phone
		}
		if updates.Password != "" {
			user.Password = updates.Password // BeforeSave钩子负责哈希
		}

		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		// 联系人整体替换
		if updates.EmergencyContacts != nil {
			if err := tx.Where("user_id = ?", id).Delete(&models.EmergencyContact{}).Error; err != nil {
				return err
			}
			for i := range updates.EmergencyContacts {
				updates.EmergencyContacts[i].ID = 0
				updates.EmergencyContacts[i].UserID = id
			}
			if len(updates.EmergencyContacts) > 0 {
				if err := tx.Create(&updates.EmergencyContacts).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(id)
}

// GetEmergencyContacts 获取用户登记的紧急联系人列表
func (s *UserService) GetEmergencyContacts(id uint) ([]models.EmergencyContact, error) {
	var contacts []models.EmergencyContact
	err := s.DB.Where("user_id = ?", id).Find(&contacts).Error
	return contacts, err
}
