package users

import (
	"errors"
	"regexp"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/crypto"
	"github.com/karloscodes/cartridge/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Account roles. Admins may manage users and sites; regular users only
// read dashboards.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                uint      `gorm:"primaryKey"`
	Username          string    `gorm:"uniqueIndex;not null"`
	EncryptedPassword string    `gorm:"not null"`
	Role              string    `gorm:"not null;default:user"`
	Root              bool      `gorm:"default:false"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// ErrUserExists is returned when attempting to create a user that already exists.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = gorm.ErrRecordNotFound

var usernamePattern = regexp.MustCompile(`^(?i)[a-z][0-9a-z_-]+$`)

// ValidateUsername enforces the account naming rules: 5-20 chars, leading
// letter, then letters, digits, underscore or hyphen.
func ValidateUsername(username string) bool {
	return len(username) >= 5 && len(username) <= 20 && usernamePattern.MatchString(username)
}

var passwordPattern = regexp.MustCompile(`^(?i)[0-9a-z!@#$%^&*_-]+$`)

// ValidatePassword enforces the password rules: 6-50 chars from the
// allowed character set.
func ValidatePassword(password string) bool {
	return len(password) >= 6 && len(password) <= 50 && passwordPattern.MatchString(password)
}

// FindByUsername retrieves a user by username.
func FindByUsername(db *gorm.DB, username string) (*User, error) {
	var user User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID retrieves a user by ID.
func FindByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks a username/password pair and returns the matching
// user. A missing user and a wrong password are indistinguishable to the
// caller.
func Authenticate(db *gorm.DB, username, password string) (*User, error) {
	user, err := FindByUsername(db, username)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(user.EncryptedPassword), []byte(password)) != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateUser creates a new user with the supplied credentials and role.
// It returns ErrUserExists if the username is taken.
func CreateUser(dbConn *gorm.DB, username, password, role string) (*User, error) {
	if !ValidateUsername(username) {
		return nil, errors.New("invalid username")
	}
	if !ValidatePassword(password) {
		return nil, errors.New("invalid password")
	}
	if role != RoleUser && role != RoleAdmin {
		role = RoleUser
	}

	if _, err := FindByUsername(dbConn, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return nil, err
	}

	newUser := User{
		Username:          username,
		EncryptedPassword: string(hashedPassword),
		Role:              role,
	}

	logger := slog.Default()
	err = sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		return tx.Create(&newUser).Error
	})
	if err != nil {
		return nil, err
	}
	return &newUser, nil
}

// CreateAdminUser creates a new admin user, marked as root so it cannot
// be deleted through the users API.
func CreateAdminUser(dbConn *gorm.DB, username, password string) error {
	user, err := CreateUser(dbConn, username, password, RoleAdmin)
	if err != nil {
		return err
	}
	logger := slog.Default()
	return sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		return tx.Model(user).Update("root", true).Error
	})
}

// ChangePassword updates a user's password given their username.
func ChangePassword(dbConn *gorm.DB, username, password string) error {
	if !ValidatePassword(password) {
		return errors.New("invalid password")
	}

	user, err := FindByUsername(dbConn, username)
	if err != nil {
		return err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return err
	}

	logger := slog.Default()
	return sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		return tx.Model(user).Update("encrypted_password", string(hashedPassword)).Error
	})
}

// DeleteUser removes a non-root user by id.
func DeleteUser(dbConn *gorm.DB, id uint) error {
	user, err := FindByID(dbConn, id)
	if err != nil {
		return err
	}
	if user.Root {
		return errors.New("cannot delete root user")
	}
	logger := slog.Default()
	return sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		return tx.Delete(user).Error
	})
}

// ListUsers returns all accounts ordered by creation time.
func ListUsers(dbConn *gorm.DB) ([]User, error) {
	var all []User
	if err := dbConn.Order("created_at ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return all, nil
}
