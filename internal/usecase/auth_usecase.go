package usecase

import (
	"context"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"market/internal/domain/model"
	repo "market/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthUsecase は会員登録/ログイン/プロフィールの処理。
type AuthUsecase struct {
	userRepo  repo.UserRepository
	jwtSecret []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewAuthUsecase(userRepo repo.UserRepository, jwtSecret string, accessTTL time.Duration) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type UserOutput struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type LoginOutput struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        UserOutput `json:"user"`
}

// Register は会員登録
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserOutput, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > 150 {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "invalid username")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "invalid email format")
	}
	if len(in.Password) < 8 {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "password too short")
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := u.now()
	created, err := u.userRepo.Create(ctx, model.User{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(pwHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if err == repo.ErrDuplicateUser {
			return UserOutput{}, NewHTTPError(http.StatusConflict, "username or email already exists")
		}
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toUserOutput(created), nil
}

// Login はemail+passwordでJWTを発行する
func (u *AuthUsecase) Login(ctx context.Context, email string, password string) (LoginOutput, error) {
	if email == "" || password == "" {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, err := u.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == repo.ErrNotFound {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	now := u.now()
	expiresAt := now.Add(u.accessTTL)

	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(user.ID, 10),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.jwtSecret)
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return LoginOutput{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		User:        toUserOutput(user),
	}, nil
}

// Profile は自分のプロフィールを返す
func (u *AuthUsecase) Profile(ctx context.Context, userID int64) (UserOutput, error) {
	if userID <= 0 {
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return UserOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toUserOutput(user), nil
}

type UpdateProfileInput struct {
	Username string
	Email    string
}

// UpdateProfile はusername/emailの更新
func (u *AuthUsecase) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (UserOutput, error) {
	if userID <= 0 {
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return UserOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.Username != "" {
		username := strings.TrimSpace(in.Username)
		if username == "" || len(username) > 150 {
			return UserOutput{}, NewHTTPError(http.StatusBadRequest, "invalid username")
		}
		user.Username = username
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return UserOutput{}, NewHTTPError(http.StatusBadRequest, "invalid email format")
		}
		user.Email = strings.ToLower(strings.TrimSpace(in.Email))
	}
	user.UpdatedAt = u.now()

	if err := u.userRepo.Update(ctx, user); err != nil {
		if err == repo.ErrDuplicateUser {
			return UserOutput{}, NewHTTPError(http.StatusConflict, "username or email already exists")
		}
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toUserOutput(user), nil
}

// ChangePassword は旧パスワード確認つきの変更
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID int64, oldPassword string, newPassword string) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if oldPassword == "" || newPassword == "" {
		return NewHTTPError(http.StatusBadRequest, "both old and new passwords are required")
	}
	if len(newPassword) < 8 {
		return NewHTTPError(http.StatusBadRequest, "password too short")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return NewHTTPError(http.StatusBadRequest, "old password is incorrect")
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	user.PasswordHash = string(pwHash)
	user.UpdatedAt = u.now()

	if err := u.userRepo.Update(ctx, user); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func toUserOutput(u model.User) UserOutput {
	return UserOutput{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}
