package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"auth-template/internal/domain"
	"auth-template/internal/repository"
	"auth-template/internal/storage"
)

// MaxImageSize bounds profile image uploads.
const MaxImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ProfileView is the public representation of a user's profile.
type ProfileView struct {
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	FullName    *string        `json:"full_name"`
	PhoneNumber *string        `json:"phone_number"`
	Age         *int           `json:"age"`
	Gender      *domain.Gender `json:"gender"`
	Height      *float64       `json:"height"`
	Weight      *float64       `json:"weight"`
	ImageURL    *string        `json:"image_url"`
}

// ProfileService manages the profile attached to an account.
type ProfileService interface {
	CreateProfile(ctx context.Context, caller Caller, username string, profile domain.NewProfile) error
	UpdateProfile(ctx context.Context, caller Caller, username string, update domain.ProfileUpdate) error
	GetProfile(ctx context.Context, caller Caller, username string) (*ProfileView, error)
	UploadImage(ctx context.Context, caller Caller, username string, image io.Reader) (*ProfileView, error)
	ListUsers(ctx context.Context, limit, offset int) ([]ProfileView, error)
}

type profileService struct {
	users     repository.UserRepository
	store     storage.Service
	keyPrefix string
	validate  *validator.Validate
	logger    logrus.FieldLogger
}

func NewProfileService(users repository.UserRepository, store storage.Service, keyPrefix string, logger logrus.FieldLogger) ProfileService {
	return &profileService{
		users:     users,
		store:     store,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		validate:  newValidator(),
		logger:    logger,
	}
}

// target resolves username, allowing only the caller itself, or admins when readOnly.
func (s *profileService) target(ctx context.Context, caller Caller, username string, readOnly bool) (*domain.User, error) {
	if username != caller.Username && !(readOnly && caller.IsAdmin()) {
		return nil, ErrForbidden
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("load user", err)
	}
	return user, nil
}

func (s *profileService) CreateProfile(ctx context.Context, caller Caller, username string, profile domain.NewProfile) error {
	if err := s.validate.Struct(profile); err != nil {
		return err
	}
	return s.apply(ctx, caller, username, profile.Update())
}

func (s *profileService) UpdateProfile(ctx context.Context, caller Caller, username string, update domain.ProfileUpdate) error {
	if err := s.validate.Struct(update); err != nil {
		return err
	}
	return s.apply(ctx, caller, username, update)
}

func (s *profileService) apply(ctx context.Context, caller Caller, username string, update domain.ProfileUpdate) error {
	user, err := s.target(ctx, caller, username, false)
	if err != nil {
		return err
	}
	if update.Empty() {
		return nil
	}
	if err := s.users.UpdateProfile(ctx, user.ID, update); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

func (s *profileService) GetProfile(ctx context.Context, caller Caller, username string) (*ProfileView, error) {
	user, err := s.target(ctx, caller, username, true)
	if err != nil {
		return nil, err
	}
	view := s.view(ctx, user)
	return &view, nil
}

func (s *profileService) UploadImage(ctx context.Context, caller Caller, username string, image io.Reader) (*ProfileView, error) {
	user, err := s.target(ctx, caller, username, false)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(image, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 || len(data) > MaxImageSize {
		return nil, ErrInvalidImage
	}
	mtype := mimetype.Detect(data)
	contentType, _, _ := strings.Cut(mtype.String(), ";")
	if !allowedImageTypes[contentType] {
		return nil, ErrInvalidImage
	}

	key := path.Join(s.keyPrefix, user.ID, uuid.NewString()+mtype.Extension())
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("store image: %w: %v", ErrStorageUnavailable, err)
	}
	if err := s.users.UpdateImage(ctx, user.ID, &key); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.WithField("key", key).Warnf("remove orphaned image: %v", delErr)
		}
		return nil, &WriteError{Err: err}
	}
	if user.ImagePath != nil && *user.ImagePath != key {
		if err := s.store.Delete(ctx, *user.ImagePath); err != nil {
			s.logger.WithField("key", *user.ImagePath).Warnf("remove previous image: %v", err)
		}
	}

	user.ImagePath = &key
	view := s.view(ctx, user)
	return &view, nil
}

func (s *profileService) ListUsers(ctx context.Context, limit, offset int) ([]ProfileView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	views := make([]ProfileView, len(users))
	for i := range users {
		views[i] = s.view(ctx, &users[i])
	}
	return views, nil
}

func (s *profileService) view(ctx context.Context, user *domain.User) ProfileView {
	view := ProfileView{
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		PhoneNumber: user.PhoneNumber,
		Age:         user.Profile.Age,
		Gender:      user.Profile.Gender,
		Height:      user.Profile.Height,
		Weight:      user.Profile.Weight,
	}
	if user.ImagePath != nil && s.store != nil {
		url, err := s.store.URL(ctx, *user.ImagePath)
		if err != nil {
			s.logger.WithField("user_id", user.ID).Warnf("resolve image url: %v", err)
		} else {
			view.ImageURL = &url
		}
	}
	return view
}
