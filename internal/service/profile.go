package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/helper"
	"github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/storage"
)

const DefaultMaxPictureBytes = 5 << 20

// picture types accepted by content type, mapped to the stored extension
var pictureTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
}

type ProfileService struct {
	Users    UserStore
	Pictures storage.Storage
	MaxBytes int64
}

func NewProfileService(users UserStore, pictures storage.Storage, maxBytes int64) *ProfileService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPictureBytes
	}
	return &ProfileService{Users: users, Pictures: pictures, MaxBytes: maxBytes}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	return findUser(ctx, s.Users, userID)
}

// ProfileUpdate carries the optional fields of PUT /users/me; empty values
// are left unchanged.
type ProfileUpdate struct {
	Name  string
	Email string
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate) (*domain.User, error) {
	u, err := findUser(ctx, s.Users, userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if email := helper.NormalizeEmail(in.Email); email != "" && email != u.Email {
		if !helper.LooksLikeEmail(email) {
			return nil, domain.E(domain.ErrValidation, "Invalid email address")
		}
		other, err := s.Users.FindUserByEmail(ctx, email)
		switch {
		case err == nil && other.ID != u.ID:
			return nil, domain.E(domain.ErrConflict, "User already exists")
		case err != nil && !isNotFound(err):
			return nil, err
		}
		u.Email = email
	}
	if err := s.Users.UpdateUser(ctx, u); err != nil {
		if isConflict(err) {
			return nil, domain.E(domain.ErrConflict, "User already exists")
		}
		return nil, err
	}
	return u, nil
}

// Upload is a received picture file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateProfilePicture stores the upload for targetID, which must be the
// authenticated user, and replaces the previous picture.
func (s *ProfileService) UpdateProfilePicture(ctx context.Context, userID, targetID int64, up *Upload) (string, error) {
	if up == nil || up.Body == nil {
		return "", domain.E(domain.ErrValidation, "No image uploaded")
	}
	if targetID != userID {
		return "", errUserNotFound
	}
	if up.Size > s.MaxBytes {
		return "", domain.E(domain.ErrValidation, fmt.Sprintf("Image must be at most %d MB", s.MaxBytes>>20))
	}
	ext, ok := pictureTypes[strings.ToLower(strings.TrimSpace(up.ContentType))]
	if !ok {
		return "", domain.E(domain.ErrValidation, "Only .jpeg, .jpg and .png files are allowed")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	sniffed := http.DetectContentType(head)
	if _, ok := pictureTypes[sniffed]; !ok {
		return "", domain.E(domain.ErrValidation, "Only .jpeg, .jpg and .png files are allowed")
	}
	if e := strings.ToLower(strings.TrimPrefix(filepath.Ext(up.Filename), ".")); e == "jpeg" && ext == "jpg" {
		ext = e
	}

	u, err := findUser(ctx, s.Users, userID)
	if err != nil {
		return "", err
	}
	// cap the stream in case Size under-reports
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), up.Body), s.MaxBytes+1)
	ref, err := s.Pictures.Save(ctx, ext, sniffed, body, up.Size)
	if err != nil {
		return "", fmt.Errorf("store picture: %w", err)
	}

	old := u.ProfilePic
	u.ProfilePic = ref
	if err := s.Users.UpdateUser(ctx, u); err != nil {
		_ = s.Pictures.Delete(ctx, ref)
		return "", err
	}
	if old != "" {
		if err := s.Pictures.Delete(ctx, old); err != nil {
			log.Ctx(ctx).Warn("remove old picture failed", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}
	return ref, nil
}
