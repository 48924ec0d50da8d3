// Package service implements registration, login and profile operations.
package service

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/Laisky/fingenius-compliance/internal/web/organization/dao"
	"github.com/Laisky/fingenius-compliance/internal/web/organization/dto"
	"github.com/Laisky/fingenius-compliance/internal/web/organization/model"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/assets"
)

// PasswordHashCost is the fixed bcrypt cost.
const PasswordHashCost = 10

// Store is the credential store used by Service.
type Store interface {
	Insert(ctx context.Context, org *model.Organization) error
	FindByEmail(ctx context.Context, email string) (*model.Organization, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Organization, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	UpdateProfileImage(ctx context.Context, id primitive.ObjectID, url string, at time.Time) error
}

// TokenSigner issues session tokens.
type TokenSigner interface {
	Sign(organizationID, email string) (string, error)
}

// Session is the outcome of a successful register or login.
type Session struct {
	Token        string
	Organization *model.Organization
}

// Service organization service
type Service struct {
	logger logSDK.Logger
	store  Store
	tokens TokenSigner
	assets assets.Store
	now    func() time.Time
}

// New create new organization service
func New(logger logSDK.Logger, store Store, tokens TokenSigner, assetStore assets.Store) *Service {
	return &Service{
		logger: logger,
		store:  store,
		tokens: tokens,
		assets: assetStore,
		now:    gutils.Clock.GetUTCNow,
	}
}

func (s *Service) loggerFromCtx(ctx context.Context) logSDK.Logger {
	if ctx != nil {
		if logger := gmw.GetLogger(ctx); logger != nil {
			return logger
		}
	}

	return s.logger
}

// HashPassword returns the bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordHashCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}

	return string(hashed), nil
}

// VerifyPassword compares plain against hash with bcrypt's constant-time check.
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func validateRegister(req *dto.RegisterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = dao.NormalizeEmail(req.Email)
	req.Country = strings.TrimSpace(req.Country)
	req.Industry = strings.ToLower(strings.TrimSpace(req.Industry))

	var missing []string
	for _, field := range []struct{ name, val string }{
		{"name", req.Name},
		{"email", req.Email},
		{"password", req.Password},
		{"industry", req.Industry},
		{"country", req.Country},
	} {
		if field.val == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) != 0 {
		return apierr.Wrap(
			errors.Errorf("missing fields: %s", strings.Join(missing, ", ")),
			apierr.CodeValidation, "Registration failed")
	}

	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return apierr.Wrap(errors.Errorf("invalid email %q", req.Email),
			apierr.CodeValidation, "Registration failed")
	}
	if !model.Industry(req.Industry).Valid() {
		return apierr.Wrap(errors.Errorf("industry %q is not one of technology, finance, healthcare, retail, other", req.Industry),
			apierr.CodeValidation, "Registration failed")
	}

	return nil
}

// Register creates an organization and opens a session for it.
func (s *Service) Register(ctx context.Context, req dto.RegisterRequest) (*Session, error) {
	logger := s.loggerFromCtx(ctx)
	if err := validateRegister(&req); err != nil {
		return nil, err
	}

	switch _, err := s.store.FindByEmail(ctx, req.Email); {
	case err == nil:
		return nil, apierr.New(apierr.CodeDuplicateEmail, "Organization already exists")
	case !apierr.IsCode(err, apierr.CodeNotFound):
		return nil, errors.Wrap(err, "check duplicate email")
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	org := model.NewOrganization(s.now())
	org.Name = req.Name
	org.Email = req.Email
	org.Password = hashed
	org.Industry = model.Industry(req.Industry)
	org.Country = req.Country
	if err = s.store.Insert(ctx, org); err != nil {
		return nil, errors.WithStack(err)
	}

	token, err := s.tokens.Sign(org.ID.Hex(), org.Email)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}

	logger.Info("organization registered",
		zap.String("organization", org.ID.Hex()),
		zap.String("industry", string(org.Industry)))
	return &Session{Token: token, Organization: org}, nil
}

// Login verifies credentials, records the login time and issues a token.
// Unknown email and wrong password fail with the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	logger := s.loggerFromCtx(ctx)
	email = dao.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apierr.New(apierr.CodeValidation, "Email and password are required")
	}

	org, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if apierr.IsCode(err, apierr.CodeNotFound) {
			logger.Debug("login with unknown email")
			return nil, errors.WithStack(model.ErrInvalidCredentials)
		}
		return nil, errors.Wrap(err, "find organization")
	}

	if !VerifyPassword(password, org.Password) {
		logger.Debug("login with wrong password", zap.String("organization", org.ID.Hex()))
		return nil, errors.WithStack(model.ErrInvalidCredentials)
	}

	now := s.now()
	if err = s.store.UpdateLastLogin(ctx, org.ID, now); err != nil {
		return nil, errors.Wrap(err, "update last login")
	}
	org.LastLogin = &now
	org.UpdatedAt = now

	token, err := s.tokens.Sign(org.ID.Hex(), org.Email)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}

	logger.Info("organization logged in", zap.String("organization", org.ID.Hex()))
	return &Session{Token: token, Organization: org}, nil
}

// FindByID loads an organization.
func (s *Service) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Organization, error) {
	if id.IsZero() {
		return nil, apierr.New(apierr.CodeUnauthenticated, "Authentication required")
	}

	return s.store.FindByID(ctx, id)
}

// FindByEmail loads an organization.
func (s *Service) FindByEmail(ctx context.Context, email string) (*model.Organization, error) {
	return s.store.FindByEmail(ctx, email)
}

// allowedPhotoTypes are the accepted profile photo types.
var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// ProfilePhotoFolder groups profile photos in the asset store.
const ProfilePhotoFolder = "organization-profiles"

// MaxPhotoSize is the profile photo ceiling.
const MaxPhotoSize int64 = 5 << 20

// PhotoInput is an uploaded profile photo.
type PhotoInput struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

// UpdateProfilePhoto uploads the photo and stores its URL on the organization.
func (s *Service) UpdateProfilePhoto(ctx context.Context, id primitive.ObjectID, photo *PhotoInput) (*model.Organization, error) {
	if id.IsZero() {
		return nil, apierr.New(apierr.CodeUnauthenticated, "Authentication required")
	}
	if photo == nil || photo.Body == nil {
		return nil, apierr.New(apierr.CodeNoFile, "No file uploaded")
	}
	contentType := assets.NormalizeType(photo.ContentType)
	if !allowedPhotoTypes[contentType] {
		return nil, apierr.New(apierr.CodeUnsupportedType,
			"Invalid file type. Only JPG, JPEG, PNG and GIF images are allowed.")
	}
	if photo.Size > MaxPhotoSize {
		return nil, apierr.Wrap(
			errors.Errorf("got %s", humanize.IBytes(uint64(photo.Size))),
			apierr.CodePayloadTooLarge,
			fmt.Sprintf("Photo too large. Maximum size is %s", humanize.IBytes(uint64(MaxPhotoSize))),
		)
	}

	org, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	asset, err := s.assets.Store(ctx, assets.Object{
		Body:        io.LimitReader(photo.Body, MaxPhotoSize),
		Size:        photo.Size,
		Filename:    photo.Filename,
		ContentType: contentType,
		Folder:      ProfilePhotoFolder,
	})
	if err != nil {
		return nil, apierr.Wrap(err, apierr.CodeUpstream, "Error uploading profile photo")
	}

	now := s.now()
	if err = s.store.UpdateProfileImage(ctx, id, asset.URL, now); err != nil {
		// the request may already be gone, the orphaned photo still has to go
		if derr := s.assets.Delete(context.WithoutCancel(ctx), asset.AssetID); derr != nil {
			s.loggerFromCtx(ctx).Warn("rollback profile photo",
				zap.String("asset", asset.AssetID), zap.Error(derr))
		}
		return nil, errors.Wrap(err, "save profile image")
	}
	org.ProfileImageURL = asset.URL
	org.UpdatedAt = now

	return org, nil
}

// SeedOrganization describes the fixed organization created by the seed command.
type SeedOrganization struct {
	ID       primitive.ObjectID
	Name     string
	Email    string
	Password string
	Industry model.Industry
	Country  string
}

// EnsureOrganization creates seed unless an organization with its email exists.
// It reports whether a new organization was inserted.
func (s *Service) EnsureOrganization(ctx context.Context, seed SeedOrganization) (*model.Organization, bool, error) {
	email := dao.NormalizeEmail(seed.Email)
	existing, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return existing, false, nil
	case !apierr.IsCode(err, apierr.CodeNotFound):
		return nil, false, errors.Wrap(err, "find seed organization")
	}

	hashed, err := HashPassword(seed.Password)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	org := model.NewOrganization(s.now())
	if !seed.ID.IsZero() {
		org.ID = seed.ID
	}
	org.Name = strings.TrimSpace(seed.Name)
	org.Email = email
	org.Password = hashed
	org.Industry = seed.Industry
	org.Country = seed.Country
	if err = s.store.Insert(ctx, org); err != nil {
		return nil, false, errors.WithStack(err)
	}

	s.logger.Info("seed organization created", zap.String("organization", org.ID.Hex()))
	return org, true, nil
}
