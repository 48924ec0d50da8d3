// Package service implements document upload, listing and deletion.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/fingenius-compliance/internal/web/files/model"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/assets"
)

const (
	// MaxFileSize upper bound of an uploaded document.
	MaxFileSize int64 = 10 * 1024 * 1024
	// Folder groups compliance documents in the asset store.
	Folder = "compliance-files"

	sniffLen = 3072
)

// UnsupportedTypeMessage lists the accepted document types.
const UnsupportedTypeMessage = "Invalid file type. Only PDF, DOC, DOCX, XLS, XLSX, JPEG, PNG, and JPG files are allowed."

var allowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"image/jpeg",
	"image/png",
	"image/jpg",
}

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "compliance_file_uploads_total",
	Help: "Document uploads by outcome.",
}, []string{"result"})

const (
	resultSuccess  = "success"
	resultRejected = "rejected"
	resultUpstream = "upstream_error"
	resultError    = "error"
)

// Store is the file record store used by Service.
type Store interface {
	Create(ctx context.Context, file *model.File) error
	ListAll(ctx context.Context) ([]*model.File, error)
	ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]*model.File, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.File, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
}

// OrganizationChecker reports whether an organization exists.
type OrganizationChecker interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// UploadInput is a received file part. A nil Body means no file was sent.
type UploadInput struct {
	Body        io.Reader
	Filename    string
	ContentType string
	// Size declared size, zero or negative when unknown
	Size int64
}

// Service files service
type Service struct {
	logger logSDK.Logger
	store  Store
	orgs   OrganizationChecker
	assets assets.Store
	stager *Stager
	now    func() time.Time
}

// New create new files service
func New(logger logSDK.Logger,
	store Store,
	orgs OrganizationChecker,
	assetStore assets.Store,
	stager *Stager,
) *Service {
	return &Service{
		logger: logger,
		store:  store,
		orgs:   orgs,
		assets: assetStore,
		stager: stager,
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

func isAllowed(contentType string) bool {
	for _, t := range allowedTypes {
		if t == contentType {
			return true
		}
	}

	return false
}

// resolveType returns the accepted MIME type of the payload and a reader
// positioned at its start. Missing or generic declarations are sniffed.
func resolveType(declared string, body io.Reader) (string, io.Reader, error) {
	declared = assets.NormalizeType(declared)
	if declared != "" && declared != "application/octet-stream" {
		if !isAllowed(declared) {
			return "", nil, apierr.New(apierr.CodeUnsupportedType, UnsupportedTypeMessage)
		}
		return declared, body, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, errors.Wrap(err, "read upload head")
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	for _, t := range allowedTypes {
		if detected.Is(t) {
			return t, io.MultiReader(bytes.NewReader(head), body), nil
		}
	}

	return "", nil, apierr.Wrap(errors.Errorf("detected %s", detected.String()),
		apierr.CodeUnsupportedType, UnsupportedTypeMessage)
}

func tooLarge(size int64) error {
	return apierr.Wrap(
		errors.Errorf("got %s", humanize.IBytes(uint64(size))),
		apierr.CodePayloadTooLarge,
		fmt.Sprintf("File too large. Maximum size is %s", humanize.IBytes(uint64(MaxFileSize))),
	)
}

// advance moves file to next, refusing backward transitions.
func advance(file *model.File, next model.FileStatus) error {
	if !file.Status.CanTransitionTo(next) {
		return errors.Errorf("file status cannot move from %s to %s", file.Status, next)
	}
	file.Status = next

	return nil
}

// Upload validates, stages and stores a document, then persists its record.
// A record exists only when the asset store accepted the payload.
func (s *Service) Upload(ctx context.Context, orgID primitive.ObjectID, in *UploadInput) (file *model.File, err error) {
	logger := s.loggerFromCtx(ctx)
	result := resultError
	defer func() {
		uploadsTotal.WithLabelValues(result).Inc()
	}()

	if orgID.IsZero() {
		result = resultRejected
		return nil, apierr.New(apierr.CodeUnauthenticated, "Authentication required")
	}
	if in == nil || in.Body == nil {
		result = resultRejected
		return nil, apierr.New(apierr.CodeNoFile, "No file uploaded")
	}

	contentType, body, err := resolveType(in.ContentType, in.Body)
	if err != nil {
		if apierr.IsCode(err, apierr.CodeUnsupportedType) {
			result = resultRejected
		}
		return nil, err
	}
	if in.Size > MaxFileSize {
		result = resultRejected
		return nil, tooLarge(in.Size)
	}

	stagedPath, size, err := s.stager.Stage(body, in.Filename, MaxFileSize)
	if err != nil {
		return nil, errors.Wrap(err, "stage upload")
	}
	defer func() {
		if rerr := s.stager.Remove(stagedPath); rerr != nil {
			logger.Warn("remove staged file", zap.String("path", stagedPath), zap.Error(rerr))
		}
	}()

	switch {
	case size > MaxFileSize:
		result = resultRejected
		return nil, tooLarge(size)
	case size == 0:
		result = resultRejected
		return nil, apierr.New(apierr.CodeNoFile, "Uploaded file is empty")
	}

	now := s.now()
	file = &model.File{
		ID:           primitive.NewObjectID(),
		Filename:     in.Filename,
		DisplayName:  FormatFilename(in.Filename, now),
		FileType:     contentType,
		FileSize:     size,
		Organization: orgID,
		Status:       model.StatusPending,
	}
	if err = advance(file, model.StatusUploading); err != nil {
		return nil, err
	}

	staged, err := s.stager.Open(stagedPath)
	if err != nil {
		return nil, err
	}
	asset, err := s.assets.Store(ctx, assets.Object{
		Body:        staged,
		Size:        size,
		Filename:    in.Filename,
		ContentType: contentType,
		Folder:      Folder,
	})
	if cerr := staged.Close(); cerr != nil {
		logger.Warn("close staged file", zap.Error(cerr))
	}
	if err != nil {
		result = resultUpstream
		_ = advance(file, model.StatusError)
		return nil, apierr.Wrap(err, apierr.CodeUpstream, "Error uploading file")
	}

	if err = advance(file, model.StatusSuccess); err != nil {
		return nil, err
	}
	file.URL = asset.URL
	file.FileID = asset.AssetID
	file.UploadDate = now
	file.CreatedAt = now
	file.UpdatedAt = now

	if err = s.store.Create(ctx, file); err != nil {
		// the record failed, so the remote copy would be unreachable
		if derr := s.assets.Delete(context.WithoutCancel(ctx), asset.AssetID); derr != nil {
			logger.Error("rollback stored asset",
				zap.String("asset", asset.AssetID), zap.Error(derr))
		}
		return nil, errors.Wrap(err, "save file record")
	}

	result = resultSuccess
	logger.Info("file uploaded",
		zap.String("file", file.ID.Hex()),
		zap.String("organization", orgID.Hex()),
		zap.String("type", contentType),
		zap.String("size", humanize.IBytes(uint64(size))))
	return file, nil
}

// List returns every file record, newest first.
func (s *Service) List(ctx context.Context) ([]*model.File, error) {
	return s.store.ListAll(ctx)
}

// ListByOrganization returns the files of an existing organization, newest first.
func (s *Service) ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]*model.File, error) {
	exists, err := s.orgs.Exists(ctx, orgID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, apierr.New(apierr.CodeNotFound, "Organization not found")
	}

	return s.store.ListByOrganization(ctx, orgID)
}

// Delete removes the file record and, best effort, its remote asset.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	logger := s.loggerFromCtx(ctx)
	file, err := s.store.FindByID(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if file.FileID != "" {
		if err = s.assets.Delete(ctx, file.FileID); err != nil {
			logger.Warn("delete remote asset",
				zap.String("file", id.Hex()),
				zap.String("asset", file.FileID),
				zap.Error(err))
		}
	}

	if err = s.store.DeleteByID(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	logger.Info("file deleted", zap.String("file", id.Hex()))
	return nil
}

// FormatFilename builds the display name of an upload, like
// "annual report-q1.pdf" → "Annual_Report_Q1_2024-03-15.pdf".
func FormatFilename(name string, now time.Time) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	words := strings.FieldsFunc(base, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	formatted := strings.Join(words, "_")
	if formatted == "" {
		formatted = "File"
	}

	return formatted + "_" + now.UTC().Format("2006-01-02") + ext
}
