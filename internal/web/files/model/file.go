// Package model contains the file record models.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileStatus lifecycle state of an upload.
type FileStatus string

const (
	StatusPending   FileStatus = "pending"
	StatusUploading FileStatus = "uploading"
	StatusSuccess   FileStatus = "success"
	StatusError     FileStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s FileStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// CanTransitionTo reports whether s may move to next.
// Statuses only move forward: pending → uploading → success|error.
func (s FileStatus) CanTransitionTo(next FileStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusUploading || next.Terminal()
	case StatusUploading:
		return next.Terminal()
	default:
		return false
	}
}

// File is the metadata of a document held in the asset store.
type File struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	// Filename original name as uploaded
	Filename string `bson:"filename" json:"filename"`
	// DisplayName normalized name, like Annual_Report_2024-03-15.pdf
	DisplayName string `bson:"display_name" json:"displayName"`
	// FileType MIME type
	FileType string `bson:"file_type" json:"fileType"`
	// FileSize bytes, always positive
	FileSize int64  `bson:"file_size" json:"fileSize"`
	URL      string `bson:"url" json:"url"`
	// FileID asset id in the remote store, used for deletion
	FileID       string             `bson:"file_id" json:"fileId"`
	Organization primitive.ObjectID `bson:"organization" json:"organization"`
	Status       FileStatus         `bson:"status" json:"status"`
	UploadDate   time.Time          `bson:"upload_date" json:"uploadDate"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Collection returns the name of the MongoDB collection for files
func (File) Collection() string {
	return "files"
}
