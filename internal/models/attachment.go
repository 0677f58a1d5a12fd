package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// FileDescriptor is opaque file metadata attached to assignments and submissions.
type FileDescriptor struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// EncodeAttachments serialises descriptors for a JSON column. A nil list is stored as [].
func EncodeAttachments(files []FileDescriptor) datatypes.JSON {
	if files == nil {
		files = []FileDescriptor{}
	}
	payload, err := json.Marshal(files)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(payload)
}

// DecodeAttachments reads descriptors back; unreadable content yields an empty list.
func DecodeAttachments(raw datatypes.JSON) []FileDescriptor {
	files := []FileDescriptor{}
	if len(raw) == 0 {
		return files
	}
	if err := json.Unmarshal(raw, &files); err != nil || files == nil {
		return []FileDescriptor{}
	}
	return files
}
