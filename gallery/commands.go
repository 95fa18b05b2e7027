package gallery

import "github.com/camden-git/beachfinder/validation"

// Command is one decoded image-management request. The set is closed: only
// the types in this file implement it.
type Command interface {
	action() string
}

const (
	ActionUpload    = "upload"
	ActionList      = "list"
	ActionDelete    = "delete"
	ActionReorder   = "reorder"
	ActionSetCover  = "set-cover"
	ActionUpdateAlt = "update-alt"
)

// UploadFailure is a transport-level problem detected while receiving the
// file, reported after the beach has been resolved.
type UploadFailure int

const (
	UploadOK UploadFailure = iota
	UploadTooLarge
	UploadPartial
	UploadNoFile
	UploadNoTempDir
	UploadWriteFailed
	UploadExtensionBlocked
)

// Message is the client-facing text for a transport failure.
func (f UploadFailure) Message() string {
	switch f {
	case UploadTooLarge:
		return "The uploaded file exceeds the maximum upload size"
	case UploadPartial:
		return "The file was only partially uploaded"
	case UploadNoFile:
		return "No file was uploaded"
	case UploadNoTempDir:
		return "Server misconfiguration: no temporary directory available"
	case UploadWriteFailed:
		return "Server could not write the uploaded file"
	case UploadExtensionBlocked:
		return "Upload blocked: file extension not permitted"
	default:
		return ""
	}
}

// UploadedFile is a received upload already spooled to disk.
type UploadedFile struct {
	Path         string
	OriginalName string
}

type UploadCommand struct {
	BeachID uint `validate:"required"`
	File    *UploadedFile
	Failure UploadFailure
}

type ListCommand struct {
	BeachID uint `validate:"required"`
}

type DeleteCommand struct {
	ImageID uint `validate:"required"`
}

// ReorderCommand carries the raw comma-separated id list; each entry's index
// becomes its position.
type ReorderCommand struct {
	BeachID uint   `validate:"required"`
	Order   string `validate:"required"`
}

type SetCoverCommand struct {
	ImageID uint `validate:"required"`
}

type UpdateAltCommand struct {
	ImageID uint `validate:"required"`
	AltText string
}

func (UploadCommand) action() string    { return ActionUpload }
func (ListCommand) action() string      { return ActionList }
func (DeleteCommand) action() string    { return ActionDelete }
func (ReorderCommand) action() string   { return ActionReorder }
func (SetCoverCommand) action() string  { return ActionSetCover }
func (UpdateAltCommand) action() string { return ActionUpdateAlt }

// validateCommand checks the command's validate tags. Any failure is reported
// with the operation's fixed message; the field errors stay in Err.
func validateCommand(cmd Command, msg string) error {
	if err := validation.ValidateStruct(cmd); err != nil {
		return &Error{Kind: KindInvalid, Message: msg, Err: err}
	}
	return nil
}

// Actor is the authenticated caller of a command.
type Actor struct {
	UserID   uint
	Username string
	IsAdmin  bool
}
