// Package gallery manages the images of a beach: upload with optimization,
// listing, deletion with cover reassignment, reordering, cover selection and
// alt text. Each beach with images has exactly one cover image, and the
// beach's cover_image column mirrors that image's medium variant URL.
package gallery

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/facette/natsort"

	"github.com/camden-git/beachfinder/database"
	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/media"
	"github.com/camden-git/beachfinder/metrics"
	"github.com/camden-git/beachfinder/models"
)

// Config holds the settings the Manager needs.
type Config struct {
	MediaBaseURL        string
	PlaceholderCoverURL string
	MaxUploadBytes      int64
}

// EventSink is notified after every successful mutation.
type EventSink interface {
	PublishImageEvent(action string, beachID, imageID uint)
}

type Manager struct {
	db        *sql.DB
	optimizer media.Optimizer
	cfg       Config
	events    EventSink
}

// NewManager builds a Manager. events may be nil.
func NewManager(db *sql.DB, optimizer media.Optimizer, cfg Config, events EventSink) *Manager {
	return &Manager{db: db, optimizer: optimizer, cfg: cfg, events: events}
}

// ImageView is an image record with its derived URLs and formatted sizes.
type ImageView struct {
	models.BeachImage
	URLs                  media.ImageURLs `json:"urls"`
	FileSizeFormatted     string          `json:"file_size_formatted"`
	OriginalSizeFormatted string          `json:"original_size_formatted"`
	SavingsFormatted      string          `json:"savings_formatted"`
	SavingsPercent        float64         `json:"savings_percent"`
}

// Result is the outcome of Execute.
type Result struct {
	Message string
	Image   *ImageView
	Images  []ImageView
}

// Execute runs one command on behalf of actor. Every error it returns is a *Error.
func (m *Manager) Execute(ctx context.Context, actor Actor, cmd Command) (*Result, error) {
	var (
		res *Result
		err error
	)

	if !actor.IsAdmin {
		err = &Error{Kind: KindForbidden, Message: "Admin access required"}
	} else {
		switch c := cmd.(type) {
		case UploadCommand:
			var view *ImageView
			if view, err = m.Upload(ctx, actor, c); err == nil {
				res = &Result{Message: "Image uploaded successfully", Image: view}
			}
		case ListCommand:
			var views []ImageView
			if views, err = m.List(ctx, c); err == nil {
				res = &Result{Images: views}
			}
		case DeleteCommand:
			if err = m.Delete(ctx, c); err == nil {
				res = &Result{Message: "Image deleted"}
			}
		case ReorderCommand:
			if err = m.Reorder(ctx, c); err == nil {
				res = &Result{Message: "Images reordered"}
			}
		case SetCoverCommand:
			if err = m.SetCover(ctx, c); err == nil {
				res = &Result{Message: "Cover image updated"}
			}
		case UpdateAltCommand:
			if err = m.UpdateAlt(ctx, c); err == nil {
				res = &Result{Message: "Alt text updated"}
			}
		default:
			err = invalid("Invalid action")
		}
	}

	action := "unknown"
	if cmd != nil {
		action = cmd.action()
	}
	if err != nil {
		err = asError(err, "Internal server error")
		m.logFailure(ctx, actor, action, err)
		metrics.RecordImageOperation(action, KindOf(err).outcome())
		return nil, err
	}
	metrics.RecordImageOperation(action, "ok")
	return res, nil
}

func (m *Manager) logFailure(ctx context.Context, actor Actor, action string, err error) {
	var ge *Error
	errors.As(err, &ge)
	if ge.Kind == KindInternal {
		logging.Ctx(ctx).Error().Err(ge.Err).Str("action", action).Uint("user_id", actor.UserID).Msg(ge.Message)
		return
	}
	logging.Ctx(ctx).Debug().Err(ge.Err).Str("action", action).Str("reason", ge.Message).Msg("gallery: command rejected")
}

// List returns a beach's images ordered by position. Equal positions, which a
// partial reorder can leave behind, fall back to natural filename order.
func (m *Manager) List(ctx context.Context, cmd ListCommand) ([]ImageView, error) {
	if err := validateCommand(cmd, "Beach ID is required"); err != nil {
		return nil, err
	}

	images, err := database.ListBeachImages(ctx, m.db, cmd.BeachID)
	if err != nil {
		return nil, internal("Failed to load images", err)
	}

	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.OriginalFilename != b.OriginalFilename {
			return natsort.Compare(a.OriginalFilename, b.OriginalFilename)
		}
		return a.ID < b.ID
	})

	views := make([]ImageView, 0, len(images))
	for _, img := range images {
		views = append(views, m.view(img))
	}
	return views, nil
}

func (m *Manager) view(img models.BeachImage) ImageView {
	return ImageView{
		BeachImage:            img,
		URLs:                  m.imageURLs(img.Filename),
		FileSizeFormatted:     media.FormatFileSize(img.FileSize),
		OriginalSizeFormatted: media.FormatFileSize(img.OriginalSize),
		SavingsFormatted:      media.FormatFileSize(img.SavingsBytes),
		SavingsPercent:        media.SavingsPercent(img.OriginalSize, img.SavingsBytes),
	}
}

func (m *Manager) imageURLs(filename string) media.ImageURLs {
	return media.BuildImageURLs(m.cfg.MediaBaseURL, filename)
}

func (m *Manager) publish(action string, beachID, imageID uint) {
	if m.events != nil {
		m.events.PublishImageEvent(action, beachID, imageID)
	}
}

// asError passes *Error values through and wraps anything else as internal.
func asError(err error, msg string) error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return internal(msg, err)
}
