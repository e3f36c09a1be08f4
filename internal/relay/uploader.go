package relay

import (
	"context"
	"fmt"

	"github.com/takeshy/photorelay/internal/media"
)

// Messenger sends files and text to one chat destination
type Messenger interface {
	SendPhoto(ctx context.Context, path, caption string) error
	SendVideo(ctx context.Context, path, caption string) error
	SendAnimation(ctx context.Context, path, caption string) error
	SendDocument(ctx context.Context, path, caption string) error
	SendMessage(ctx context.Context, text string) error
}

// Delivery is the result of one upload attempt
type Delivery struct {
	OK  bool
	Err error // wraps ErrTransport when OK is false
}

// Uploader dispatches a plan to the matching Messenger call and turns any
// failure into a Delivery instead of an error
type Uploader struct {
	messenger Messenger
}

// NewUploader creates an uploader backed by m
func NewUploader(m Messenger) *Uploader {
	return &Uploader{messenger: m}
}

// Upload sends the plan's file with caption
func (u *Uploader) Upload(ctx context.Context, plan Plan, caption string) (d Delivery) {
	defer func() {
		if r := recover(); r != nil {
			d = Delivery{Err: fmt.Errorf("%w: panic: %v", ErrTransport, r)}
		}
	}()

	var err error
	switch plan.Action {
	case ActionSendDocument:
		err = u.messenger.SendDocument(ctx, plan.Path, caption)
	case ActionSendDirect, ActionSendCompressed:
		switch plan.Kind {
		case media.KindPhoto:
			err = u.messenger.SendPhoto(ctx, plan.Path, caption)
		case media.KindVideo:
			err = u.messenger.SendVideo(ctx, plan.Path, caption)
		case media.KindAnimation:
			err = u.messenger.SendAnimation(ctx, plan.Path, caption)
		default:
			err = fmt.Errorf("no upload path for %s", plan.Kind)
		}
	default:
		err = fmt.Errorf("nothing to upload for %s plan", plan.Action)
	}

	if err != nil {
		return Delivery{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	return Delivery{OK: true}
}

// Notify sends a plain text message, reporting failure as a Delivery
func (u *Uploader) Notify(ctx context.Context, text string) Delivery {
	if err := u.messenger.SendMessage(ctx, text); err != nil {
		return Delivery{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	return Delivery{OK: true}
}
