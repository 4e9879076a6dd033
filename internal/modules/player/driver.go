package player

import (
	"errors"

	"go.uber.org/zap"
)

// ErrAutoplayBlocked is returned by a driver when the output surface
// refuses to start a video without a user gesture.
var ErrAutoplayBlocked = errors.New("autoplay blocked")

// Driver renders media onto the output surface.
type Driver interface {
	ShowImage(url string) error
	PlayVideo(url string, muted bool) error
	Resume() error
	Stop() error
}

// LogDriver is the headless fallback used when no output surface is
// available. Stills rotate on their timers; videos stay mounted because
// there is nothing to report their end.
type LogDriver struct {
	Log *zap.Logger
}

func (d LogDriver) ShowImage(url string) error {
	d.Log.Info("show image", zap.String("url", url))
	return nil
}

func (d LogDriver) PlayVideo(url string, muted bool) error {
	d.Log.Info("play video", zap.String("url", url), zap.Bool("muted", muted))
	return nil
}

func (d LogDriver) Resume() error {
	d.Log.Info("resume")
	return nil
}

func (d LogDriver) Stop() error {
	d.Log.Info("stop")
	return nil
}
