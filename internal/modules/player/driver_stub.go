//go:build !gstreamer

package player

import (
	"errors"
	"time"
)

// DefaultCrossfade keeps the previous sink mounted briefly so rotation
// transitions do not flash black.
const DefaultCrossfade = 1200 * time.Millisecond

// GstDriver is a stub when the gstreamer tag is not enabled.
type GstDriver struct {
	OnEnded func()
}

// NewGstDriver returns an error when the gstreamer build tag is missing.
func NewGstDriver(imagePipeline string, videoPipeline string, crossfade time.Duration) (*GstDriver, error) {
	return nil, errors.New("gstreamer build tag not enabled")
}

func (d *GstDriver) ShowImage(url string) error {
	return errors.New("gstreamer build tag not enabled")
}

func (d *GstDriver) PlayVideo(url string, muted bool) error {
	return errors.New("gstreamer build tag not enabled")
}

func (d *GstDriver) Resume() error { return errors.New("gstreamer build tag not enabled") }
func (d *GstDriver) Stop() error   { return errors.New("gstreamer build tag not enabled") }
