//go:build gstreamer

package player

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
)

// DefaultCrossfade keeps the previous sink mounted briefly so rotation
// transitions do not flash black.
const DefaultCrossfade = 1200 * time.Millisecond

var gstInitOnce sync.Once

// GstDriver renders media with GStreamer pipelines built from templates.
// {url} is substituted into the template; images are expected to use
// imagefreeze so the still stays up until the pipeline is replaced.
type GstDriver struct {
	// OnEnded is invoked when the mounted video reaches EOS or errors.
	OnEnded func()

	mu         sync.Mutex
	imagePipe  string
	videoPipe  string
	crossfade  time.Duration
	current    *gst.Element
	watchedGen uint64
}

// NewGstDriver creates a driver from image and video pipeline templates.
func NewGstDriver(imagePipeline string, videoPipeline string, crossfade time.Duration) (*GstDriver, error) {
	if strings.TrimSpace(imagePipeline) == "" || strings.TrimSpace(videoPipeline) == "" {
		return nil, errors.New("pipeline templates required")
	}
	if crossfade <= 0 {
		crossfade = DefaultCrossfade
	}
	gstInitOnce.Do(func() {
		gst.Init(nil)
	})
	return &GstDriver{imagePipe: imagePipeline, videoPipe: videoPipeline, crossfade: crossfade}, nil
}

// ShowImage mounts a still.
func (d *GstDriver) ShowImage(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mountLocked(d.imagePipe, url, false, false)
}

// PlayVideo mounts a video from position zero.
func (d *GstDriver) PlayVideo(url string, muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mountLocked(d.videoPipe, url, muted, true)
}

// Resume restarts the mounted pipeline.
func (d *GstDriver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		return errors.New("nothing mounted")
	}
	return d.current.SetState(gst.StatePlaying)
}

// Stop unmounts the current pipeline.
func (d *GstDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.watchedGen++
	if d.current != nil {
		_ = d.current.SetState(gst.StateNull)
		d.current = nil
	}
	return nil
}

func (d *GstDriver) mountLocked(template string, url string, muted bool, watchEOS bool) error {
	spec := strings.ReplaceAll(template, "{url}", url)
	pipeline, err := gst.ParseLaunch(spec)
	if err != nil {
		return err
	}
	if muted {
		_ = pipeline.SetProperty("volume", 0.0)
	}
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return err
	}

	// Previous sink stays mounted for the crossfade window before it is
	// torn down.
	if d.current != nil {
		old := d.current
		fade := d.crossfade
		go func() {
			time.Sleep(fade)
			_ = old.SetState(gst.StateNull)
		}()
	}

	d.watchedGen++
	d.current = pipeline
	if watchEOS {
		go d.watchBus(pipeline, d.watchedGen)
	}
	return nil
}

// watchBus waits for EOS or a pipeline error and reports the end of the
// video. gen guards against a late message from a replaced pipeline.
func (d *GstDriver) watchBus(pipeline *gst.Element, gen uint64) {
	bus := pipeline.GetBus()
	if bus == nil {
		return
	}
	msg := bus.TimedPopFiltered(gst.ClockTimeNone, gst.MessageEOS|gst.MessageError)
	if msg == nil {
		return
	}

	d.mu.Lock()
	stale := gen != d.watchedGen
	d.mu.Unlock()
	if stale {
		return
	}
	if d.OnEnded != nil {
		d.OnEnded()
	}
}
