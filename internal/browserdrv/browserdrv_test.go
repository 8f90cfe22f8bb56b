package browserdrv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSniffer struct {
	calls int
}

func (r *recordingSniffer) OnResponse(info ResponseInfo) {
	r.calls++
}

func TestNew_DefaultsUserAgent(t *testing.T) {
	d := New(true, 30*time.Second, nil)
	assert.Equal(t, defaultUserAgent, d.userAgent)
	assert.True(t, d.headless)
}

func TestAttachDetachSniffer(t *testing.T) {
	d := New(true, 30*time.Second, nil)
	assert.Nil(t, d.sniffer)

	s := &recordingSniffer{}
	d.AttachSniffer(s)
	assert.Same(t, s, d.sniffer)

	d.DetachSniffer()
	assert.Nil(t, d.sniffer)
}

func TestExecAllocatorOpts_AddsCustomFlags(t *testing.T) {
	d := New(false, 30*time.Second, nil)
	opts := d.execAllocatorOpts()
	// chromedp's own defaults plus headless/disable-gpu/no-sandbox/
	// disable-dev-shm-usage/user-agent appended by the driver.
	assert.Greater(t, len(opts), 4)
}
