package academyclient

import (
	"strconv"
	"strings"
	"time"
)

const (
	referralCodeKey     = "affiliate_ref"
	referralCapturedKey = "affiliate_ref_captured"
)

// PendingReferral is an affiliate code seen before the visitor registered.
type PendingReferral struct {
	Code       string
	CapturedAt time.Time
}

// CaptureReferral remembers code until the visitor registers or the TTL
// passes. A later capture replaces an earlier one.
func (c *Client) CaptureReferral(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if err := c.store.Set(referralCodeKey, code); err != nil {
		return err
	}
	return c.store.Set(referralCapturedKey, strconv.FormatInt(c.now().Unix(), 10))
}

// PendingReferral returns the captured referral while it is still inside
// the TTL. Stale or unreadable captures are dropped.
func (c *Client) PendingReferral() (*PendingReferral, bool) {
	code, ok := c.store.Get(referralCodeKey)
	if !ok || code == "" {
		return nil, false
	}
	raw, _ := c.store.Get(referralCapturedKey)
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.ClearReferral()
		return nil, false
	}
	capturedAt := time.Unix(unix, 0)
	if c.now().Sub(capturedAt) > c.referralTTL {
		c.ClearReferral()
		return nil, false
	}
	return &PendingReferral{Code: code, CapturedAt: capturedAt}, true
}

func (c *Client) ClearReferral() {
	_ = c.store.Delete(referralCodeKey)
	_ = c.store.Delete(referralCapturedKey)
}
