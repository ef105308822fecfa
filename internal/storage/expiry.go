package storage

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

const amzDateFormat = "20060102T150405Z"

// ExpiresAt reads the expiry embedded in a signed URL. S3 style URLs carry
// X-Amz-Date plus X-Amz-Expires; SAS style URLs carry an RFC 3339 "se".
func ExpiresAt(signed string) (time.Time, bool) {
	if signed == "" {
		return time.Time{}, false
	}
	u, err := url.Parse(signed)
	if err != nil {
		return time.Time{}, false
	}
	q := u.Query()

	if se := q.Get("se"); se != "" {
		t, err := time.Parse(time.RFC3339, se)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	signedAt, err := time.Parse(amzDateFormat, q.Get("X-Amz-Date"))
	if err != nil {
		return time.Time{}, false
	}
	secs, err := strconv.Atoi(q.Get("X-Amz-Expires"))
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return signedAt.Add(time.Duration(secs) * time.Second), true
}

// Expired treats a URL without a readable expiry as expired.
func Expired(signed string, now time.Time) bool {
	exp, ok := ExpiresAt(signed)
	return !ok || !now.Before(exp)
}

// RefreshIfExpired returns current untouched while it is still valid and
// signs a new read URL for key otherwise. Concurrent callers may each sign;
// any unexpired URL is as good as another, so the last writer wins.
func RefreshIfExpired(ctx context.Context, blobs Blobs, key, current string, now time.Time) (string, bool, error) {
	if key == "" {
		return current, false, nil
	}
	if !Expired(current, now) {
		return current, false, nil
	}
	fresh, err := blobs.SignRead(ctx, key)
	if err != nil {
		return "", false, err
	}
	return fresh, true, nil
}
