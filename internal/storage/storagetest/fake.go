// Package storagetest provides a storage.Blobs that signs URLs locally.
package storagetest

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/petermazzocco/project-journal/internal/storage"
)

type Object struct {
	Body        []byte
	ContentType string
}

// Fake produces S3 style signed URLs without any network traffic and keeps
// Put objects in memory.
type Fake struct {
	TTL time.Duration
	Now func() time.Time
	Err error

	mu          sync.Mutex
	readSigns   int
	uploadSigns int
	objects     map[string]Object
}

var _ storage.Blobs = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{TTL: time.Hour, Now: time.Now, objects: map[string]Object{}}
}

func (f *Fake) sign(key, method string, n int) string {
	q := url.Values{}
	q.Set("X-Amz-Date", f.Now().UTC().Format("20060102T150405Z"))
	q.Set("X-Amz-Expires", fmt.Sprint(int(f.TTL.Seconds())))
	q.Set("X-Amz-Signature", fmt.Sprintf("%s-%d", method, n))
	return "https://blobs.test/bucket/" + key + "?" + q.Encode()
}

func (f *Fake) SignRead(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.readSigns++
	return f.sign(key, "GET", f.readSigns), nil
}

func (f *Fake) SignUpload(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.uploadSigns++
	return f.sign(key, "PUT", f.uploadSigns), nil
}

func (f *Fake) Put(_ context.Context, key string, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.objects[key] = Object{Body: append([]byte(nil), body...), ContentType: contentType}
	return nil
}

func (f *Fake) ReadSigns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readSigns
}

func (f *Fake) UploadSigns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadSigns
}

func (f *Fake) Object(key string) (Object, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[key]
	return o, ok
}
