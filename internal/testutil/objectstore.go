package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/objectstore"
)

// MemObjectStore is an in-memory object store for service tests. Failures can
// be injected per operation with FailOn.
type MemObjectStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	fail    map[string]error
	calls   map[string]int
}

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// NewMemObjectStore returns an empty store.
func NewMemObjectStore() *MemObjectStore {
	return &MemObjectStore{
		objects: make(map[string]memObject),
		fail:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

// FailOn makes every call to op ("Put", "Get", "Delete", "Stat", "PresignGet",
// "Copy", "List") return err. Pass nil to clear.
func (m *MemObjectStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls returns how many times op was invoked.
func (m *MemObjectStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Has reports whether bucket/key exists.
func (m *MemObjectStore) Has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[bucket+"/"+key]
	return ok
}

// Remove deletes an object behind the service's back.
func (m *MemObjectStore) Remove(bucket, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
}

// Len returns the number of stored objects.
func (m *MemObjectStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *MemObjectStore) enter(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.fail[op]
}

func (m *MemObjectStore) Put(_ context.Context, bucket, key string, r io.Reader, size int64, contentType string, _ map[string]string) error {
	if err := m.enter("Put"); err != nil {
		return apperr.Wrap(apperr.StorageUnavailable, "mem.Put", err).WithObject(bucket, key)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return apperr.Wrap(apperr.StorageUnavailable, "mem.Put", err).WithObject(bucket, key)
	}
	if int64(len(data)) != size {
		return apperr.Wrap(apperr.StorageUnavailable, "mem.Put",
			fmt.Errorf("read %d bytes, want %d", len(data), size)).WithObject(bucket, key)
	}

	m.mu.Lock()
	m.objects[bucket+"/"+key] = memObject{data: data, contentType: contentType, modified: time.Now()}
	m.mu.Unlock()
	return nil
}

func (m *MemObjectStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	if err := m.enter("Get"); err != nil {
		return nil, objectstore.ObjectInfo{}, apperr.Wrap(apperr.StorageUnavailable, "mem.Get", err).WithObject(bucket, key)
	}
	obj, info, ok := m.lookup(bucket, key)
	if !ok {
		return nil, objectstore.ObjectInfo{}, apperr.E(apperr.ObjectNotFound, "mem.Get", "no such key").WithObject(bucket, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

func (m *MemObjectStore) Delete(_ context.Context, bucket, key string) error {
	if err := m.enter("Delete"); err != nil {
		return apperr.Wrap(apperr.StorageUnavailable, "mem.Delete", err).WithObject(bucket, key)
	}
	m.Remove(bucket, key)
	return nil
}

func (m *MemObjectStore) Stat(_ context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	if err := m.enter("Stat"); err != nil {
		return objectstore.ObjectInfo{}, apperr.Wrap(apperr.StorageUnavailable, "mem.Stat", err).WithObject(bucket, key)
	}
	_, info, ok := m.lookup(bucket, key)
	if !ok {
		return objectstore.ObjectInfo{}, apperr.E(apperr.ObjectNotFound, "mem.Stat", "no such key").WithObject(bucket, key)
	}
	return info, nil
}

func (m *MemObjectStore) PresignGet(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if err := m.enter("PresignGet"); err != nil {
		return "", apperr.Wrap(apperr.StorageUnavailable, "mem.PresignGet", err).WithObject(bucket, key)
	}
	return fmt.Sprintf("https://objects.test/%s/%s?ttl=%d&n=%d", bucket, key, int(ttl.Seconds()), m.Calls("PresignGet")), nil
}

func (m *MemObjectStore) Copy(_ context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := m.enter("Copy"); err != nil {
		return apperr.Wrap(apperr.StorageUnavailable, "mem.Copy", err).WithObject(srcBucket, srcKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[srcBucket+"/"+srcKey]
	if !ok {
		return apperr.E(apperr.ObjectNotFound, "mem.Copy", "no such key").WithObject(srcBucket, srcKey)
	}
	m.objects[dstBucket+"/"+dstKey] = memObject{data: append([]byte(nil), obj.data...), contentType: obj.contentType, modified: time.Now()}
	return nil
}

func (m *MemObjectStore) List(_ context.Context, bucket, prefix string, _ bool) ([]objectstore.ObjectInfo, error) {
	if err := m.enter("List"); err != nil {
		return nil, apperr.Wrap(apperr.StorageUnavailable, "mem.List", err).WithObject(bucket, prefix)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []objectstore.ObjectInfo
	for full, obj := range m.objects {
		b, key, _ := strings.Cut(full, "/")
		if b == bucket && strings.HasPrefix(key, prefix) {
			out = append(out, info(key, obj))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemObjectStore) lookup(bucket, key string) (memObject, objectstore.ObjectInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return memObject{}, objectstore.ObjectInfo{}, false
	}
	return obj, info(key, obj), true
}

func info(key string, obj memObject) objectstore.ObjectInfo {
	sum := md5.Sum(obj.data)
	return objectstore.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ETag:         hex.EncodeToString(sum[:]),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}
}
