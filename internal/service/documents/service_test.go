package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/docflow-server/internal/cache"
	"github.com/vovakirdan/docflow-server/internal/config"
	"github.com/vovakirdan/docflow-server/internal/core"
	"github.com/vovakirdan/docflow-server/internal/notify"
	"github.com/vovakirdan/docflow-server/internal/objectstore"
	"github.com/vovakirdan/docflow-server/internal/store"
	"github.com/vovakirdan/docflow-server/internal/store/sqlite"
)

type memObjects struct {
	mu         sync.Mutex
	objects    map[string][]byte
	types      map[string]string
	failDelete bool
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memObjects) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return "mem://bucket/" + key, nil
}

func (m *memObjects) Get(_ context.Context, key string) (*objectstore.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	return &objectstore.Object{Body: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data)), ContentType: m.types[key]}, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errors.New("object store unavailable")
	}
	delete(m.objects, key)
	return nil
}

func (m *memObjects) PresignGet(_ context.Context, key, _ string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("mem://signed/%s?ttl=%s", key, ttl), nil
}

func (m *memObjects) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type memCache struct {
	mu   sync.Mutex
	docs map[string]store.Document
}

func (c *memCache) GetDocument(_ context.Context, id string) (*store.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &doc, nil
}

func (c *memCache) SetDocument(_ context.Context, doc *store.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[doc.ID] = *doc
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
	return nil
}

func (c *memCache) Close() error { return nil }

type recordedEvent struct {
	kind string
	doc  *store.Document
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) add(kind string, doc *store.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: kind, doc: doc})
}

func (r *recorder) DocumentUploaded(_ context.Context, doc *store.Document) { r.add("uploaded", doc) }
func (r *recorder) DocumentUpdated(_ context.Context, doc *store.Document)  { r.add("updated", doc) }
func (r *recorder) DocumentDeleted(_ context.Context, doc *store.Document)  { r.add("deleted", doc) }

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.kind)
	}
	return out
}

type fixture struct {
	svc     *Service
	store   *sqlite.SQLiteStore
	objects *memObjects
	cache   *memCache
	events  *recorder
	alice   *store.User
	bob     *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	alice, err := st.CreateUser(ctx, "alice@example.com", "Alice", "hash", store.RoleUser)
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob@example.com", "Bob", "hash", store.RoleUser)
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	f := &fixture{
		store:   st,
		objects: newMemObjects(),
		cache:   &memCache{docs: make(map[string]store.Document)},
		events:  &recorder{},
		alice:   alice,
		bob:     bob,
	}
	f.svc = New(Options{
		Store:   st,
		Objects: f.objects,
		Cache:   f.cache,
		Events:  f.events,
		Upload:  config.UploadConfig{MaxBytes: 1024, AllowedTypes: config.DefaultAllowedTypes},
	})
	return f
}

func textUpload(owner, name, body string) UploadInput {
	return UploadInput{
		OwnerID:  owner,
		Filename: name,
		Size:     int64(len(body)),
		Body:     strings.NewReader(body),
	}
}

func TestUploadStoresObjectAndRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, textUpload(f.alice.ID, "notes.txt", "hello world\n"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.FileType != "text/plain" || doc.FileSize != 12 {
		t.Fatalf("unexpected metadata: %+v", doc)
	}
	if !strings.HasPrefix(doc.StorageKey, "documents/") || !strings.HasSuffix(doc.StorageKey, "-notes.txt") {
		t.Fatalf("unexpected storage key %q", doc.StorageKey)
	}
	if !f.objects.has(doc.StorageKey) {
		t.Fatalf("object body was not stored")
	}

	stored, err := f.store.GetDocument(ctx, doc.ID, f.alice.ID)
	if err != nil {
		t.Fatalf("get stored document: %v", err)
	}
	if stored.StorageURL != "mem://bucket/"+doc.StorageKey {
		t.Fatalf("unexpected storage url %q", stored.StorageURL)
	}

	_, obj, err := f.svc.Download(ctx, doc.ID, f.alice.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer obj.Body.Close()
	body, _ := io.ReadAll(obj.Body)
	if string(body) != "hello world\n" {
		t.Fatalf("body not preserved across sniffing: %q", body)
	}

	if got := f.events.kinds(); len(got) != 1 || got[0] != "uploaded" {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"empty", textUpload(f.alice.ID, "a.txt", ""), ErrEmptyFile},
		{"too large", textUpload(f.alice.ID, "a.txt", strings.Repeat("a", 1025)), ErrFileTooLarge},
		{"executable", textUpload(f.alice.ID, "a.bin", "\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00"), ErrFileTypeNotAllowed},
		{"unknown owner", textUpload("ghost", "a.txt", "hi"), ErrOwnerNotFound},
		{"unknown category", func() UploadInput {
			in := textUpload(f.alice.ID, "a.txt", "hi")
			in.CategoryID = "nope"
			return in
		}(), ErrCategoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Upload(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if len(f.objects.objects) != 0 {
		t.Fatalf("rejected uploads must not reach object storage")
	}
	if len(f.events.kinds()) != 0 {
		t.Fatalf("rejected uploads must not emit events")
	}
}

func TestUploadSniffsPNG(t *testing.T) {
	f := newFixture(t)
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"

	doc, err := f.svc.Upload(context.Background(), textUpload(f.alice.ID, "pixel.txt", png))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.FileType != "image/png" {
		t.Fatalf("content type should come from the bytes, got %q", doc.FileType)
	}
}

func TestGetSignsURLAndHonorsOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, textUpload(f.alice.ID, "a.txt", "alpha"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	signed, err := f.svc.Get(ctx, doc.ID, f.alice.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.HasPrefix(signed.URL, "mem://signed/"+doc.StorageKey) || !strings.Contains(signed.URL, "ttl=5m0s") {
		t.Fatalf("unexpected signed url %q", signed.URL)
	}

	// The cache is warm now; bob must still not see alice's document.
	if _, err := f.svc.Get(ctx, doc.ID, f.bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	f.cache.Invalidate(ctx, doc.ID)
	if _, err := f.svc.Get(ctx, doc.ID, f.bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestUpdateInvalidatesCacheAndEmits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, textUpload(f.alice.ID, "a.txt", "alpha"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	cat, err := f.store.CreateCategory(ctx, "Reports", "#00ff00")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	name := "  renamed.txt "
	updated, err := f.svc.Update(ctx, doc.ID, f.alice.ID, store.DocumentPatch{Name: &name, CategoryID: &cat.ID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "renamed.txt" || updated.Category == nil || updated.Category.Name != "Reports" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if _, err := f.cache.GetDocument(ctx, doc.ID); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("cache entry should be invalidated")
	}

	blank := " "
	if _, err := f.svc.Update(ctx, doc.ID, f.alice.ID, store.DocumentPatch{Name: &blank}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := f.svc.Update(ctx, doc.ID, f.bob.ID, store.DocumentPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob must not update alice's document, got %v", err)
	}

	if got := f.events.kinds(); strings.Join(got, ",") != "uploaded,updated" {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestDeleteRemovesObjectRowAndCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, textUpload(f.alice.ID, "a.txt", "alpha"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := f.svc.Delete(ctx, doc.ID, f.bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob must not delete alice's document, got %v", err)
	}
	if err := f.svc.Delete(ctx, doc.ID, f.alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.objects.has(doc.StorageKey) {
		t.Fatalf("object should be removed")
	}
	if _, err := f.svc.Get(ctx, doc.ID, f.alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := f.svc.Delete(ctx, doc.ID, f.alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}

	f.events.mu.Lock()
	last := f.events.events[len(f.events.events)-1]
	f.events.mu.Unlock()
	if last.kind != "deleted" || last.doc.ID != doc.ID {
		t.Fatalf("unexpected last event: %+v", last)
	}
}

// rowDeleteFails wraps the sqlite store so that removing a document row fails.
type rowDeleteFails struct {
	*sqlite.SQLiteStore
}

func (rowDeleteFails) DeleteDocument(context.Context, string, string) error {
	return errors.New("disk I/O error")
}

func TestDeleteKeepsObjectWhenRowDeleteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, textUpload(f.alice.ID, "a.txt", "alpha"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	svc := New(Options{
		Store:   rowDeleteFails{f.store},
		Objects: f.objects,
		Cache:   f.cache,
		Events:  f.events,
		Upload:  config.UploadConfig{MaxBytes: 1024, AllowedTypes: config.DefaultAllowedTypes},
	})
	if err := svc.Delete(ctx, doc.ID, f.alice.ID); err == nil {
		t.Fatalf("expected delete to fail")
	}
	if !f.objects.has(doc.StorageKey) {
		t.Fatalf("object must survive a failed row delete")
	}
	if _, obj, err := f.svc.Download(ctx, doc.ID, f.alice.ID); err != nil {
		t.Fatalf("document should still download: %v", err)
	} else {
		obj.Body.Close()
	}
	if kinds := f.events.kinds(); kinds[len(kinds)-1] == "deleted" {
		t.Fatalf("failed delete must not be announced: %v", kinds)
	}
}

func TestDeleteSucceedsWhenObjectDeleteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, textUpload(f.alice.ID, "a.txt", "alpha"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	f.objects.mu.Lock()
	f.objects.failDelete = true
	f.objects.mu.Unlock()

	if err := f.svc.Delete(ctx, doc.ID, f.alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, doc.ID, f.alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("row should be gone, got %v", err)
	}
	if kinds := f.events.kinds(); kinds[len(kinds)-1] != "deleted" {
		t.Fatalf("delete should be announced: %v", kinds)
	}
}

func TestListClampsPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := range 3 {
		if _, err := f.svc.Upload(ctx, textUpload(f.alice.ID, fmt.Sprintf("f%d.txt", i), "x")); err != nil {
			t.Fatalf("upload: %v", err)
		}
	}

	docs, q, err := f.svc.List(ctx, store.DocumentQuery{OwnerID: f.alice.ID, Page: 0, Limit: 1000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if q.Page != 1 || q.Limit != maxPageSize || len(docs) != 3 {
		t.Fatalf("unexpected page %+v with %d docs", q, len(docs))
	}

	docs, _, err = f.svc.List(ctx, store.DocumentQuery{OwnerID: f.bob.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("bob should not see alice's documents")
	}
}

// TestUploadReachesOnlyOwnerConnections drives a real hub through the emitter.
func TestUploadReachesOnlyOwnerConnections(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := core.NewHub(nil)
	go hub.Run(ctx)
	<-hub.Ready()

	f.svc.events = notify.NewEmitter(hub, f.store, nil)

	aliceConn := core.NewClient("a1", f.alice.ID, 0)
	bobConn := core.NewClient("b1", f.bob.ID, 0)
	for _, c := range []*core.Client{aliceConn, bobConn} {
		hub.RegisterClient(c)
		c.Commands <- &core.Command{Kind: core.CommandJoinRoom, UserID: c.Subject}
	}
	waitActive(t, hub, 2)

	doc, err := f.svc.Upload(ctx, textUpload(f.alice.ID, "report.txt", "quarterly"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	got := collect(aliceConn, 2)
	if len(got) != 2 || got[0].Kind != core.EventDocumentUploaded || got[1].Kind != core.EventNotificationNew {
		t.Fatalf("alice expected upload then notification, got %v", kindsOf(got))
	}
	if got[0].Document.ID != doc.ID || got[1].Notification.EntityID != doc.ID {
		t.Fatalf("events reference the wrong document")
	}
	if other := collect(bobConn, 1); len(other) != 0 {
		t.Fatalf("bob received %v", kindsOf(other))
	}

	notes, err := f.store.ListNotifications(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Type != store.NotificationDocumentUploaded {
		t.Fatalf("expected one durable notification, got %+v", notes)
	}
}

func waitActive(t *testing.T, hub *core.Hub, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		users, err := hub.ActiveUsers(context.Background())
		if err == nil && len(users) == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d active users", n)
}

// collect gathers up to n non-presence events, waiting briefly for each.
func collect(c *core.Client, n int) []*core.Event {
	var out []*core.Event
	timeout := time.After(300 * time.Millisecond)
	for len(out) < n {
		select {
		case ev := <-c.Events:
			if ev.Kind != core.EventActiveUsers {
				out = append(out, ev)
			}
		case <-timeout:
			return out
		}
	}
	return out
}

func kindsOf(events []*core.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind.String())
	}
	return out
}
