package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/cache"
	"github.com/vovakirdan/docflow-server/internal/config"
	"github.com/vovakirdan/docflow-server/internal/log"
	"github.com/vovakirdan/docflow-server/internal/objectstore"
	"github.com/vovakirdan/docflow-server/internal/store"
)

// Common errors for document operations.
var (
	ErrNotFound           = errors.New("document not found")
	ErrOwnerNotFound      = errors.New("owner not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrEmptyFile          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file size exceeds the limit")
	ErrFileTypeNotAllowed = errors.New("file type is not allowed")
	ErrInvalidName        = errors.New("document name must not be empty")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	sniffLen        = 3072
)

// Events receives document lifecycle notifications. *notify.Emitter implements it.
type Events interface {
	DocumentUploaded(ctx context.Context, doc *store.Document)
	DocumentUpdated(ctx context.Context, doc *store.Document)
	DocumentDeleted(ctx context.Context, doc *store.Document)
}

// Options bundles the collaborators of Service.
type Options struct {
	Store   store.Store
	Objects objectstore.Store
	Cache   cache.Documents
	Events  Events
	Upload  config.UploadConfig
	// PresignExpiry bounds signed download links; defaults to objectstore.DefaultPresignExpiry.
	PresignExpiry time.Duration
	Logger        *zerolog.Logger
}

// Service provides document business logic.
type Service struct {
	store   store.Store
	objects objectstore.Store
	cache   cache.Documents
	events  Events
	upload  config.UploadConfig
	presign time.Duration
	log     *zerolog.Logger
}

// New creates a document service.
func New(opts Options) *Service {
	c := opts.Cache
	if c == nil {
		c = cache.Nop{}
	}
	presign := opts.PresignExpiry
	if presign <= 0 {
		presign = objectstore.DefaultPresignExpiry
	}
	upload := opts.Upload
	if upload.MaxBytes <= 0 {
		upload.MaxBytes = config.Default().Upload.MaxBytes
	}
	if len(upload.AllowedTypes) == 0 {
		upload.AllowedTypes = config.DefaultAllowedTypes
	}
	return &Service{
		store:   opts.Store,
		objects: opts.Objects,
		cache:   c,
		events:  opts.Events,
		upload:  upload,
		presign: presign,
		log:     log.OrNop(opts.Logger),
	}
}

// UploadInput describes a file received from a client.
type UploadInput struct {
	OwnerID     string
	Filename    string
	Description string
	CategoryID  string
	Size        int64
	Body        io.Reader
}

// Upload validates, stores and records a new document, then announces it to the owner.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*store.Document, error) {
	if in.Size <= 0 {
		return nil, ErrEmptyFile
	}
	if in.Size > s.upload.MaxBytes {
		return nil, ErrFileTooLarge
	}

	if _, err := s.store.GetUserByID(ctx, in.OwnerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("get owner: %w", err)
	}

	var category *store.Category
	if in.CategoryID != "" {
		cat, err := s.category(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		category = cat
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	if !s.allowed(mt) {
		s.log.Debug().Str("detected", mt.String()).Str("filename", in.Filename).Msg("upload rejected by type")
		return nil, ErrFileTypeNotAllowed
	}
	fileType, _, _ := strings.Cut(mt.String(), ";")

	name := objectstore.SanitizeFilename(in.Filename)
	key := objectstore.NewKey(name)
	body := io.MultiReader(bytes.NewReader(head), in.Body)
	url, err := s.objects.Put(ctx, key, body, in.Size, mt.String())
	if err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	doc := &store.Document{
		OwnerID:     in.OwnerID,
		Name:        name,
		Description: in.Description,
		Category:    category,
		StorageKey:  key,
		StorageURL:  url,
		FileSize:    in.Size,
		FileType:    fileType,
	}
	if category != nil {
		doc.CategoryID = &category.ID
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.log.Error().Err(delErr).Str("key", key).Msg("orphaned object after failed insert")
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.cacheDocument(ctx, doc)
	s.events.DocumentUploaded(ctx, doc)

	s.log.Info().
		Str("document_id", doc.ID).
		Str("owner_id", doc.OwnerID).
		Str("type", doc.FileType).
		Int64("size", doc.FileSize).
		Msg("document uploaded")
	return doc, nil
}

func (s *Service) allowed(mt *mimetype.MIME) bool {
	return slices.ContainsFunc(s.upload.AllowedTypes, mt.Is)
}

// List returns one page of the owner's documents.
func (s *Service) List(ctx context.Context, q store.DocumentQuery) ([]*store.Document, store.DocumentQuery, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	docs, err := s.store.ListDocuments(ctx, q)
	if err != nil {
		return nil, q, fmt.Errorf("list documents: %w", err)
	}
	return docs, q, nil
}

// Signed is a document together with a short-lived download link.
type Signed struct {
	*store.Document
	URL       string
	ExpiresAt time.Time
}

// Get returns the owner's document with a freshly signed URL.
func (s *Service) Get(ctx context.Context, id, ownerID string) (*Signed, error) {
	doc, err := s.lookup(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	url, err := s.objects.PresignGet(ctx, doc.StorageKey, doc.Name, s.presign)
	if err != nil {
		return nil, fmt.Errorf("sign url: %w", err)
	}
	return &Signed{Document: doc, URL: url, ExpiresAt: time.Now().Add(s.presign)}, nil
}

// Download opens the stored body of the owner's document. The caller closes the body.
func (s *Service) Download(ctx context.Context, id, ownerID string) (*store.Document, *objectstore.Object, error) {
	doc, err := s.lookup(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.objects.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open object: %w", err)
	}
	return doc, obj, nil
}

// Update edits the owner's document metadata and announces the new state.
func (s *Service) Update(ctx context.Context, id, ownerID string, patch store.DocumentPatch) (*store.Document, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		patch.Name = &name
	}
	if patch.CategoryID != nil && *patch.CategoryID != "" {
		if _, err := s.category(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	doc, err := s.store.UpdateDocument(ctx, id, ownerID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update document: %w", err)
	}

	s.invalidate(ctx, id)
	s.events.DocumentUpdated(ctx, doc)
	return doc, nil
}

// Delete removes the metadata row and then the stored body, then announces the removal.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	doc, err := s.store.GetDocument(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get document: %w", err)
	}

	if err := s.store.DeleteDocument(ctx, id, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	// The row is gone; a body left behind is only logged.
	if err := s.objects.Delete(ctx, doc.StorageKey); err != nil {
		s.log.Error().Err(err).Str("key", doc.StorageKey).Msg("orphaned object after delete")
	}

	s.invalidate(ctx, id)
	s.events.DocumentDeleted(ctx, doc)
	return nil
}

// lookup serves metadata from cache when possible. Cached entries of other owners are treated as missing.
func (s *Service) lookup(ctx context.Context, id, ownerID string) (*store.Document, error) {
	doc, err := s.cache.GetDocument(ctx, id)
	switch {
	case err == nil:
		if doc.OwnerID != ownerID {
			return nil, ErrNotFound
		}
		return doc, nil
	case !errors.Is(err, cache.ErrMiss):
		s.log.Warn().Err(err).Str("document_id", id).Msg("cache read failed")
	}

	doc, err = s.store.GetDocument(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	s.cacheDocument(ctx, doc)
	return doc, nil
}

func (s *Service) category(ctx context.Context, id string) (*store.Category, error) {
	cat, err := s.store.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return cat, nil
}

func (s *Service) cacheDocument(ctx context.Context, doc *store.Document) {
	if err := s.cache.SetDocument(ctx, doc); err != nil {
		s.log.Warn().Err(err).Str("document_id", doc.ID).Msg("cache write failed")
	}
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("document_id", id).Msg("cache invalidation failed")
	}
}
