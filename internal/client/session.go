package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/log"
	"github.com/vovakirdan/docflow-server/internal/proto"
)

// Suppression windows for the echoes of this session's own changes.
const (
	DefaultUploadTTL = 3 * time.Second
	DefaultEditTTL   = 5 * time.Second
)

// Session ties the REST client, the suppression ledger and the local view together.
// Changes made through a Session update the view directly and do not toast when echoed.
type Session struct {
	API      *API
	Consumer *Consumer
	User     proto.User

	UploadTTL time.Duration
	EditTTL   time.Duration

	log *zerolog.Logger
}

// NewSession wraps an authenticated API client.
func NewSession(api *API, user proto.User, notifier Notifier, logger *zerolog.Logger) *Session {
	return &Session{
		API:       api,
		Consumer:  NewConsumer(NewLedger(), notifier, logger),
		User:      user,
		UploadTTL: DefaultUploadTTL,
		EditTTL:   DefaultEditTTL,
		log:       log.OrNop(logger),
	}
}

// Close drops pending suppression entries.
func (s *Session) Close() {
	s.Consumer.Ledger().Close()
}

// Connect dials the push channel and joins the room of the session user.
func (s *Session) Connect(ctx context.Context) (*Conn, error) {
	conn, err := Dial(ctx, s.API.SocketURL(), s.API.Token())
	if err != nil {
		return nil, err
	}
	if err := conn.Join(ctx, s.User.ID); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Refresh reloads the first document page, the notification feed and the categories.
func (s *Session) Refresh(ctx context.Context, opts ListOptions) error {
	page, err := s.API.ListDocuments(ctx, opts)
	if err != nil {
		return err
	}
	notes, err := s.API.Notifications(ctx)
	if err != nil {
		return err
	}
	cats, err := s.API.Categories(ctx)
	if err != nil {
		return err
	}
	s.Consumer.SetDocuments(page.Data)
	s.Consumer.SetNotifications(notes)
	s.Consumer.SetCategories(cats)
	return nil
}

// Upload sends a file. The id is only known once the server answers, and the server
// pushes its events before responding, so suppression only covers echoes that arrive
// after the response. The local list is updated either way.
func (s *Session) Upload(ctx context.Context, req UploadRequest) (*proto.Document, error) {
	doc, err := s.API.Upload(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Consumer.Ledger().Suppress(KindUpload, doc.ID, s.UploadTTL)
	if doc.UserID == s.User.ID {
		s.Consumer.Handle(DocumentUploaded{Document: *doc})
	}
	s.log.Debug().Str("document_id", doc.ID).Msg("uploaded")
	return doc, nil
}

// Update edits a document. Suppression is armed before the request so the echo is
// silent no matter which arrives first, and released again if the request fails.
func (s *Session) Update(ctx context.Context, id string, patch DocumentPatch) (*proto.Document, error) {
	gen := s.Consumer.Ledger().Suppress(KindUpdate, id, s.EditTTL)
	doc, err := s.API.UpdateDocument(ctx, id, patch)
	if err != nil {
		s.Consumer.Ledger().Release(KindUpdate, id, gen)
		return nil, err
	}
	s.Consumer.Handle(DocumentUpdated{Document: *doc})
	return doc, nil
}

// Delete removes a document, armed the same way as Update.
func (s *Session) Delete(ctx context.Context, id string) error {
	gen := s.Consumer.Ledger().Suppress(KindDelete, id, s.EditTTL)
	if err := s.API.DeleteDocument(ctx, id); err != nil {
		s.Consumer.Ledger().Release(KindDelete, id, gen)
		return err
	}
	s.Consumer.Handle(DocumentDeleted{ID: id})
	return nil
}
