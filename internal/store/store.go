package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned (wrapped) when a record does not exist or is not visible to the caller.
var ErrNotFound = errors.New("not found")

// Role distinguishes administrators from regular users.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account in the system.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Category groups documents.
type Category struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
}

// Document is the metadata row for an uploaded file. The body lives in object storage under StorageKey.
type Document struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	CategoryID  *string
	Category    *Category // populated on reads
	StorageKey  string
	StorageURL  string
	FileSize    int64
	FileType    string
	CreatedAt   time.Time
}

// NotificationType is the event vocabulary persisted with a notification.
type NotificationType string

const (
	NotificationDocumentUploaded NotificationType = "document:uploaded"
	NotificationDocumentUpdated  NotificationType = "document:updated"
	NotificationDocumentDeleted  NotificationType = "document:deleted"
)

// Notification is the durable record of a lifecycle event for one user.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	EntityID  string // id of the document the notification is about, if any
	Message   string
	Read      bool
	CreatedAt time.Time
}

// DocumentQuery filters and paginates an owner's documents.
type DocumentQuery struct {
	OwnerID    string
	Page       int
	Limit      int
	Search     string // substring match on name
	CategoryID string
}

// Offset returns the row offset for the 1-based page.
func (q DocumentQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// DocumentPatch holds the mutable fields of a document; nil fields are left unchanged.
type DocumentPatch struct {
	Name        *string
	Description *string
	CategoryID  *string
}

// Stats aggregates row counts for the admin dashboard.
type Stats struct {
	Users         int
	Documents     int
	Categories    int
	Notifications int
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, email, name, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers returns every user ordered by creation time.
	ListUsers(ctx context.Context) ([]*User, error)

	// UpdateUserRole changes a user's role.
	UpdateUserRole(ctx context.Context, id string, role Role) error
}

// DocumentStore handles document metadata persistence.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *Document) error

	// GetDocument returns the document only if it belongs to ownerID.
	GetDocument(ctx context.Context, id, ownerID string) (*Document, error)

	// ListDocuments returns one page of an owner's documents, newest first.
	ListDocuments(ctx context.Context, q DocumentQuery) ([]*Document, error)

	UpdateDocument(ctx context.Context, id, ownerID string, patch DocumentPatch) (*Document, error)

	DeleteDocument(ctx context.Context, id, ownerID string) error
}

// CategoryStore handles category persistence.
type CategoryStore interface {
	CreateCategory(ctx context.Context, name, color string) (*Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
}

// NotificationStore handles durable notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error

	// ListNotifications returns a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string) ([]*Notification, error)

	MarkNotificationRead(ctx context.Context, id, userID string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	DocumentStore
	CategoryStore
	NotificationStore

	Stats(ctx context.Context) (*Stats, error)

	// Close closes the underlying database connection.
	Close() error
}
