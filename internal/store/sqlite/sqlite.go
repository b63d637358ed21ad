package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/docflow-server/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// ApplySchema creates all tables if they do not exist yet.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}

// ==== UserStore implementation ====

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var user store.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, name, passwordHash string, role store.Role) (*store.User, error) {
	if role == "" {
		role = store.RoleUser
	}
	id := uuid.NewString()
	now := s.now()
	query := `
		INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, email, name, passwordHash, role, now, now); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUserRole changes a user's role.
func (s *SQLiteStore) UpdateUserRole(ctx context.Context, id string, role store.Role) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, role, s.now(), id)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return requireAffected(result, "user")
}

func requireAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

// ==== CategoryStore implementation ====

// CreateCategory inserts a category.
func (s *SQLiteStore) CreateCategory(ctx context.Context, name, color string) (*store.Category, error) {
	category := &store.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: s.now(),
	}
	query := `INSERT INTO categories (id, name, color, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, category.ID, category.Name, category.Color, category.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return category, nil
}

// GetCategory retrieves a category by ID.
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*store.Category, error) {
	var c store.Category
	err := s.db.QueryRowContext(ctx, `SELECT id, name, color, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt)
	if err != nil {
		return nil, notFound("category", err)
	}
	return &c, nil
}

// ListCategories returns all categories in creation order.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]*store.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color, created_at FROM categories ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*store.Category, 0)
	for rows.Next() {
		var c store.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// ==== DocumentStore implementation ====

const documentSelect = `
	SELECT d.id, d.owner_id, d.name, d.description, d.category_id, d.storage_key, d.storage_url,
	       d.file_size, d.file_type, d.created_at,
	       c.id, c.name, c.color, c.created_at
	FROM documents d
	LEFT JOIN categories c ON c.id = d.category_id
`

func scanDocument(row rowScanner) (*store.Document, error) {
	var doc store.Document
	var categoryID sql.NullString
	var catID, catName, catColor sql.NullString
	var catCreated sql.NullTime
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Name,
		&doc.Description,
		&categoryID,
		&doc.StorageKey,
		&doc.StorageURL,
		&doc.FileSize,
		&doc.FileType,
		&doc.CreatedAt,
		&catID,
		&catName,
		&catColor,
		&catCreated,
	); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		doc.CategoryID = &categoryID.String
	}
	if catID.Valid {
		doc.Category = &store.Category{
			ID:        catID.String,
			Name:      catName.String,
			Color:     catColor.String,
			CreatedAt: catCreated.Time,
		}
	}
	return &doc, nil
}

// CreateDocument inserts doc, assigning ID and CreatedAt when empty.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *store.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now()
	}
	query := `
		INSERT INTO documents (id, owner_id, name, description, category_id, storage_key, storage_url, file_size, file_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		doc.ID, doc.OwnerID, doc.Name, doc.Description, doc.CategoryID,
		doc.StorageKey, doc.StorageURL, doc.FileSize, doc.FileType, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if doc.CategoryID != nil && doc.Category == nil {
		if category, catErr := s.GetCategory(ctx, *doc.CategoryID); catErr == nil {
			doc.Category = category
		}
	}
	return nil
}

// GetDocument returns the document only if it belongs to ownerID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id, ownerID string) (*store.Document, error) {
	row := s.db.QueryRowContext(ctx, documentSelect+` WHERE d.id = ? AND d.owner_id = ?`, id, ownerID)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, notFound("document", err)
	}
	return doc, nil
}

// ListDocuments returns one page of an owner's documents, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, q store.DocumentQuery) ([]*store.Document, error) {
	var where strings.Builder
	args := []any{q.OwnerID}
	where.WriteString(` WHERE d.owner_id = ?`)

	if q.Search != "" {
		where.WriteString(` AND d.name LIKE '%' || ? || '%'`)
		args = append(args, q.Search)
	}
	if q.CategoryID != "" {
		where.WriteString(` AND d.category_id = ?`)
		args = append(args, q.CategoryID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	args = append(args, limit, q.Offset())

	rows, err := s.db.QueryContext(ctx, documentSelect+where.String()+` ORDER BY d.created_at DESC, d.rowid DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*store.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateDocument applies patch to the owner's document and returns the fresh row.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, id, ownerID string, patch store.DocumentPatch) (*store.Document, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		if *patch.CategoryID == "" {
			args = append(args, nil)
		} else {
			args = append(args, *patch.CategoryID)
		}
	}

	if len(sets) > 0 {
		args = append(args, id, ownerID)
		query := `UPDATE documents SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND owner_id = ?`
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("update document: %w", err)
		}
		if err := requireAffected(result, "document"); err != nil {
			return nil, err
		}
	}

	return s.GetDocument(ctx, id, ownerID)
}

// DeleteDocument removes the owner's document row.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id, ownerID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireAffected(result, "document")
}

// ==== NotificationStore implementation ====

// CreateNotification inserts n, assigning ID and CreatedAt when empty.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *store.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	query := `
		INSERT INTO notifications (id, user_id, type, entity_id, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, n.ID, n.UserID, n.Type, n.EntityID, n.Message, n.Read, n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string) ([]*store.Notification, error) {
	query := `
		SELECT id, user_id, type, entity_id, message, read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*store.Notification, 0)
	for rows.Next() {
		var n store.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.EntityID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags the user's notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(result, "notification")
}

// ==== Stats ====

// Stats counts rows per table.
func (s *SQLiteStore) Stats(ctx context.Context) (*store.Stats, error) {
	var st store.Stats
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM notifications)
	`
	if err := s.db.QueryRowContext(ctx, query).Scan(&st.Users, &st.Documents, &st.Categories, &st.Notifications); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return &st, nil
}
