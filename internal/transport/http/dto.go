package http

import (
	"github.com/vovakirdan/docflow-server/internal/proto"
	"github.com/vovakirdan/docflow-server/internal/store"
)

func categoryDTO(c *store.Category) *proto.Category {
	if c == nil {
		return nil
	}
	return &proto.Category{ID: c.ID, Name: c.Name, Color: c.Color, CreatedAt: c.CreatedAt}
}

func documentDTO(d *store.Document) proto.Document {
	return proto.Document{
		ID:          d.ID,
		UserID:      d.OwnerID,
		Name:        d.Name,
		Description: d.Description,
		CategoryID:  d.CategoryID,
		Category:    categoryDTO(d.Category),
		StorageKey:  d.StorageKey,
		StorageURL:  d.StorageURL,
		FileSize:    d.FileSize,
		FileType:    d.FileType,
		CreatedAt:   d.CreatedAt,
	}
}

func notificationDTO(n *store.Notification) proto.Notification {
	return proto.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		EntityID:  n.EntityID,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func userDTO(u *store.User) proto.User {
	return proto.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
