package core

import "testing"

func TestRouterEmitToEmptyRoomIsNoop(t *testing.T) {
	r := NewRouter()

	delivered, dropped := r.EmitToRoom("ghost", DocumentDeletedEvent("d1"))
	if delivered != 0 || dropped != 0 {
		t.Fatalf("expected no deliveries, got %d/%d", delivered, dropped)
	}
}

func TestRouterRoomIsolation(t *testing.T) {
	r := NewRouter()
	alice := NewClient("a", "alice", 4)
	bob := NewClient("b", "bob", 4)
	for _, c := range []*Client{alice, bob} {
		r.Connect(c)
		c.userID = c.Subject
		r.JoinRoom(c, c.Subject)
	}

	r.EmitToRoom("alice", DocumentDeletedEvent("d1"))
	if len(alice.Events) != 1 {
		t.Fatalf("alice should receive her event")
	}
	if len(bob.Events) != 0 {
		t.Fatalf("bob must not receive alice's event")
	}

	r.Broadcast(CategoryCreatedEvent(nil))
	if len(alice.Events) != 2 || len(bob.Events) != 1 {
		t.Fatalf("broadcast should reach everyone: alice=%d bob=%d", len(alice.Events), len(bob.Events))
	}
}

func TestRouterDisconnectForgetsEmptyRoom(t *testing.T) {
	r := NewRouter()
	c := NewClient("a", "alice", 1)
	r.Connect(c)
	c.userID = "alice"
	r.JoinRoom(c, "alice")

	r.Disconnect(c)
	if r.Members("alice") != 0 {
		t.Fatalf("room should be empty")
	}
	if _, ok := r.rooms["alice"]; ok {
		t.Fatalf("empty room should be removed")
	}
}

func TestRoomBroadcastDropsForFullQueue(t *testing.T) {
	room := NewRoom("alice")
	c := NewClient("a", "alice", 1)
	room.AddClient(c)

	room.Broadcast(DocumentDeletedEvent("d1"))
	delivered, dropped := room.Broadcast(DocumentDeletedEvent("d2"))
	if delivered != 0 || dropped != 1 {
		t.Fatalf("expected drop on full queue, got %d/%d", delivered, dropped)
	}
}
