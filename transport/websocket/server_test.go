package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

const emptyBoard = `[null,null,null,null,null,null,null,null,null]`

type peer struct {
	t    *testing.T
	conn *websocket.Conn
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := discardLogger()
	hub := NewHub(logger)
	manager := usecase.NewRoomManager(logger, repository.NewMemoryPlayerRepository(), repository.NewMemoryRoomRepository(), hub)
	server := New(logger, hub, manager, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(server.Router(ctx))

	t.Cleanup(func() {
		cancel()
		hub.Close()
		ts.Close()
	})

	return ts
}

func dial(t *testing.T, ts *httptest.Server) *peer {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	return &peer{t: t, conn: conn}
}

func (that *peer) emit(event string, payload any) {
	that.t.Helper()

	data, err := protocol.Encode(event, payload)
	require.NoError(that.t, err)
	require.NoError(that.t, that.conn.WriteMessage(websocket.TextMessage, data))
}

func (that *peer) raw(data string) {
	that.t.Helper()

	require.NoError(that.t, that.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

func (that *peer) expect(event string) json.RawMessage {
	that.t.Helper()

	require.NoError(that.t, that.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, data, err := that.conn.ReadMessage()
	require.NoError(that.t, err)

	var msg protocol.Message
	require.NoError(that.t, json.Unmarshal(data, &msg))
	require.Equal(that.t, event, msg.Event, string(data))

	return msg.Payload
}

func (that *peer) expectReason(event string) string {
	that.t.Helper()

	var reason string
	require.NoError(that.t, json.Unmarshal(that.expect(event), &reason))

	return reason
}

func (that *peer) join(name, room string) {
	that.t.Helper()

	that.emit(protocol.EventJoinGame, protocol.JoinGamePayload{PlayerName: name, Room: room})
}

func (that *peer) move(room string, index int) {
	that.t.Helper()

	that.emit(protocol.EventMakeMove, protocol.MakeMovePayload{Room: room, Index: &index})
}

func gameJSON(board string, turn tictactoe.Mark) string {
	return `{"board":` + board + `,"turn":"` + string(turn) + `"}`
}

// seatPair joins Alice and Bob into room and drains the join pushes.
func seatPair(t *testing.T, ts *httptest.Server, room string) (*peer, *peer) {
	t.Helper()

	alice := dial(t, ts)
	alice.join("Alice", room)
	alice.expect(protocol.EventPlayerAssign)
	alice.expect(protocol.EventGameUpdate)

	bob := dial(t, ts)
	bob.join("Bob", room)
	bob.expect(protocol.EventPlayerAssign)
	bob.expect(protocol.EventGameUpdate)
	alice.expect(protocol.EventGameUpdate)

	return alice, bob
}

func TestServer_Join(t *testing.T) {
	t.Run("First and second joiners get X and O and the unchanged game", func(t *testing.T) {
		// Given: an empty room "r1"
		ts := newTestServer(t)
		alice := dial(t, ts)
		bob := dial(t, ts)

		// When: Alice joins
		alice.join("Alice", "r1")

		// Then: she is X with a fresh board
		assert.JSONEq(t, `"X"`, string(alice.expect(protocol.EventPlayerAssign)))
		assert.JSONEq(t, gameJSON(emptyBoard, tictactoe.PlayerX), string(alice.expect(protocol.EventGameUpdate)))

		// When: Bob joins
		bob.join("Bob", "r1")

		// Then: Bob is O and both see X to move
		assert.JSONEq(t, `"O"`, string(bob.expect(protocol.EventPlayerAssign)))
		assert.JSONEq(t, gameJSON(emptyBoard, tictactoe.PlayerX), string(bob.expect(protocol.EventGameUpdate)))
		assert.JSONEq(t, gameJSON(emptyBoard, tictactoe.PlayerX), string(alice.expect(protocol.EventGameUpdate)))
	})

	t.Run("A third joiner is rejected", func(t *testing.T) {
		// Given: a full room
		ts := newTestServer(t)
		seatPair(t, ts, "r1")
		carol := dial(t, ts)

		// When: Carol joins
		carol.join("Carol", "r1")

		// Then: she gets a join error
		assert.Equal(t, "Room is full", carol.expectReason(protocol.EventJoinError))
	})

	t.Run("Empty name or room is rejected", func(t *testing.T) {
		// Given: a connected client
		ts := newTestServer(t)
		alice := dial(t, ts)

		// When: she joins without a name, then without a room
		alice.join("", "r1")
		alice.join("Alice", "")

		// Then: each is rejected
		assert.Equal(t, "Player name is required", alice.expectReason(protocol.EventJoinError))
		assert.Equal(t, "Room name is required", alice.expectReason(protocol.EventJoinError))
	})
}

func TestServer_MakeMove(t *testing.T) {
	t.Run("Accepted move is broadcast and an occupied cell is refused to the mover only", func(t *testing.T) {
		// Given: Alice and Bob seated in "r1"
		ts := newTestServer(t)
		alice, bob := seatPair(t, ts, "r1")
		afterMove := gameJSON(`[null,null,null,null,"X",null,null,null,null]`, tictactoe.PlayerO)

		// When: Alice takes the centre
		alice.move("r1", 4)

		// Then: both see it with O to move
		assert.JSONEq(t, afterMove, string(alice.expect(protocol.EventGameUpdate)))
		assert.JSONEq(t, afterMove, string(bob.expect(protocol.EventGameUpdate)))

		// When: Bob tries the same cell
		bob.move("r1", 4)

		// Then: only Bob is told
		assert.Equal(t, "Cell already occupied", bob.expectReason(protocol.EventInvalidMove))

		// And: Alice's next frame is the following chat, not a rejection
		bob.emit(protocol.EventChatMessage, protocol.ChatPayload{Room: "r1", Message: entity.ChatMessage{Player: "Bob", Message: "oops"}})
		alice.expect(protocol.EventChatMessage)

		// When: Alice clicks her own cell while it is Bob's turn
		alice.move("r1", 4)

		// Then: the occupied cell is what she is told about
		assert.Equal(t, "Cell already occupied", alice.expectReason(protocol.EventInvalidMove))
	})

	t.Run("Out of turn and out of range moves are refused", func(t *testing.T) {
		// Given: Alice and Bob seated in "r1"
		ts := newTestServer(t)
		_, bob := seatPair(t, ts, "r1")

		// When: Bob moves first, then picks cell 9, then omits the index
		bob.move("r1", 0)
		bob.move("r1", 9)
		bob.emit(protocol.EventMakeMove, map[string]string{"room": "r1"})

		// Then: each gets its own reason
		assert.Equal(t, "Not your turn", bob.expectReason(protocol.EventInvalidMove))
		assert.Equal(t, "Invalid cell index", bob.expectReason(protocol.EventInvalidMove))
		assert.Equal(t, "Invalid cell index", bob.expectReason(protocol.EventInvalidMove))
	})

	t.Run("Moves wait for an opponent", func(t *testing.T) {
		// Given: Alice alone in "r1"
		ts := newTestServer(t)
		alice := dial(t, ts)
		alice.join("Alice", "r1")
		alice.expect(protocol.EventPlayerAssign)
		alice.expect(protocol.EventGameUpdate)

		// When: she moves
		alice.move("r1", 0)

		// Then: it is refused
		assert.Equal(t, "Waiting for an opponent", alice.expectReason(protocol.EventInvalidMove))
	})
}

func TestServer_Chat(t *testing.T) {
	t.Run("Chat is relayed verbatim to both players in order", func(t *testing.T) {
		// Given: Alice and Bob seated in "r1"
		ts := newTestServer(t)
		alice, bob := seatPair(t, ts, "r1")

		// When: Alice sends two messages
		for _, text := range []string{"hi", "good luck"} {
			alice.emit(protocol.EventChatMessage, protocol.ChatPayload{
				Room:    "r1",
				Message: entity.ChatMessage{Player: "Alice", Message: text},
			})
		}

		// Then: both receive them in order, sender included
		for _, p := range []*peer{alice, bob} {
			assert.JSONEq(t, `{"player":"Alice","message":"hi"}`, string(p.expect(protocol.EventChatMessage)))
			assert.JSONEq(t, `{"player":"Alice","message":"good luck"}`, string(p.expect(protocol.EventChatMessage)))
		}
	})

	t.Run("Chat from outside the room is refused", func(t *testing.T) {
		// Given: a client that never joined
		ts := newTestServer(t)
		seatPair(t, ts, "r1")
		mallory := dial(t, ts)

		// When: it chats into "r1"
		mallory.emit(protocol.EventChatMessage, protocol.ChatPayload{Room: "r1", Message: entity.ChatMessage{Player: "M", Message: "x"}})

		// Then: it is told it is not in the room
		assert.Equal(t, "You are not in this room", mallory.expectReason(protocol.EventError))
	})
}

func TestServer_Lifecycle(t *testing.T) {
	t.Run("Malformed frames and unknown events are skipped", func(t *testing.T) {
		// Given: a connected client
		ts := newTestServer(t)
		alice := dial(t, ts)

		// When: it sends garbage, an unknown event, a bad payload, then a valid join
		alice.raw(`not json`)
		alice.raw(`{"event":"dance","payload":{}}`)
		alice.raw(`{"event":"join_game","payload":"nope"}`)
		alice.join("Alice", "r1")

		// Then: only the bad payload is answered and the connection still works
		assert.Equal(t, "Malformed request", alice.expectReason(protocol.EventJoinError))
		alice.expect(protocol.EventPlayerAssign)
	})

	t.Run("Disconnect frees the seat and resets the board", func(t *testing.T) {
		// Given: a game in progress
		ts := newTestServer(t)
		alice, bob := seatPair(t, ts, "r1")
		alice.move("r1", 0)
		alice.expect(protocol.EventGameUpdate)
		bob.expect(protocol.EventGameUpdate)

		// When: Alice drops
		require.NoError(t, alice.conn.Close())

		// Then: Bob is told and waits on a fresh board
		assert.JSONEq(t, `"Alice"`, string(bob.expect(protocol.EventPlayerLeft)))
		assert.JSONEq(t, gameJSON(emptyBoard, tictactoe.PlayerX), string(bob.expect(protocol.EventGameUpdate)))

		// And: a newcomer can take the free seat
		carol := dial(t, ts)
		carol.join("Carol", "r1")
		assert.JSONEq(t, `"X"`, string(carol.expect(protocol.EventPlayerAssign)))
	})

	t.Run("New game is only allowed after the game is finished", func(t *testing.T) {
		// Given: a running game
		ts := newTestServer(t)
		alice, bob := seatPair(t, ts, "r1")

		// When: Alice asks for a new game too early
		alice.emit(protocol.EventNewGame, protocol.RoomPayload{Room: "r1"})

		// Then: it is refused
		assert.Equal(t, "Game is still in progress", alice.expectReason(protocol.EventError))

		// When: X wins on the top row and asks again
		for i, cell := range []int{0, 3, 1, 4, 2} {
			mover := alice
			if i%2 == 1 {
				mover = bob
			}

			mover.move("r1", cell)
			alice.expect(protocol.EventGameUpdate)
			bob.expect(protocol.EventGameUpdate)
		}

		alice.emit(protocol.EventNewGame, protocol.RoomPayload{Room: "r1"})

		// Then: both get a fresh board
		assert.JSONEq(t, gameJSON(emptyBoard, tictactoe.PlayerX), string(alice.expect(protocol.EventGameUpdate)))
		assert.JSONEq(t, gameJSON(emptyBoard, tictactoe.PlayerX), string(bob.expect(protocol.EventGameUpdate)))
	})
}
