package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/realtime"
)

func newLiveServer(t *testing.T, feed *realtime.MemoryFeed, comments []models.Comment, reactions []models.Reaction) *httptest.Server {
	t.Helper()
	handler := NewLiveHandler(feed, &mockCommentService{
		ListFunc: func(ctx context.Context, drawingID, viewer uuid.UUID) ([]models.Comment, error) {
			return comments, nil
		},
	}, &mockReactionService{
		ListForDrawingFunc: func(ctx context.Context, drawingID uuid.UUID) ([]models.Reaction, error) {
			return reactions, nil
		},
	}, "")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/drawings/{id}/live", handler.Live)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func dialLive(t *testing.T, ts *httptest.Server, drawingID uuid.UUID) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/drawings/" + drawingID.String() + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	return conn
}

func readLive(t *testing.T, conn *websocket.Conn) LiveMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var msg LiveMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return msg
}

func waitForListeners(t *testing.T, feed *realtime.MemoryFeed, topic string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if feed.Listeners(topic) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d listeners on %s, got %d", want, topic, feed.Listeners(topic))
}

func TestLiveHandler_SnapshotThenMergedEvents(t *testing.T) {
	feed := realtime.NewMemoryFeed()
	drawingID := uuid.New()
	existing := models.Comment{ID: uuid.New(), DrawingID: drawingID, Content: "first"}
	ts := newLiveServer(t, feed, []models.Comment{existing}, []models.Reaction{
		{ID: uuid.New(), DrawingID: drawingID, UserID: uuid.New(), Emoji: "❤️"},
	})

	conn := dialLive(t, ts, drawingID)
	defer conn.Close()

	snapshot := readLive(t, conn)
	if snapshot.Type != LiveSnapshot || len(snapshot.Comments) != 1 || len(snapshot.Summary) != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	// Replaying a row the client already has is absorbed.
	ctx := context.Background()
	if err := realtime.PublishChange(ctx, feed, realtime.TableComments, realtime.EventInsert, existing.ID, drawingID, existing); err != nil {
		t.Fatalf("publish: %v", err)
	}
	added := models.Comment{ID: uuid.New(), DrawingID: drawingID, Content: "second"}
	if err := realtime.PublishChange(ctx, feed, realtime.TableComments, realtime.EventInsert, added.ID, drawingID, added); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := readLive(t, conn)
	if msg.Type != LiveComments || len(msg.Comments) != 2 || msg.Comments[1].Content != "second" {
		t.Fatalf("unexpected comments message %+v", msg)
	}

	reaction := models.Reaction{ID: uuid.New(), DrawingID: drawingID, UserID: uuid.New(), Emoji: "❤️"}
	if err := realtime.PublishChange(ctx, feed, realtime.TableReactions, realtime.EventInsert, reaction.ID, drawingID, reaction); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg = readLive(t, conn)
	if msg.Type != LiveReactions || len(msg.Summary) != 1 || msg.Summary[0].Count != 2 {
		t.Fatalf("unexpected reactions message %+v", msg)
	}

	if err := realtime.PublishChange(ctx, feed, realtime.TableCommentLikes, realtime.EventInsert, uuid.New(), drawingID, models.CommentLike{CommentID: added.ID}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg = readLive(t, conn)
	if msg.Type != LiveCommentLike || msg.Event == nil || msg.Event.Table != realtime.TableCommentLikes {
		t.Fatalf("unexpected like message %+v", msg)
	}
}

func TestLiveHandler_ReleasesSubscriptionsOnDisconnect(t *testing.T) {
	feed := realtime.NewMemoryFeed()
	drawingID := uuid.New()
	ts := newLiveServer(t, feed, nil, nil)
	commentsTopic := realtime.Topic(realtime.TableComments, drawingID)

	conn := dialLive(t, ts, drawingID)
	_ = readLive(t, conn)
	waitForListeners(t, feed, commentsTopic, 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	waitForListeners(t, feed, commentsTopic, 0)
	waitForListeners(t, feed, realtime.Topic(realtime.TableReactions, drawingID), 0)
	waitForListeners(t, feed, realtime.Topic(realtime.TableCommentLikes, drawingID), 0)
}

func TestLiveHandler_InvalidID(t *testing.T) {
	handler := NewLiveHandler(realtime.NewMemoryFeed(), &mockCommentService{}, &mockReactionService{}, "")
	req := httptest.NewRequest(http.MethodGet, "/api/drawings/x/live", nil)
	req.SetPathValue("id", "x")
	rr := httptest.NewRecorder()

	handler.Live(rr, req)
	assertErrorResponse(t, rr, http.StatusBadRequest, "Invalid drawing ID")
}

func TestLiveHandler_RejectsForeignOrigin(t *testing.T) {
	ts := newLiveServer(t, realtime.NewMemoryFeed(), nil, nil)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/drawings/" + uuid.New().String() + "/live"

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		_ = conn.Close()
		t.Fatal("expected foreign origin to be refused")
	}
	if resp == nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		host    string
		origin  string
		want    bool
	}{
		{"no origin header", "https://doodle.example.com", "doodle.example.com", "", true},
		{"matching base url", "https://doodle.example.com", "internal:8080", "https://doodle.example.com", true},
		{"scheme mismatch", "https://doodle.example.com", "doodle.example.com", "http://doodle.example.com", false},
		{"other site", "https://doodle.example.com", "doodle.example.com", "https://evil.example.com", false},
		{"same host without base url", "", "localhost:8080", "http://localhost:8080", true},
		{"other host without base url", "", "localhost:8080", "http://localhost:9999", false},
		{"garbage origin", "", "localhost:8080", "::", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/drawings/x/live", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := originChecker(tt.baseURL)(req); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
