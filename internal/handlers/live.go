package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/realtime"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

const liveWriteTimeout = 10 * time.Second

const (
	LiveSnapshot    = "snapshot"
	LiveComments    = "comments"
	LiveReactions   = "reactions"
	LiveCommentLike = "comment_like"
)

// LiveHandler streams a drawing page's comments and reactions over a websocket.
type LiveHandler struct {
	feed      realtime.Feed
	comments  services.CommentServiceInterface
	reactions services.ReactionServiceInterface
	upgrader  websocket.Upgrader
}

// NewLiveHandler accepts browser connections only from baseURL's origin. With
// no baseURL the origin must match the request host.
func NewLiveHandler(feed realtime.Feed, comments services.CommentServiceInterface, reactions services.ReactionServiceInterface, baseURL string) *LiveHandler {
	return &LiveHandler{
		feed:      feed,
		comments:  comments,
		reactions: reactions,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(baseURL),
		},
	}
}

func originChecker(baseURL string) func(r *http.Request) bool {
	var allowed *url.URL
	if u, err := url.Parse(strings.TrimSpace(baseURL)); err == nil && u.Host != "" {
		allowed = u
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Not a browser.
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		if allowed == nil {
			return strings.EqualFold(u.Host, r.Host)
		}
		return strings.EqualFold(u.Scheme, allowed.Scheme) && strings.EqualFold(u.Host, allowed.Host)
	}
}

type LiveMessage struct {
	Type      string                   `json:"type"`
	Comments  []models.Comment         `json:"comments,omitempty"`
	Reactions []models.Reaction        `json:"reactions,omitempty"`
	Summary   []models.ReactionSummary `json:"summary,omitempty"`
	Event     *realtime.ChangeEvent    `json:"event,omitempty"`
}

// Live subscribes before reading the initial lists, so nothing written in
// between is lost. Replayed events are absorbed by the views.
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	drawingID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing ID")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	commentSub, err := h.feed.Subscribe(ctx, realtime.Topic(realtime.TableComments, drawingID))
	if err != nil {
		log.Printf("Error subscribing to comments: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer commentSub.Close()

	reactionSub, err := h.feed.Subscribe(ctx, realtime.Topic(realtime.TableReactions, drawingID))
	if err != nil {
		log.Printf("Error subscribing to reactions: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer reactionSub.Close()

	likeSub, err := h.feed.Subscribe(ctx, realtime.Topic(realtime.TableCommentLikes, drawingID))
	if err != nil {
		log.Printf("Error subscribing to comment likes: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer likeSub.Close()

	comments, err := h.comments.List(ctx, drawingID, viewerID(r))
	if err != nil {
		log.Printf("Error listing comments: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	reactions, err := h.reactions.ListForDrawing(ctx, drawingID)
	if err != nil {
		log.Printf("Error listing reactions: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	out := &liveConn{conn: conn, cancel: cancel}
	defer out.close()

	out.send(LiveMessage{
		Type:      LiveSnapshot,
		Comments:  comments,
		Reactions: reactions,
		Summary:   contest.AggregateReactions(reactions),
	})

	commentView := realtime.NewView(comments, func(c models.Comment) uuid.UUID { return c.ID })
	reactionView := realtime.NewView(reactions, func(re models.Reaction) uuid.UUID { return re.ID })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return commentView.Sync(gctx, commentSub, func(items []models.Comment) {
			out.send(LiveMessage{Type: LiveComments, Comments: items})
		})
	})
	g.Go(func() error {
		return reactionView.Sync(gctx, reactionSub, func(items []models.Reaction) {
			out.send(LiveMessage{Type: LiveReactions, Reactions: items, Summary: contest.AggregateReactions(items)})
		})
	})
	g.Go(func() error {
		defer likeSub.Close()
		for {
			ev, err := likeSub.Next(gctx)
			if err != nil {
				if errors.Is(err, realtime.ErrSubscriptionClosed) || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			out.send(LiveMessage{Type: LiveCommentLike, Event: &ev})
		}
	})
	g.Go(func() error {
		// Client messages are ignored; a read error means the peer left.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return nil
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		out.close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("Live view for drawing %s ended: %v", drawingID, err)
	}
}

// liveConn serialises writes; gorilla connections allow one writer at a time.
type liveConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	once   sync.Once
}

func (c *liveConn) send(msg LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.cancel()
	}
}

func (c *liveConn) close() {
	c.once.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}
