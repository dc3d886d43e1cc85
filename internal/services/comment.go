package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/dailydoodle/internal/logging"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/realtime"
)

var (
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotCommentAuthor = errors.New("only the author can change this comment")
	ErrInvalidComment   = errors.New("invalid comment")
	ErrAlreadyLiked     = errors.New("comment already liked")
	ErrLikeNotFound     = errors.New("like not found")
)

type CommentService struct {
	db   DB
	feed realtime.Publisher
}

func NewCommentService(db DB, feed realtime.Publisher) *CommentService {
	return &CommentService{db: db, feed: feed}
}

const commentSelect = `SELECT c.id, c.drawing_id, c.user_id, c.content, c.created_at, c.updated_at,
	u.id, u.name, u.email,
	(SELECT COUNT(*) FROM comment_likes l WHERE l.comment_id = c.id) AS like_count,
	EXISTS(SELECT 1 FROM comment_likes l WHERE l.comment_id = c.id AND l.user_id = $2) AS liked_by_me
	FROM comments c
	LEFT JOIN users u ON u.id = c.user_id`

func scanComment(row Row) (models.Comment, error) {
	var (
		c           models.Comment
		authorID    *uuid.UUID
		authorName  *string
		authorEmail *string
	)
	if err := row.Scan(&c.ID, &c.DrawingID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt,
		&authorID, &authorName, &authorEmail, &c.LikeCount, &c.LikedByMe); err != nil {
		return c, err
	}
	if authorID != nil {
		c.Author = &models.UserSummary{ID: *authorID, Name: authorName}
		if authorEmail != nil {
			c.Author.Email = *authorEmail
		}
	}
	return c, nil
}

// List returns a drawing's comments oldest first. viewer may be uuid.Nil.
func (s *CommentService) List(ctx context.Context, drawingID, viewer uuid.UUID) ([]models.Comment, error) {
	rows, err := s.db.Query(ctx,
		commentSelect+` WHERE c.drawing_id = $1 ORDER BY c.created_at ASC, c.id ASC`,
		drawingID, viewer,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}
	return comments, nil
}

func (s *CommentService) get(ctx context.Context, id, viewer uuid.UUID) (*models.Comment, error) {
	c, err := scanComment(s.db.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id, viewer))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting comment: %w", err)
	}
	return &c, nil
}

func validateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: comment cannot be empty", ErrInvalidComment)
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return "", fmt.Errorf("%w: comment must be at most %d characters", ErrInvalidComment, models.MaxCommentLength)
	}
	return content, nil
}

func (s *CommentService) Create(ctx context.Context, userID, drawingID uuid.UUID, content string) (*models.Comment, error) {
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	var id uuid.UUID
	err = s.db.QueryRow(ctx,
		`INSERT INTO comments (drawing_id, user_id, content) VALUES ($1, $2, $3) RETURNING id`,
		drawingID, userID, content,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrDrawingNotFound
		}
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	comment, err := s.get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.TableComments, realtime.EventInsert, comment.ID, drawingID, comment)
	return comment, nil
}

// authorOf locks the comment row and checks it belongs to userID.
func authorOf(ctx context.Context, tx Tx, commentID, userID uuid.UUID) (drawingID uuid.UUID, err error) {
	var author *uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT drawing_id, user_id FROM comments WHERE id = $1 FOR UPDATE`,
		commentID,
	).Scan(&drawingID, &author)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrCommentNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading comment: %w", err)
	}
	if author == nil || *author != userID {
		return uuid.Nil, ErrNotCommentAuthor
	}
	return drawingID, nil
}

func (s *CommentService) Update(ctx context.Context, userID, commentID uuid.UUID, content string) (*models.Comment, error) {
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	err = withTx(ctx, s.db, func(tx Tx) error {
		if _, err := authorOf(ctx, tx, commentID, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE comments SET content = $2, updated_at = NOW() WHERE id = $1`,
			commentID, content,
		); err != nil {
			return fmt.Errorf("updating comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	comment, err := s.get(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.TableComments, realtime.EventUpdate, comment.ID, comment.DrawingID, comment)
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, userID, commentID uuid.UUID) error {
	var drawingID uuid.UUID
	err := withTx(ctx, s.db, func(tx Tx) error {
		var err error
		drawingID, err = authorOf(ctx, tx, commentID, userID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID); err != nil {
			return fmt.Errorf("deleting comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, realtime.TableComments, realtime.EventDelete, commentID, drawingID, nil)
	return nil
}

func (s *CommentService) Like(ctx context.Context, userID, commentID uuid.UUID) (*models.CommentLike, error) {
	like := &models.CommentLike{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO comment_likes (comment_id, drawing_id, user_id)
		 SELECT c.id, c.drawing_id, $2 FROM comments c WHERE c.id = $1
		 RETURNING id, comment_id, drawing_id, user_id, created_at`,
		commentID, userID,
	).Scan(&like.ID, &like.CommentID, &like.DrawingID, &like.UserID, &like.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyLiked
		}
		if isForeignKeyViolation(err) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("liking comment: %w", err)
	}
	s.publish(ctx, realtime.TableCommentLikes, realtime.EventInsert, like.ID, like.DrawingID, like)
	return like, nil
}

func (s *CommentService) Unlike(ctx context.Context, userID, commentID uuid.UUID) error {
	var id, drawingID uuid.UUID
	err := s.db.QueryRow(ctx,
		`DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2 RETURNING id, drawing_id`,
		commentID, userID,
	).Scan(&id, &drawingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLikeNotFound
	}
	if err != nil {
		return fmt.Errorf("unliking comment: %w", err)
	}
	s.publish(ctx, realtime.TableCommentLikes, realtime.EventDelete, id, drawingID, nil)
	return nil
}

func (s *CommentService) publish(ctx context.Context, table string, typ realtime.EventType, id, drawingID uuid.UUID, record any) {
	if err := realtime.PublishChange(ctx, s.feed, table, typ, id, drawingID, record); err != nil {
		logging.Warn("publishing comment change failed", map[string]interface{}{
			"table":      table,
			"drawing_id": drawingID.String(),
			"error":      err.Error(),
		})
	}
}
