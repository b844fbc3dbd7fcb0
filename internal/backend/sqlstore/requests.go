package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/starford/vouch/internal/apperr"
	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/models"
)

const anonymousRequester = "Anonymous"

// feedColumns mirrors the web_request_feed view of the hosted backend.
var feedColumns = []string{
	"r.id", "r.share_token", "r.title", "r.context", "r.created_at", "r.status", "r.area_id",
	"COALESCE(a.name, '')", "COALESCE(a.metadata, '{}')",
	"COALESCE(r.category_id, '')", "COALESCE(c.name, '')",
	"COALESCE(r.subcategory_id, '')", "COALESCE(sc.name, '')",
	"(SELECT COUNT(*) FROM rec_responses x WHERE x.request_id = r.id)",
}

func (s *Store) feedSelect() squirrel.SelectBuilder {
	return s.sq.Select(feedColumns...).
		From("rec_requests r").
		LeftJoin("list_items a ON a.id = r.area_id").
		LeftJoin("list_items c ON c.id = r.category_id").
		LeftJoin("list_items sc ON sc.id = r.subcategory_id")
}

func scanFeedItem(row interface{ Scan(...any) error }) (models.FeedItem, error) {
	var (
		f    models.FeedItem
		meta string
	)
	err := row.Scan(&f.ID, &f.ShareToken, &f.Title, &f.Context, &f.CreatedAt, &f.Status, &f.AreaID,
		&f.LocationName, &meta,
		&f.CategoryID, &f.BusinessTypeName,
		&f.SubcategoryID, &f.SubcategoryName,
		&f.ResponseCount)
	if err != nil {
		return f, err
	}
	v, _ := decodeMetadata(meta)[models.MetaUserGenerated].(bool)
	f.LocationUserGenerated = v
	f.RequesterName = anonymousRequester
	return f, nil
}

// CreateRequest implements backend.RequestStore.
func (s *Store) CreateRequest(ctx context.Context, in models.NewRequest) (*models.Request, error) {
	now := s.timestamp()
	req := &models.Request{
		ID:            uuid.NewString(),
		ShareToken:    in.ShareToken,
		Title:         in.Title,
		Context:       in.Context,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		AreaID:        in.AreaID,
		IsPublic:      true,
		Status:        models.StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	query, args, err := s.sq.Insert("rec_requests").
		Columns("id", "share_token", "title", "context", "category_id", "subcategory_id",
			"area_id", "is_public", "status", "created_at", "updated_at").
		Values(req.ID, req.ShareToken, req.Title, req.Context, req.CategoryID, req.SubcategoryID,
			req.AreaID, req.IsPublic, req.Status, req.CreatedAt, req.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: build request insert: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("sqlstore: insert request: %w", err)
	}
	return req, nil
}

// ListFeed implements backend.RequestStore.
func (s *Store) ListFeed(ctx context.Context, q backend.FeedQuery) ([]models.FeedItem, error) {
	b := s.feedSelect().
		Where(squirrel.Eq{"r.is_public": true}).
		OrderBy("r.created_at DESC", "r.id")

	if len(q.AreaIDs) > 0 {
		b = b.Where(squirrel.Eq{"r.area_id": q.AreaIDs})
	}
	if q.BusinessType != "" {
		b = b.Where(squirrel.Or{
			squirrel.Eq{"r.category_id": q.BusinessType},
			squirrel.Eq{"r.subcategory_id": q.BusinessType},
		})
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		b = b.Where(squirrel.Or{
			squirrel.Expr(`lower(r.title) LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(`lower(r.context) LIKE ? ESCAPE '\'`, pattern),
		})
	}
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: build feed query: %w", err)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list feed: %w", err)
	}
	defer rows.Close()

	var out []models.FeedItem
	for rows.Next() {
		f, err := scanFeedItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan feed item: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FeedItemByToken implements backend.RequestStore.
func (s *Store) FeedItemByToken(ctx context.Context, token string) (*models.FeedItem, error) {
	query, args, err := s.feedSelect().Where(squirrel.Eq{"r.share_token": token}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: build request query: %w", err)
	}
	f, err := scanFeedItem(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlstore: request %q: %w", token, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("sqlstore: request %q: %w", token, err)
	}
	return &f, nil
}

// CreateResponse implements backend.RequestStore.
func (s *Store) CreateResponse(ctx context.Context, in models.NewResponse) (*models.Response, error) {
	resp := &models.Response{
		ID:            uuid.NewString(),
		RequestID:     in.RequestID,
		ResponderName: in.ResponderName,
		BusinessName:  in.BusinessName,
		Email:         in.Email,
		Instagram:     in.Instagram,
		Website:       in.Website,
		Location:      in.Location,
		Notes:         in.Notes,
		IsGuest:       true,
		CreatedAt:     s.timestamp(),
	}
	query, args, err := s.sq.Insert("rec_responses").
		Columns("id", "request_id", "responder_name", "business_name", "email", "instagram",
			"website", "location", "notes", "is_guest", "created_at").
		Values(resp.ID, resp.RequestID, resp.ResponderName, resp.BusinessName, resp.Email, resp.Instagram,
			resp.Website, resp.Location, resp.Notes, resp.IsGuest, resp.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: build response insert: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("sqlstore: insert response: %w", err)
	}
	return resp, nil
}

// ListResponses implements backend.RequestStore, newest first.
func (s *Store) ListResponses(ctx context.Context, requestID string) ([]models.Response, error) {
	query, args, err := s.sq.Select("id", "request_id", "responder_name", "business_name", "email",
		"instagram", "website", "location", "notes", "is_guest", "created_at").
		From("rec_responses").
		Where(squirrel.Eq{"request_id": requestID}).
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: build responses query: %w", err)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list responses: %w", err)
	}
	defer rows.Close()

	var out []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.ID, &r.RequestID, &r.ResponderName, &r.BusinessName, &r.Email,
			&r.Instagram, &r.Website, &r.Location, &r.Notes, &r.IsGuest, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scan response: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentPublic implements backend.RequestStore.
func (s *Store) RecentPublic(ctx context.Context, limit int) ([]models.SitemapEntry, error) {
	b := s.sq.Select("share_token", "updated_at").
		From("rec_requests").
		Where(squirrel.Eq{"is_public": true}).
		OrderBy("created_at DESC", "id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: build sitemap query: %w", err)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: recent public: %w", err)
	}
	defer rows.Close()

	var out []models.SitemapEntry
	for rows.Next() {
		var e models.SitemapEntry
		if err := rows.Scan(&e.ShareToken, &e.LastModified); err != nil {
			return nil, fmt.Errorf("sqlstore: scan sitemap entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
