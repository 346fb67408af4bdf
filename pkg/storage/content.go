package storage

import (
	"context"
	"fmt"
)

const contentColumns = `id, account_id, project_id, job_id, title, content, meta_description, seo, slug,
	status, word_count, image_urls, published_url, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(row scanner) (*ContentRecord, error) {
	c := &ContentRecord{}
	var seo, images string
	err := row.Scan(&c.ID, &c.AccountID, &c.ProjectID, &c.JobID, &c.Title, &c.Content, &c.MetaDescription,
		&seo, &c.Slug, &c.Status, &c.WordCount, &images, &c.PublishedURL, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.SEO = decodeRaw(seo)
	c.ImageURLs = decodeList(images)
	return c, nil
}

// CreateContent inserts a content record.
func (s *SQLStore) CreateContent(ctx context.Context, c *ContentRecord) error {
	c.ID = newID(c.ID)
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = ContentDraft
	}

	_, err := s.exec(ctx, `
		INSERT INTO content_records (`+contentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID, c.AccountID, c.ProjectID, c.JobID, c.Title, c.Content, c.MetaDescription,
		encodeRaw(c.SEO, "{}"), c.Slug, c.Status, c.WordCount, encodeList(c.ImageURLs), c.PublishedURL,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}
	return nil
}

// GetContent retrieves a content record by ID.
func (s *SQLStore) GetContent(ctx context.Context, id string) (*ContentRecord, error) {
	c, err := scanContent(s.queryRow(ctx, `SELECT `+contentColumns+` FROM content_records WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "content", id)
	}
	return c, nil
}

// UpdateContent stores the mutable fields of a content record.
func (s *SQLStore) UpdateContent(ctx context.Context, c *ContentRecord) error {
	c.UpdatedAt = now()
	res, err := s.exec(ctx, `
		UPDATE content_records SET title = $2, content = $3, meta_description = $4, seo = $5, slug = $6,
			status = $7, word_count = $8, image_urls = $9, published_url = $10, updated_at = $11
		WHERE id = $1`,
		c.ID, c.Title, c.Content, c.MetaDescription, encodeRaw(c.SEO, "{}"), c.Slug,
		c.Status, c.WordCount, encodeList(c.ImageURLs), c.PublishedURL, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}
	return mustAffect(res, "content", c.ID)
}

// ListContent lists an account's content, newest first.
func (s *SQLStore) ListContent(ctx context.Context, accountID string, limit int) ([]*ContentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx, `SELECT `+contentColumns+` FROM content_records
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	var out []*ContentRecord
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveLibraryItem inserts a library item.
func (s *SQLStore) SaveLibraryItem(ctx context.Context, item *LibraryItem) error {
	item.ID = newID(item.ID)
	item.CreatedAt = now()

	_, err := s.exec(ctx, `
		INSERT INTO library_items (id, account_id, content_id, kind, title, content, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.AccountID, item.ContentID, item.Kind, item.Title, item.Content, encodeList(item.Tags), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save library item: %w", err)
	}
	return nil
}

// ListLibrary lists an account's library items, newest first.
func (s *SQLStore) ListLibrary(ctx context.Context, accountID string) ([]*LibraryItem, error) {
	rows, err := s.query(ctx, `
		SELECT id, account_id, content_id, kind, title, content, tags, created_at
		FROM library_items WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	defer rows.Close()

	var out []*LibraryItem
	for rows.Next() {
		item := &LibraryItem{}
		var tags string
		if err := rows.Scan(&item.ID, &item.AccountID, &item.ContentID, &item.Kind, &item.Title, &item.Content, &tags, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Tags = decodeList(tags)
		out = append(out, item)
	}
	return out, rows.Err()
}

// CreateIdea inserts an article idea.
func (s *SQLStore) CreateIdea(ctx context.Context, idea *ArticleIdea) error {
	idea.ID = newID(idea.ID)
	idea.UpdatedAt = now()
	if idea.Status == "" {
		idea.Status = IdeaOpen
	}

	_, err := s.exec(ctx, `
		INSERT INTO article_ideas (id, project_id, title, keywords, status, content_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		idea.ID, idea.ProjectID, idea.Title, encodeList(idea.Keywords), idea.Status, idea.ContentID, idea.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create idea: %w", err)
	}
	return nil
}

// GetIdea retrieves an article idea by ID.
func (s *SQLStore) GetIdea(ctx context.Context, id string) (*ArticleIdea, error) {
	idea := &ArticleIdea{}
	var keywords string
	err := s.queryRow(ctx, `
		SELECT id, project_id, title, keywords, status, content_id, updated_at
		FROM article_ideas WHERE id = $1`, id,
	).Scan(&idea.ID, &idea.ProjectID, &idea.Title, &keywords, &idea.Status, &idea.ContentID, &idea.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "idea", id)
	}
	idea.Keywords = decodeList(keywords)
	return idea, nil
}

// SetIdeaStatus stores status and returns the previous one.
func (s *SQLStore) SetIdeaStatus(ctx context.Context, id, status string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previous string
	err = tx.QueryRowContext(ctx, s.db.Rebind(`SELECT status FROM article_ideas WHERE id = $1`), id).Scan(&previous)
	if err != nil {
		return "", notFound(err, "idea", id)
	}
	_, err = tx.ExecContext(ctx, s.db.Rebind(`UPDATE article_ideas SET status = $2, updated_at = $3 WHERE id = $1`), id, status, now())
	if err != nil {
		return "", fmt.Errorf("failed to update idea status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit idea status: %w", err)
	}
	return previous, nil
}

// LinkIdeaContent records the content generated for an idea.
func (s *SQLStore) LinkIdeaContent(ctx context.Context, id, contentID string) error {
	res, err := s.exec(ctx, `UPDATE article_ideas SET content_id = $2, updated_at = $3 WHERE id = $1`, id, contentID, now())
	if err != nil {
		return fmt.Errorf("failed to link idea content: %w", err)
	}
	return mustAffect(res, "idea", id)
}

// CreateBlogPost inserts a blog post. Slugs are unique.
func (s *SQLStore) CreateBlogPost(ctx context.Context, p *BlogPost) error {
	p.ID = newID(p.ID)
	if p.PublishedAt.IsZero() {
		p.PublishedAt = now()
	}

	_, err := s.exec(ctx, `
		INSERT INTO blog_posts (id, account_id, slug, title, content, excerpt, featured_image_url,
			seo_title, seo_description, tags, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.AccountID, p.Slug, p.Title, p.Content, p.Excerpt, p.FeaturedImageURL,
		p.SEOTitle, p.SEODescription, encodeList(p.Tags), p.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create blog post: %w", err)
	}
	return nil
}

// GetBlogPost retrieves a blog post by slug.
func (s *SQLStore) GetBlogPost(ctx context.Context, slug string) (*BlogPost, error) {
	p := &BlogPost{}
	var tags string
	err := s.queryRow(ctx, `
		SELECT id, account_id, slug, title, content, excerpt, featured_image_url,
			seo_title, seo_description, tags, published_at
		FROM blog_posts WHERE slug = $1`, slug,
	).Scan(&p.ID, &p.AccountID, &p.Slug, &p.Title, &p.Content, &p.Excerpt, &p.FeaturedImageURL,
		&p.SEOTitle, &p.SEODescription, &tags, &p.PublishedAt)
	if err != nil {
		return nil, notFound(err, "blog post", slug)
	}
	p.Tags = decodeList(tags)
	return p, nil
}

// BlogSlugs lists slugs equal to base or starting with base + "-".
func (s *SQLStore) BlogSlugs(ctx context.Context, base string) ([]string, error) {
	rows, err := s.query(ctx, `SELECT slug FROM blog_posts WHERE slug = $1 OR slug LIKE $2`, base, base+"-%")
	if err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		out = append(out, slug)
	}
	return out, rows.Err()
}

