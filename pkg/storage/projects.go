package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/soypete/autopilot/pkg/database"
)

// CreateProject inserts a project.
func (s *SQLStore) CreateProject(ctx context.Context, p *Project) error {
	p.ID = newID(p.ID)
	p.CreatedAt = now()

	overrides, err := json.Marshal(p.Overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO projects (id, account_id, name, description, website_url, sitemap_url, language,
			tone_profile_id, wordpress_url, wordpress_user, wordpress_app_password, wordpress_token,
			wordpress_category_id, bolcom_partner_id, overrides, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.ID, p.AccountID, p.Name, p.Description, p.WebsiteURL, p.SitemapURL, p.Language,
		p.ToneProfileID, p.WordPressURL, p.WordPressUser, p.WordPressAppPassword, p.WordPressToken,
		database.NullInt64(p.WordPressCategoryID), p.BolcomPartnerID, string(overrides), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *SQLStore) GetProject(ctx context.Context, id string) (*Project, error) {
	p := &Project{}
	var categoryID sql.NullInt64
	var overrides string

	err := s.queryRow(ctx, `
		SELECT id, account_id, name, description, website_url, sitemap_url, language,
			tone_profile_id, wordpress_url, wordpress_user, wordpress_app_password, wordpress_token,
			wordpress_category_id, bolcom_partner_id, overrides, created_at
		FROM projects WHERE id = $1`, id,
	).Scan(
		&p.ID, &p.AccountID, &p.Name, &p.Description, &p.WebsiteURL, &p.SitemapURL, &p.Language,
		&p.ToneProfileID, &p.WordPressURL, &p.WordPressUser, &p.WordPressAppPassword, &p.WordPressToken,
		&categoryID, &p.BolcomPartnerID, &overrides, &p.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "project", id)
	}

	p.WordPressCategoryID = database.Int64Ptr(categoryID)
	if overrides != "" {
		if err := json.Unmarshal([]byte(overrides), &p.Overrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overrides: %w", err)
		}
	}
	return p, nil
}

// CreateAffiliateLink inserts an affiliate link.
func (s *SQLStore) CreateAffiliateLink(ctx context.Context, l *AffiliateLink) error {
	l.ID = newID(l.ID)
	l.CreatedAt = now()

	_, err := s.exec(ctx, `
		INSERT INTO affiliate_links (id, project_id, url, title, anchor_text, category, active, usage_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.ProjectID, l.URL, l.Title, l.AnchorText, l.Category, l.Active, l.UsageCount, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create affiliate link: %w", err)
	}
	return nil
}

// ActiveAffiliateLinks lists a project's active links, least used first.
func (s *SQLStore) ActiveAffiliateLinks(ctx context.Context, projectID string) ([]AffiliateLink, error) {
	rows, err := s.query(ctx, `
		SELECT id, project_id, url, title, anchor_text, category, active, usage_count, created_at
		FROM affiliate_links
		WHERE project_id = $1 AND active = TRUE
		ORDER BY usage_count, created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list affiliate links: %w", err)
	}
	defer rows.Close()

	var out []AffiliateLink
	for rows.Next() {
		var l AffiliateLink
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.URL, &l.Title, &l.AnchorText, &l.Category, &l.Active, &l.UsageCount, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// IncrementAffiliateUsage adds one to a link's usage counter.
func (s *SQLStore) IncrementAffiliateUsage(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `UPDATE affiliate_links SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return mustAffect(res, "affiliate link", id)
}

// CreateToneProfile inserts a tone profile.
func (s *SQLStore) CreateToneProfile(ctx context.Context, t *ToneProfile) error {
	t.ID = newID(t.ID)
	t.CreatedAt = now()

	_, err := s.exec(ctx, `
		INSERT INTO tone_profiles (id, name, prompt, formality, preferred, avoid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Prompt, t.Formality, encodeList(t.Preferred), encodeList(t.Avoid), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tone profile: %w", err)
	}
	return nil
}

// GetToneProfile retrieves a tone profile by ID.
func (s *SQLStore) GetToneProfile(ctx context.Context, id string) (*ToneProfile, error) {
	t := &ToneProfile{}
	var preferred, avoid string
	err := s.queryRow(ctx, `
		SELECT id, name, prompt, formality, preferred, avoid, created_at
		FROM tone_profiles WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Prompt, &t.Formality, &preferred, &avoid, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err, "tone profile", id)
	}
	t.Preferred = decodeList(preferred)
	t.Avoid = decodeList(avoid)
	return t, nil
}

// CreateKnowledgeSnippet inserts a knowledge snippet.
func (s *SQLStore) CreateKnowledgeSnippet(ctx context.Context, k *KnowledgeSnippet) error {
	k.ID = newID(k.ID)
	k.CreatedAt = now()

	_, err := s.exec(ctx, `
		INSERT INTO knowledge_snippets (id, project_id, title, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		k.ID, k.ProjectID, k.Title, k.Content, k.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create knowledge snippet: %w", err)
	}
	return nil
}

// KnowledgeSnippets lists up to limit snippets for a project, newest first.
func (s *SQLStore) KnowledgeSnippets(ctx context.Context, projectID string, limit int) ([]KnowledgeSnippet, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.query(ctx, `
		SELECT id, project_id, title, content, created_at
		FROM knowledge_snippets WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge snippets: %w", err)
	}
	defer rows.Close()

	var out []KnowledgeSnippet
	for rows.Next() {
		var k KnowledgeSnippet
		if err := rows.Scan(&k.ID, &k.ProjectID, &k.Title, &k.Content, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
