package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/soypete/autopilot/pkg/credits"
)

// MemoryStore is an in-process Store used by tests and the CLI.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]Account
	transactions []CreditTransaction
	projects     map[string]Project
	affiliates   map[string]AffiliateLink
	affOrder     []string
	tones        map[string]ToneProfile
	knowledge    []KnowledgeSnippet
	content      map[string]ContentRecord
	library      []LibraryItem
	ideas        map[string]ArticleIdea
	posts        map[string]BlogPost
	jobs         map[string]JobRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]Account),
		projects:   make(map[string]Project),
		affiliates: make(map[string]AffiliateLink),
		tones:      make(map[string]ToneProfile),
		content:    make(map[string]ContentRecord),
		ideas:      make(map[string]ArticleIdea),
		posts:      make(map[string]BlogPost),
		jobs:       make(map[string]JobRecord),
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = newID(a.ID)
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemoryStore) GetAccount(_ context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (m *MemoryStore) Balance(ctx context.Context, accountID string) (credits.Balance, error) {
	a, err := m.GetAccount(ctx, accountID)
	if err != nil {
		return credits.Balance{}, err
	}
	return a.Balance(), nil
}

// DeductCredits holds the write lock for the whole read-modify-write.
func (m *MemoryStore) DeductCredits(_ context.Context, accountID string, cost int, memo string) (credits.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[accountID]
	if !ok {
		return credits.Balance{}, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	if a.Unlimited {
		return a.Balance(), nil
	}

	sub, top, err := credits.Deduct(a.SubscriptionCredits, a.TopUpCredits, cost)
	if err != nil {
		return a.Balance(), err
	}
	a.SubscriptionCredits, a.TopUpCredits = sub, top
	a.UpdatedAt = now()
	m.accounts[accountID] = a
	m.transactions = append(m.transactions, CreditTransaction{
		ID:                newID(""),
		AccountID:         accountID,
		Amount:            -cost,
		Memo:              memo,
		SubscriptionAfter: sub,
		TopUpAfter:        top,
		CreatedAt:         a.UpdatedAt,
	})
	return a.Balance(), nil
}

func (m *MemoryStore) CreditTransactions(_ context.Context, accountID string) ([]CreditTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CreditTransaction
	for _, t := range m.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateProject(_ context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = newID(p.ID)
	p.CreatedAt = now()
	m.projects[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryStore) CreateAffiliateLink(_ context.Context, l *AffiliateLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = newID(l.ID)
	l.CreatedAt = now()
	m.affiliates[l.ID] = *l
	m.affOrder = append(m.affOrder, l.ID)
	return nil
}

func (m *MemoryStore) ActiveAffiliateLinks(_ context.Context, projectID string) ([]AffiliateLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AffiliateLink
	for _, id := range m.affOrder {
		l := m.affiliates[id]
		if l.ProjectID == projectID && l.Active {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsageCount < out[j].UsageCount })
	return out, nil
}

func (m *MemoryStore) IncrementAffiliateUsage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.affiliates[id]
	if !ok {
		return fmt.Errorf("affiliate link %s: %w", id, ErrNotFound)
	}
	l.UsageCount++
	m.affiliates[id] = l
	return nil
}

func (m *MemoryStore) CreateToneProfile(_ context.Context, t *ToneProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = newID(t.ID)
	t.CreatedAt = now()
	m.tones[t.ID] = *t
	return nil
}

func (m *MemoryStore) GetToneProfile(_ context.Context, id string) (*ToneProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tones[id]
	if !ok {
		return nil, fmt.Errorf("tone profile %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (m *MemoryStore) CreateKnowledgeSnippet(_ context.Context, k *KnowledgeSnippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k.ID = newID(k.ID)
	k.CreatedAt = now()
	m.knowledge = append(m.knowledge, *k)
	return nil
}

func (m *MemoryStore) KnowledgeSnippets(_ context.Context, projectID string, limit int) ([]KnowledgeSnippet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	var out []KnowledgeSnippet
	for i := len(m.knowledge) - 1; i >= 0 && len(out) < limit; i-- {
		if m.knowledge[i].ProjectID == projectID {
			out = append(out, m.knowledge[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateContent(_ context.Context, c *ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = newID(c.ID)
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = ContentDraft
	}
	m.content[c.ID] = cloneContent(*c)
	return nil
}

func (m *MemoryStore) GetContent(_ context.Context, id string) (*ContentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.content[id]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	c = cloneContent(c)
	return &c, nil
}

func (m *MemoryStore) UpdateContent(_ context.Context, c *ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.content[c.ID]
	if !ok {
		return fmt.Errorf("content %s: %w", c.ID, ErrNotFound)
	}
	c.UpdatedAt = now()
	c.CreatedAt = old.CreatedAt
	m.content[c.ID] = cloneContent(*c)
	return nil
}

func (m *MemoryStore) ListContent(_ context.Context, accountID string, limit int) ([]*ContentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var out []*ContentRecord
	for _, c := range m.content {
		if c.AccountID == accountID {
			c = cloneContent(c)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneContent(c ContentRecord) ContentRecord {
	c.ImageURLs = slices.Clone(c.ImageURLs)
	c.SEO = slices.Clone(c.SEO)
	return c
}

func (m *MemoryStore) SaveLibraryItem(_ context.Context, item *LibraryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = newID(item.ID)
	item.CreatedAt = now()
	cp := *item
	cp.Tags = slices.Clone(item.Tags)
	m.library = append(m.library, cp)
	return nil
}

func (m *MemoryStore) ListLibrary(_ context.Context, accountID string) ([]*LibraryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*LibraryItem
	for i := len(m.library) - 1; i >= 0; i-- {
		if m.library[i].AccountID == accountID {
			item := m.library[i]
			out = append(out, &item)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateIdea(_ context.Context, idea *ArticleIdea) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idea.ID = newID(idea.ID)
	idea.UpdatedAt = now()
	if idea.Status == "" {
		idea.Status = IdeaOpen
	}
	m.ideas[idea.ID] = *idea
	return nil
}

func (m *MemoryStore) GetIdea(_ context.Context, id string) (*ArticleIdea, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idea, ok := m.ideas[id]
	if !ok {
		return nil, fmt.Errorf("idea %s: %w", id, ErrNotFound)
	}
	return &idea, nil
}

func (m *MemoryStore) SetIdeaStatus(_ context.Context, id, status string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idea, ok := m.ideas[id]
	if !ok {
		return "", fmt.Errorf("idea %s: %w", id, ErrNotFound)
	}
	previous := idea.Status
	idea.Status = status
	idea.UpdatedAt = now()
	m.ideas[id] = idea
	return previous, nil
}

func (m *MemoryStore) LinkIdeaContent(_ context.Context, id, contentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idea, ok := m.ideas[id]
	if !ok {
		return fmt.Errorf("idea %s: %w", id, ErrNotFound)
	}
	idea.ContentID = contentID
	idea.UpdatedAt = now()
	m.ideas[id] = idea
	return nil
}

func (m *MemoryStore) CreateBlogPost(_ context.Context, p *BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.posts[p.Slug]; exists {
		return fmt.Errorf("failed to create blog post: slug %q already exists", p.Slug)
	}
	p.ID = newID(p.ID)
	if p.PublishedAt.IsZero() {
		p.PublishedAt = now()
	}
	m.posts[p.Slug] = *p
	return nil
}

func (m *MemoryStore) GetBlogPost(_ context.Context, slug string) (*BlogPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[slug]
	if !ok {
		return nil, fmt.Errorf("blog post %s: %w", slug, ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryStore) BlogSlugs(_ context.Context, base string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for slug := range m.posts {
		if slug == base || strings.HasPrefix(slug, base+"-") {
			out = append(out, slug)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) CreateJob(_ context.Context, j *JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = newID(j.ID)
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now()
	}
	j.CreatedAt = j.CreatedAt.UTC()
	m.jobs[j.ID] = *j
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (*JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return &j, nil
}

func (m *MemoryStore) UpdateJob(_ context.Context, j *JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.jobs[j.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", j.ID, ErrNotFound)
	}
	old.Status = j.Status
	old.Output = j.Output
	old.Error = j.Error
	old.StartedAt = j.StartedAt
	old.CompletedAt = j.CompletedAt
	m.jobs[j.ID] = old
	return nil
}

func (m *MemoryStore) ListJobs(_ context.Context, f JobFilter) ([]*JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*JobRecord
	for _, j := range m.jobs {
		if f.AccountID != "" && j.AccountID != f.AccountID {
			continue
		}
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		j := j
		out = append(out, &j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
