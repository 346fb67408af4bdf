// Package storage provides persistence for accounts, projects, generated
// content and jobs.
package storage

import (
	"context"
	"errors"

	"github.com/soypete/autopilot/pkg/credits"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a compare-and-swap update keeps losing.
var ErrConflict = errors.New("concurrent update conflict")

// ProjectStore reads and writes projects.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
}

// AffiliateStore manages affiliate links.
type AffiliateStore interface {
	CreateAffiliateLink(ctx context.Context, l *AffiliateLink) error
	ActiveAffiliateLinks(ctx context.Context, projectID string) ([]AffiliateLink, error)
	// IncrementAffiliateUsage adds one to usage_count atomically.
	IncrementAffiliateUsage(ctx context.Context, id string) error
}

// ToneStore manages tone profiles.
type ToneStore interface {
	CreateToneProfile(ctx context.Context, t *ToneProfile) error
	GetToneProfile(ctx context.Context, id string) (*ToneProfile, error)
}

// KnowledgeStore manages knowledge-base snippets.
type KnowledgeStore interface {
	CreateKnowledgeSnippet(ctx context.Context, k *KnowledgeSnippet) error
	KnowledgeSnippets(ctx context.Context, projectID string, limit int) ([]KnowledgeSnippet, error)
}

// ContentStore manages generated articles.
type ContentStore interface {
	CreateContent(ctx context.Context, c *ContentRecord) error
	GetContent(ctx context.Context, id string) (*ContentRecord, error)
	UpdateContent(ctx context.Context, c *ContentRecord) error
	ListContent(ctx context.Context, accountID string, limit int) ([]*ContentRecord, error)
}

// LibraryStore manages the reuse library.
type LibraryStore interface {
	SaveLibraryItem(ctx context.Context, item *LibraryItem) error
	ListLibrary(ctx context.Context, accountID string) ([]*LibraryItem, error)
}

// IdeaStore manages article ideas.
type IdeaStore interface {
	CreateIdea(ctx context.Context, idea *ArticleIdea) error
	GetIdea(ctx context.Context, id string) (*ArticleIdea, error)
	// SetIdeaStatus stores status and returns the previous one.
	SetIdeaStatus(ctx context.Context, id, status string) (string, error)
	LinkIdeaContent(ctx context.Context, id, contentID string) error
}

// AccountStore manages accounts and their credit ledger.
type AccountStore interface {
	credits.Ledger
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	CreditTransactions(ctx context.Context, accountID string) ([]CreditTransaction, error)
}

// BlogStore manages posts on the built-in blog.
type BlogStore interface {
	CreateBlogPost(ctx context.Context, p *BlogPost) error
	GetBlogPost(ctx context.Context, slug string) (*BlogPost, error)
	// BlogSlugs lists slugs equal to base or starting with base + "-".
	BlogSlugs(ctx context.Context, base string) ([]string, error)
}

// JobStore persists job records.
type JobStore interface {
	CreateJob(ctx context.Context, j *JobRecord) error
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	UpdateJob(ctx context.Context, j *JobRecord) error
	ListJobs(ctx context.Context, f JobFilter) ([]*JobRecord, error)
}

// Store aggregates every store.
type Store interface {
	ProjectStore
	AffiliateStore
	ToneStore
	KnowledgeStore
	ContentStore
	LibraryStore
	IdeaStore
	AccountStore
	BlogStore
	JobStore
	Close() error
}

// maxDeductAttempts bounds compare-and-swap retries in DeductCredits.
const maxDeductAttempts = 5
