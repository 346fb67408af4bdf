package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/autopilot/pkg/config"
	"github.com/soypete/autopilot/pkg/storage"
)

func TestInternalBlog_Publish(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	blog := NewInternalBlog(store, "https://autopilot.example/", "acc-1")

	cats, err := blog.Categories(ctx)
	require.NoError(t, err)
	assert.Nil(t, cats)

	pub, err := blog.Publish(ctx, Post{
		Title:       "Beste koffie",
		HTMLContent: "<p>Tekst</p>",
		Slug:        "beste-koffie",
		Tags:        []string{"koffie"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://autopilot.example/blog/beste-koffie", pub.PublishedURL)
	assert.NotEmpty(t, pub.RemoteID)

	stored, err := store.GetBlogPost(ctx, "beste-koffie")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", stored.AccountID)
	assert.Equal(t, "<p>Tekst</p>", stored.Content)

	slugs, err := blog.ExistingSlugs(ctx, "beste-koffie")
	require.NoError(t, err)
	assert.Equal(t, []string{"beste-koffie"}, slugs)

	_, err = blog.Publish(ctx, Post{Title: "Dubbel", Slug: "beste-koffie"})
	assert.Error(t, err)

	_, err = blog.Publish(ctx, Post{Title: "Geen slug"})
	assert.Error(t, err)
}

func TestFactory_ForProject(t *testing.T) {
	store := storage.NewMemoryStore()
	f := NewFactory(config.PublishConfig{InternalBlogBaseURL: "https://autopilot.example", TimeoutSeconds: 5}, store)

	p, err := f.ForProject("acc", &storage.Project{WordPressURL: "https://wp.example", WordPressToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, "wordpress", p.Name())

	p, err = f.ForProject("acc", &storage.Project{})
	require.NoError(t, err)
	assert.Equal(t, "blog", p.Name())

	_, err = f.ForProject("acc", &storage.Project{WordPressURL: "https://wp.example"})
	assert.Error(t, err)

	none := NewFactory(config.PublishConfig{}, nil)
	p, err = none.ForProject("acc", nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}
