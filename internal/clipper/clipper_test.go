package clipper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-fitness-coach/internal/catalog"
	"ai-fitness-coach/internal/ghost"
	"ai-fitness-coach/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGhostClient struct {
	created *ghost.Post
	err     error
}

func (m *mockGhostClient) FetchPosts(ctx context.Context) ([]ghost.Post, error) {
	return nil, nil
}

func (m *mockGhostClient) CreatePost(ctx context.Context, title, html string, publish bool) (*ghost.Post, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &ghost.Post{ID: "123", Title: title, HTML: html}
	return m.created, nil
}

type mockExtractor struct {
	item catalog.Item
	err  error
	got  catalog.PostData
}

func (m *mockExtractor) ExtractWorkout(ctx context.Context, data catalog.PostData) (catalog.ExtractorResult, error) {
	m.got = data
	if m.err != nil {
		return catalog.ExtractorResult{}, m.err
	}
	return catalog.ExtractorResult{Item: m.item, Meta: shared.AgentMeta{AgentName: "Extractor"}}, nil
}

const dirtyPage = `<html>
	<head><title> Leg Burner </title><meta property="og:image" content="https://img.example/legs.jpg"><script>alert('bad');</script></head>
	<body>
		<nav>Home | Shop</nav>
		<h1>Leg Burner</h1>
		<div class="ads">Buy stuff!</div>
		<p>Squats and lunges for 30 minutes.</p>
		<iframe src="https://www.youtube.com/embed/abc123"></iframe>
		<script>more_bad_stuff()</script>
		<footer>Copyright 2026</footer>
	</body>
</html>`

func serve(t *testing.T, body string) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestFetchAndClean(t *testing.T) {
	ts := serve(t, dirtyPage)
	c := NewClipper(nil, nil)

	p, err := c.fetchAndClean(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, "Leg Burner", p.Title)
	assert.Equal(t, "https://img.example/legs.jpg", p.Image)
	assert.Equal(t, "https://www.youtube.com/embed/abc123", p.VideoURL)
	assert.Contains(t, p.Text, "Squats and lunges for 30 minutes.")
	for _, noise := range []string{"alert('bad')", "Buy stuff!", "Copyright 2026", "Home | Shop"} {
		assert.NotContains(t, p.Text, noise)
	}
}

func TestFormatToHTML(t *testing.T) {
	html := formatToHTML(catalog.Item{
		Title:        "Legs",
		Focus:        []string{"Legs", "Glutes"},
		DurationMins: catalog.Minutes(30),
		Equipment:    []string{"Dumbbells"},
		URL:          "https://youtu.be/x",
		Description:  "Squats <and> lunges",
	}, "http://test.com")

	for _, sub := range []string{
		`Imported from: <a href="http://test.com">http://test.com</a>`,
		`<a href="https://youtu.be/x">Watch the workout</a>`,
		"<strong>Focus:</strong> Legs, Glutes",
		"<strong>Duration:</strong> 30 mins",
		"Squats &lt;and&gt; lunges",
	} {
		assert.Contains(t, html, sub)
	}
}

func TestClipURL(t *testing.T) {
	ts := serve(t, dirtyPage)

	t.Run("Success", func(t *testing.T) {
		g := &mockGhostClient{}
		ex := &mockExtractor{item: catalog.Item{Title: "Leg Burner", Focus: []string{"Legs"}}}
		c := NewClipper(g, ex)

		res, err := c.ClipURL(context.Background(), ts.URL)
		require.NoError(t, err)

		assert.Equal(t, "Leg Burner", res.Post.Title)
		assert.Equal(t, "https://www.youtube.com/embed/abc123", res.Item.URL, "page video fills a missing url")
		assert.Equal(t, "https://img.example/legs.jpg", res.Item.Thumbnail)
		assert.Contains(t, g.created.HTML, "Watch the workout")
		assert.Equal(t, ts.URL, ex.got.ID)
		assert.Equal(t, "Extractor", res.Meta.AgentName)
	})

	t.Run("ExtractionError", func(t *testing.T) {
		c := NewClipper(&mockGhostClient{}, &mockExtractor{err: errors.New("bad json")})
		_, err := c.ClipURL(context.Background(), ts.URL)
		assert.ErrorContains(t, err, "ai extraction failed")
	})

	t.Run("GhostError", func(t *testing.T) {
		c := NewClipper(&mockGhostClient{err: errors.New("401")}, &mockExtractor{item: catalog.Item{Title: "x"}})
		_, err := c.ClipURL(context.Background(), ts.URL)
		assert.ErrorContains(t, err, "failed to save to ghost")
	})
}
