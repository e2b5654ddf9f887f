// Package clipper imports a workout from an arbitrary web page into Ghost.
package clipper

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"ai-fitness-coach/internal/catalog"
	"ai-fitness-coach/internal/ghost"
	"ai-fitness-coach/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

// WorkoutExtractor turns page content into a catalog item.
type WorkoutExtractor interface {
	ExtractWorkout(ctx context.Context, data catalog.PostData) (catalog.ExtractorResult, error)
}

// Clipper fetches a page, extracts the workout and publishes it to Ghost.
type Clipper struct {
	ghostClient ghost.Client
	extractor   WorkoutExtractor
	httpClient  *http.Client
}

// ClipResult is the created post plus the extraction call's metadata.
type ClipResult struct {
	Post *ghost.Post
	Item catalog.Item
	Meta shared.AgentMeta
}

// page is the cleaned content of a fetched URL.
type page struct {
	Title    string
	Text     string
	VideoURL string
	Image    string
}

func NewClipper(ghostClient ghost.Client, extractor WorkoutExtractor) *Clipper {
	return &Clipper{
		ghostClient: ghostClient,
		extractor:   extractor,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ClipURL fetches the URL, extracts the workout and saves it as a published post.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*ClipResult, error) {
	p, err := c.fetchAndClean(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	res, err := c.extractor.ExtractWorkout(ctx, catalog.PostData{ID: url, Title: p.Title, HTML: p.Text})
	if err != nil {
		return nil, fmt.Errorf("ai extraction failed: %w", err)
	}
	item := res.Item
	if item.URL == "" {
		item.URL = p.VideoURL
	}
	if item.Thumbnail == "" {
		item.Thumbnail = p.Image
	}

	post, err := c.ghostClient.CreatePost(ctx, item.Title, formatToHTML(item, url), true)
	if err != nil {
		return nil, fmt.Errorf("failed to save to ghost: %w", err)
	}
	return &ClipResult{Post: post, Item: item, Meta: res.Meta}, nil
}

func (c *Clipper) fetchAndClean(ctx context.Context, url string) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return page{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page{}, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return page{}, err
	}

	p := page{Title: strings.TrimSpace(doc.Find("title").First().Text())}
	p.Image, _ = doc.Find(`meta[property="og:image"]`).Attr("content")
	doc.Find("iframe[src], a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link, ok := s.Attr("src")
		if !ok {
			link, _ = s.Attr("href")
		}
		if isVideoLink(link) {
			p.VideoURL = link
			return false
		}
		return true
	})

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Remove()
	p.Text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	return p, nil
}

func isVideoLink(link string) bool {
	return strings.Contains(link, "youtube.com/") || strings.Contains(link, "youtu.be/") || strings.Contains(link, "vimeo.com/")
}

func formatToHTML(w catalog.Item, sourceURL string) string {
	esc := html.EscapeString
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p><i>Imported from: <a href=\"%s\">%s</a></i></p>", esc(sourceURL), esc(sourceURL))

	if w.URL != "" {
		fmt.Fprintf(&sb, "<p><a href=\"%s\">Watch the workout</a></p>", esc(w.URL))
	}
	if w.Description != "" {
		fmt.Fprintf(&sb, "<p>%s</p>", esc(w.Description))
	}

	sb.WriteString("<ul>")
	if len(w.Focus) > 0 {
		fmt.Fprintf(&sb, "<li><strong>Focus:</strong> %s</li>", esc(strings.Join(w.Focus, ", ")))
	}
	if w.DurationMins != nil {
		fmt.Fprintf(&sb, "<li><strong>Duration:</strong> %d mins</li>", *w.DurationMins)
	}
	if w.Difficulty != "" {
		fmt.Fprintf(&sb, "<li><strong>Difficulty:</strong> %s</li>", esc(w.Difficulty))
	}
	if len(w.Equipment) > 0 {
		fmt.Fprintf(&sb, "<li><strong>Equipment:</strong> %s</li>", esc(strings.Join(w.Equipment, ", ")))
	}
	sb.WriteString("</ul>")

	return sb.String()
}
