package feed

import (
	"encoding/xml"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Feed type discriminators stored in the feeds table.
const (
	VariantHackerNews = "hackernews"
	VariantReddit     = "reddit"
)

// SourceHackerNews is the fixed source label for the HN variant.
const SourceHackerNews = "hackernews"

const defaultItemType = "article"

// Reddit feeds return up to 25 entries per request; only the top few
// are worth keeping per ingestion pass.
const redditEntryCap = 5

const snippetLen = 200

// Draft is a parsed feed entry prior to identity assignment and
// persistence. The store assigns the id; seen defaults to false.
type Draft struct {
	Title    string
	Link     string
	PubDate  time.Time
	Type     string
	Source   string
	ImageURL string
}

// Options controls parse-time policy.
type Options struct {
	// Now stamps drafts when the source's pub_date_mode is "ingestion"
	// (and as a fallback for missing feed timestamps). Zero means
	// time.Now().
	Now time.Time

	// UseFeedTime keeps the feed-supplied publish timestamp instead of
	// the ingestion time (pub_date_mode = "feed").
	UseFeedTime bool
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Parse converts a raw feed document into drafts according to the
// variant's parsing rules. sourceName labels drafts for non-HN
// variants. Order is feed-document order.
func Parse(raw []byte, variant, sourceName string, opts Options) ([]Draft, error) {
	switch strings.ToLower(variant) {
	case VariantHackerNews:
		return parseHackerNews(raw, opts)
	case VariantReddit:
		return parseReddit(raw, sourceName, opts)
	default:
		return nil, &UnsupportedTypeError{Type: variant}
	}
}

// --- HackerNews RSS 2.0 ---

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// hnrss.org appends the score to every title, e.g. "Foo (123 points)".
var pointsSuffix = regexp.MustCompile(` \([0-9]+ points\)$`)

func parseHackerNews(raw []byte, opts Options) ([]Draft, error) {
	var doc rssDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Variant: VariantHackerNews, Snippet: snippet(raw), Err: err}
	}

	drafts := make([]Draft, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		drafts = append(drafts, Draft{
			Title:   strings.TrimSpace(pointsSuffix.ReplaceAllString(strings.TrimSpace(item.Title), "")),
			Link:    strings.TrimSpace(item.Link),
			PubDate: resolvePubDate(item.PubDate, time.RFC1123Z, opts),
			Type:    defaultItemType,
			Source:  SourceHackerNews,
		})
	}
	return drafts, nil
}

// --- Reddit-style Atom ---

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string `xml:"title"`
	Published string `xml:"published"`

	// Repeated-and-optional elements decode as slices regardless of
	// whether the document carries zero, one, or many of them.
	Links      []atomLink     `xml:"link"`
	Categories []atomCategory `xml:"category"`

	Thumbnail atomThumbnail `xml:"thumbnail"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomThumbnail struct {
	URL string `xml:"url,attr"`
}

func parseReddit(raw []byte, sourceName string, opts Options) ([]Draft, error) {
	var doc atomFeed
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Variant: VariantReddit, Snippet: snippet(raw), Err: err}
	}

	entries := doc.Entries
	if len(entries) > redditEntryCap {
		entries = entries[:redditEntryCap]
	}

	drafts := make([]Draft, 0, len(entries))
	for _, entry := range entries {
		link := entryLink(entry.Links)
		if link == "" {
			log.Warn().
				Str("source", sourceName).
				Str("title", entry.Title).
				Msg("Skipping entry without a usable link")
			continue
		}

		category := defaultItemType
		if len(entry.Categories) > 0 && entry.Categories[0].Term != "" {
			category = entry.Categories[0].Term
		}

		drafts = append(drafts, Draft{
			Title:    strings.TrimSpace(entry.Title),
			Link:     link,
			PubDate:  resolvePubDate(entry.Published, time.RFC3339, opts),
			Type:     category,
			Source:   sourceName,
			ImageURL: entry.Thumbnail.URL,
		})
	}
	return drafts, nil
}

// entryLink picks the entry's canonical link: the rel="alternate"
// candidate wins, otherwise the first one present.
func entryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "alternate" && l.Href != "" {
			return l.Href
		}
	}
	for _, l := range links {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}

// resolvePubDate applies the pub-date policy: ingestion time by
// default, the feed's own timestamp when requested and parseable.
func resolvePubDate(value, layout string, opts Options) time.Time {
	if !opts.UseFeedTime {
		return opts.now()
	}
	ts, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		log.Debug().Str("value", value).Msg("Unparseable feed timestamp, falling back to ingestion time")
		return opts.now()
	}
	return ts
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > snippetLen {
		return s[:snippetLen]
	}
	return s
}
