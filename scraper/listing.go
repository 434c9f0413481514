package scraper

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"transfer_agents/identity"
	"transfer_agents/models"
)

const missingHeadline = "No Headline Found"

// Column positions in a club's transfer table row. The player cell holds a
// nested table, so these count every descendant td.
const (
	playerCell = 0
	clubCell   = 7
	feeCell    = 8
)

// ListingParser extracts transfers from a league transfers page. The page is a
// run of club boxes, each with an arrivals table followed by a departures table.
// If the markup changes the parser returns fewer rows rather than failing.
type ListingParser struct {
	baseURL *url.URL
	ignored map[string]bool
}

// ListingResult is what one listings page yielded.
type ListingResult struct {
	Records         []models.TransferRecord
	SectionsSkipped int
	RowsSkipped     int
	Duplicates      int
}

func NewListingParser(baseURL string, ignoredHeadlines []string) *ListingParser {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		base = &url.URL{}
	}

	ignored := make(map[string]bool, len(ignoredHeadlines))
	for _, h := range ignoredHeadlines {
		ignored[strings.TrimSpace(h)] = true
	}
	return &ListingParser{baseURL: base, ignored: ignored}
}

// Parse reads a listings page. Empty input gives an empty result.
func (p *ListingParser) Parse(r io.Reader) (*ListingResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	result := &ListingResult{}
	if len(bytes.TrimSpace(data)) == 0 {
		return result, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	doc.Find("div.box").Each(func(i int, box *goquery.Selection) {
		headline := missingHeadline
		if h := box.Find("h2.content-box-headline").First(); h.Length() > 0 {
			headline = strings.TrimSpace(h.Text())
		}
		if p.ignored[headline] {
			result.SectionsSkipped++
			return
		}

		tables := box.Find("div.responsive-table")
		if tables.Length() > 0 {
			p.parseTable(tables.Eq(0), headline, models.DirectionArrival, result)
		}
		if tables.Length() > 1 {
			p.parseTable(tables.Eq(1), headline, models.DirectionDeparture, result)
		}
	})

	result.Records, result.Duplicates = identity.Dedupe(result.Records)
	return result, nil
}

func (p *ListingParser) parseTable(table *goquery.Selection, club string, dir models.Direction, result *ListingResult) {
	table.Find("tbody").First().Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= feeCell {
			return
		}

		link := cells.Eq(playerCell).Find("a").First()
		player := strings.TrimSpace(link.Text())
		if link.Length() == 0 || player == "" {
			result.RowsSkipped++
			return
		}

		counterpart := models.ClubPlaceholder
		if a := cells.Eq(clubCell).Find("a").First(); a.Length() > 0 {
			if title, ok := a.Attr("title"); ok && strings.TrimSpace(title) != "" {
				counterpart = strings.TrimSpace(title)
			}
		}

		rec := models.TransferRecord{
			Player: player,
			Fee:    strings.TrimSpace(cells.Eq(feeCell).Text()),
			Type:   dir,
		}
		if href, ok := link.Attr("href"); ok {
			rec.PlayerURL = p.resolve(href)
		}

		if dir == models.DirectionArrival {
			rec.FromClub, rec.ToClub = counterpart, club
		} else {
			rec.FromClub, rec.ToClub = club, counterpart
		}

		result.Records = append(result.Records, rec)
	})
}

func (p *ListingParser) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(ref).String()
}
