package scraper

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"transfer_agents/models"
)

// ProfileParser finds the agent on a player profile page. The page lists
// facts as label/value span pairs; the agent's label contains the marker.
type ProfileParser struct {
	marker string
}

func NewProfileParser(marker string) *ProfileParser {
	return &ProfileParser{marker: marker}
}

// Parse never fails: unreadable or unexpected markup resolves to NotFound.
func (p *ProfileParser) Parse(r io.Reader) models.AgentOutcome {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.NotFound()
	}

	outcome := models.NotFound()
	doc.Find("span.info-table__content--regular").EachWithBreak(func(i int, label *goquery.Selection) bool {
		if !strings.Contains(strings.TrimSpace(label.Text()), p.marker) {
			return true
		}

		value := label.NextAllFiltered("span").First()
		if value.Length() == 0 {
			return false
		}

		name := strings.TrimSpace(value.Text())
		if a := value.Find("a").First(); a.Length() > 0 {
			name = strings.TrimSpace(a.Text())
		}
		if name != "" {
			outcome = models.Resolved(name)
		}
		return false
	})

	return outcome
}
