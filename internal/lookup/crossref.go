package lookup

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const crossrefService = "crossref"

// Contributor is an author as returned by Crossref.
type Contributor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// Work is the normalized Crossref record for an article, chapter or book.
// Empty fields mean the service did not supply a value.
type Work struct {
	DOI            string        `json:"doi"`
	Title          string        `json:"title"`
	Contributors   []Contributor `json:"contributors"`
	ContainerTitle string        `json:"container_title"`
	Volume         string        `json:"volume"`
	Issue          string        `json:"issue"`
	Page           string        `json:"page"` // "100-110" or a single page
	Year           int           `json:"year"` // 0 if unknown
}

// crossrefItem mirrors the subset of the Crossref work schema we read.
type crossrefItem struct {
	DOI            string   `json:"DOI"`
	Title          []string `json:"title"`
	ContainerTitle []string `json:"container-title"`
	Volume         string   `json:"volume"`
	Issue          string   `json:"issue"`
	Page           string   `json:"page"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	Issued struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"issued"`
}

// LookupByTitleOrDOI fetches a work by DOI when one is given, otherwise by
// the best bibliographic match for title.
func (c *Client) LookupByTitleOrDOI(ctx context.Context, doi, title string) (*Work, error) {
	doi = strings.TrimSpace(doi)
	title = strings.TrimSpace(title)

	switch {
	case doi != "":
		return c.workByDOI(ctx, doi)
	case title != "":
		return c.workByTitle(ctx, title)
	default:
		return nil, fmt.Errorf("%w: no DOI or title to look up", ErrNotFound)
	}
}

func (c *Client) workByDOI(ctx context.Context, doi string) (*Work, error) {
	endpoint := c.crossrefURL + "/works/" + escapeDOI(doi)

	var resp struct {
		Message *crossrefItem `json:"message"`
	}
	if err := c.getJSON(ctx, crossrefService, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Message == nil {
		return nil, fmt.Errorf("%w: DOI %s", ErrNotFound, doi)
	}
	return resp.Message.toWork(), nil
}

func (c *Client) workByTitle(ctx context.Context, title string) (*Work, error) {
	params := url.Values{}
	params.Set("query.title", title)
	params.Set("rows", "1")

	var resp struct {
		Message struct {
			Items []crossrefItem `json:"items"`
		} `json:"message"`
	}
	if err := c.getJSON(ctx, crossrefService, c.crossrefURL+"/works", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Message.Items) == 0 {
		return nil, fmt.Errorf("%w: title %q", ErrNotFound, title)
	}
	return resp.Message.Items[0].toWork(), nil
}

func (it *crossrefItem) toWork() *Work {
	w := &Work{
		DOI:    strings.TrimSpace(it.DOI),
		Volume: strings.TrimSpace(it.Volume),
		Issue:  strings.TrimSpace(it.Issue),
		Page:   strings.TrimSpace(it.Page),
	}
	if len(it.Title) > 0 {
		w.Title = strings.TrimSpace(it.Title[0])
	}
	if len(it.ContainerTitle) > 0 {
		w.ContainerTitle = strings.TrimSpace(it.ContainerTitle[0])
	}
	for _, a := range it.Author {
		w.Contributors = append(w.Contributors, Contributor{
			Given:  strings.TrimSpace(a.Given),
			Family: strings.TrimSpace(a.Family),
		})
	}
	if len(it.Issued.DateParts) > 0 && len(it.Issued.DateParts[0]) > 0 {
		w.Year = it.Issued.DateParts[0][0]
	}
	return w
}

// escapeDOI path-escapes a DOI while keeping its slashes.
func escapeDOI(doi string) string {
	parts := strings.Split(doi, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
