package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const openLibraryService = "openlibrary"

// Book is the normalized Open Library record for an ISBN.
type Book struct {
	ISBN      string `json:"isbn"`
	Publisher string `json:"publisher"`
	Place     string `json:"place"`
	Pages     string `json:"pages"` // Page count, "" if unknown
}

// FlexibleString can unmarshal from either string or number JSON values.
// Open Library returns number_of_pages as either.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

type openLibraryName struct {
	Name string `json:"name"`
}

type openLibraryBook struct {
	Publishers    []openLibraryName `json:"publishers"`
	PublishPlaces []openLibraryName `json:"publish_places"`
	NumberOfPages FlexibleString    `json:"number_of_pages"`
}

// LookupByISBN fetches book metadata for an ISBN.
func (c *Client) LookupByISBN(ctx context.Context, isbn string) (*Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("%w: no ISBN to look up", ErrNotFound)
	}

	key := "ISBN:" + isbn
	params := url.Values{}
	params.Set("bibkeys", key)
	params.Set("format", "json")
	params.Set("jscmd", "data")

	var resp map[string]openLibraryBook
	if err := c.getJSON(ctx, openLibraryService, c.openLibraryURL+"/api/books", params, &resp); err != nil {
		return nil, err
	}
	ob, ok := resp[key]
	if !ok {
		return nil, fmt.Errorf("%w: ISBN %s", ErrNotFound, isbn)
	}

	book := &Book{ISBN: isbn}
	if len(ob.Publishers) > 0 {
		book.Publisher = strings.TrimSpace(ob.Publishers[0].Name)
	}
	if len(ob.PublishPlaces) > 0 {
		book.Place = strings.TrimSpace(ob.PublishPlaces[0].Name)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(ob.NumberOfPages.String())); err == nil && n > 0 {
		book.Pages = strconv.Itoa(n)
	}
	return book, nil
}
