package linkedin

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
)

const (
	searchPath      = "/jobs/search/"
	guestSearchPath = "/jobs-guest/jobs/api/seeMoreJobPostings/search"

	// PageSize is how many cards a single guest search page yields.
	PageSize = 25

	defaultOrigin = "JOB_SEARCH_PAGE_JOB_FILTER"
)

// SearchParams is the immutable search specification a collection run is
// derived from. The field vocabulary mirrors LinkedIn's own query parameters:
// f_TPR is the posting-age window (e.g. r86400 for the past day), f_E the
// experience level (1 internship .. 6 executive), f_SB2 the salary band
// (1 = $40k+ .. 9 = $200k+).
type SearchParams struct {
	Keywords string `liparam:"keywords" mapstructure:"keywords"`
	GeoID    string `liparam:"geoId" mapstructure:"geo-id"`
	Location string `liparam:"location" mapstructure:"location"`
	Distance int    `liparam:"distance" mapstructure:"distance"`
	// liparam is a custom tag for reflect. Please see buildParams below.
	Period     string `liparam:"f_TPR" mapstructure:"period"`
	SortBy     string `liparam:"sortBy" mapstructure:"sort-by"`
	Experience int    `liparam:"f_E" mapstructure:"experience"`
	Salary     int    `liparam:"f_SB2" mapstructure:"salary"`
	MaxJobs    int    `liparam:"-" mapstructure:"max-jobs"`
}

// SearchURL renders the human-facing search page URL for the params. It is
// recorded in artifacts so a run can be replayed in a browser.
func (p *SearchParams) SearchURL(baseURL string) string {
	q := buildParams(p)
	q.Set("origin", defaultOrigin)
	q.Set("refresh", "true")
	return fmt.Sprintf("%s%s?%s", baseURL, searchPath, q.Encode())
}

// PageURL renders the guest search endpoint URL for the given zero-based
// page. Each page yields up to PageSize cards.
func (p *SearchParams) PageURL(baseURL string, page int) string {
	q := buildParams(p)
	q.Set("start", strconv.Itoa(page*PageSize))
	return fmt.Sprintf("%s%s?%s", baseURL, guestSearchPath, q.Encode())
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		// Our custom tag is using here.
		key := field.Tag.Get("liparam")
		if key == "" || key == "-" {
			continue
		}

		value := fmt.Sprintf("%v", reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface())
		if value != "" && value != "0" {
			q.Set(key, value)
		}
	}

	return q
}
