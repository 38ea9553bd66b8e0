package harvester

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/sirupsen/logrus"
)

// defaultPageSize is used when NewCSWClient is given a non-positive page
// size, and also bounds the largest page size accepted, per spec.md §4.2
// ("page of size <= 10 per request").
const defaultPageSize = 10

// RequestMode selects how CSWClient builds the GetRecords request body,
// per spec.md §4.2's three mutually exclusive alternative request modes.
type RequestMode int

const (
	// ModeUnfiltered issues a plain paginated GetRecords request (default).
	ModeUnfiltered RequestMode = iota
	// ModeFilter issues a structured AND-of-property-constraints request.
	ModeFilter
	// ModeRawXML sends a caller-supplied pre-built request body verbatim.
	ModeRawXML
)

// FilterConstraint is one property-equals/like constraint ANDed together
// in ModeFilter.
type FilterConstraint struct {
	Property string
	Value    string
	Like     bool
}

// Option configures a CSWClient at construction time.
type Option func(*CSWClient)

// WithFilter switches the client into ModeFilter, ANDing the given
// constraints into every request.
func WithFilter(constraints ...FilterConstraint) Option {
	return func(c *CSWClient) {
		c.mode = ModeFilter
		c.filter = constraints
	}
}

// WithRawXML switches the client into ModeRawXML, sending body verbatim
// (with %d substituted for the 1-based startPosition) for every page
// request.
func WithRawXML(body string) Option {
	return func(c *CSWClient) {
		c.mode = ModeRawXML
		c.rawXML = body
	}
}

// WithHTTPClient overrides the underlying *http.Client (defaults to
// http.DefaultClient).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *CSWClient) { c.http = hc }
}

// CSWClient harvests INSPIRE/ISO 19139 records from an OGC CSW endpoint.
type CSWClient struct {
	url      string
	http     *http.Client
	mode     RequestMode
	filter   []FilterConstraint
	rawXML   string
	log      *logrus.Logger
	pageSize int
}

// NewCSWClient builds a client against the given CSW GetRecords endpoint.
// pageSize sets the number of records requested per GetRecords call; a
// non-positive value falls back to defaultPageSize, and any value above
// defaultPageSize is clamped to it (spec.md §4.2 "page of size <= 10 per
// request").
func NewCSWClient(url string, log *logrus.Logger, pageSize int, opts ...Option) *CSWClient {
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}
	c := &CSWClient{url: url, http: http.DefaultClient, log: log, pageSize: pageSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Count issues a minimal-element-set request and returns the server's
// reported total match count.
func (c *CSWClient) Count(ctx context.Context) (int, error) {
	body := c.buildRequestBody(0, c.pageSize, "brief")
	resp, err := c.post(ctx, body)
	if err != nil {
		return 0, fmt.Errorf("csw count: %w", err)
	}
	return resp.SearchResults.NumberOfRecordsMatched, nil
}

// Harvest returns a channel yielding one Item per upstream record,
// closed once the harvest completes or ctx is cancelled. A connection
// failure is fatal (spec.md §4.2 "Failure") and terminates the harvest
// after being surfaced on errCh; per-record semantic errors are carried
// inline as Items and never stop the harvest.
func (c *CSWClient) Harvest(ctx context.Context) (<-chan Item, <-chan error) {
	items := make(chan Item)
	errCh := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errCh)

		start := 0
		for {
			if err := ctx.Err(); err != nil {
				errCh <- err
				return
			}

			dc, iso, matches, err := c.fetchPage(ctx, start)
			if err != nil {
				errCh <- fmt.Errorf("csw harvest: %w", err)
				return
			}
			if len(iso) == 0 {
				return
			}

			for _, it := range c.alignAndParse(dc, iso) {
				select {
				case items <- it:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}

			start += len(iso)
			if matches > 0 && start >= matches {
				return
			}
		}
	}()

	return items, errCh
}

// fetchPage issues the DC and ISO requests for one page concurrently
// (spec.md §4.2 steps 1-2), overlapping their network latency.
func (c *CSWClient) fetchPage(ctx context.Context, start int) ([]rawDCRecord, []rawISORecord, int, error) {
	var dc []rawDCRecord
	var iso []rawISORecord
	var matches int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := c.post(gctx, c.buildRequestBody(start, c.pageSize, "brief"))
		if err != nil {
			return fmt.Errorf("dublin core request: %w", err)
		}
		dc = resp.SearchResults.DCRecords
		return nil
	})
	g.Go(func() error {
		resp, err := c.post(gctx, c.buildRequestBody(start, c.pageSize, "full"))
		if err != nil {
			return fmt.Errorf("iso request: %w", err)
		}
		iso = resp.SearchResults.ISORecords
		matches = resp.SearchResults.NumberOfRecordsMatched
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}
	return dc, iso, matches, nil
}

// alignAndParse implements spec.md §4.2 step 3-4: align ISO records to
// DC identifiers by index, preferring a differing non-placeholder ISO
// identifier, then parse each into an Item.
func (c *CSWClient) alignAndParse(dc []rawDCRecord, iso []rawISORecord) []Item {
	items := make([]Item, 0, len(iso))
	for i, raw := range iso {
		id := raw.FileIdentifier.text()
		if i < len(dc) && dc[i].Identifier != "" {
			dcID := dc[i].Identifier
			if id == "" {
				id = dcID
			} else if id != dcID {
				if c.log != nil {
					c.log.WithFields(logrus.Fields{
						"dc_identifier":  dcID,
						"iso_identifier": id,
					}).Warn("csw record identifier misalignment; preferring ISO identifier")
				}
			}
		}

		rec := parseISORecord(&raw)
		if rec.Identifier == "" {
			rec.Identifier = id
		}

		if err := validateRecord(rec); err != nil {
			items = append(items, Item{Err: err})
			continue
		}
		items = append(items, Item{Record: rec})
	}
	return items
}

// validateRecord implements the only two semantic errors spec.md §4.2
// step 4 recognizes: a missing title or a missing abstract.
func validateRecord(rec *InspireRecord) *RecordError {
	if strings.TrimSpace(rec.Title) == "" {
		return &RecordError{ID: rec.Identifier, Cause: "missing title"}
	}
	if strings.TrimSpace(rec.Abstract) == "" {
		return &RecordError{ID: rec.Identifier, Cause: "missing abstract"}
	}
	return nil
}

func (c *CSWClient) buildRequestBody(start, max int, elementSetName string) string {
	switch c.mode {
	case ModeRawXML:
		return fmt.Sprintf(c.rawXML, start+1)
	case ModeFilter:
		return buildFilterRequest(start, max, elementSetName, c.filter)
	default:
		return buildUnfilteredRequest(start, max, elementSetName)
	}
}

func buildUnfilteredRequest(start, max int, elementSetName string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<csw:GetRecords xmlns:csw="http://www.opengis.net/cat/csw/2.0.2" service="CSW" version="2.0.2"
  resultType="results" startPosition="%d" maxRecords="%d"
  outputSchema="http://www.isotc211.org/2005/gmd">
  <csw:Query typeNames="gmd:MD_Metadata">
    <csw:ElementSetName>%s</csw:ElementSetName>
  </csw:Query>
</csw:GetRecords>`, start+1, max, elementSetName)
}

func buildFilterRequest(start, max int, elementSetName string, constraints []FilterConstraint) string {
	var b strings.Builder
	b.WriteString(`<ogc:And xmlns:ogc="http://www.opengis.net/ogc">`)
	for _, c := range constraints {
		op := "PropertyIsEqualTo"
		if c.Like {
			op = "PropertyIsLike"
		}
		fmt.Fprintf(&b, `<ogc:%s><ogc:PropertyName>%s</ogc:PropertyName><ogc:Literal>%s</ogc:Literal></ogc:%s>`,
			op, c.Property, c.Value, op)
	}
	b.WriteString(`</ogc:And>`)

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<csw:GetRecords xmlns:csw="http://www.opengis.net/cat/csw/2.0.2" service="CSW" version="2.0.2"
  resultType="results" startPosition="%d" maxRecords="%d"
  outputSchema="http://www.isotc211.org/2005/gmd">
  <csw:Query typeNames="gmd:MD_Metadata">
    <csw:ElementSetName>%s</csw:ElementSetName>
    <csw:Constraint version="1.1.0">
      <ogc:Filter xmlns:ogc="http://www.opengis.net/ogc">%s</ogc:Filter>
    </csw:Constraint>
  </csw:Query>
</csw:GetRecords>`, start+1, max, elementSetName, b.String())
}

func (c *CSWClient) post(ctx context.Context, body string) (*cswGetRecordsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("content-type", "application/xml")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to csw endpoint: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("csw endpoint returned status %d", httpResp.StatusCode)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read csw response: %w", err)
	}

	var resp cswGetRecordsResponse
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode csw response: %w", err)
	}
	return &resp, nil
}

// DefaultTimeout is the suggested http.Client timeout for CSW requests,
// mirroring the original harvester's default connect timeout of 30s.
const DefaultTimeout = 30 * time.Second
