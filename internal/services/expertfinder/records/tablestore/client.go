// Package tablestore implements the record store collaborator over the
// Azure Table service REST API using a shared access signature.
package tablestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/louisbranch/expertfinder/internal/platform/timeouts"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/records"
)

const (
	apiVersion   = "2019-02-02"
	acceptHeader = "application/json;odata=nometadata"
	maxPages     = 20

	headerNextPartitionKey = "x-ms-continuation-NextPartitionKey"
	headerNextRowKey       = "x-ms-continuation-NextRowKey"
)

// ErrInvalidConnection indicates the connection string has no endpoint or
// signature.
var ErrInvalidConnection = errors.New("invalid table store connection")

// Connection is a parsed table service endpoint and SAS token.
type Connection struct {
	Endpoint string
	SAS      url.Values
}

// ParseConnection accepts either an account connection string
// ("TableEndpoint=...;SharedAccessSignature=...") or an endpoint URL whose
// query string is the SAS token.
func ParseConnection(raw string) (Connection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Connection{}, ErrInvalidConnection
	}
	if strings.Contains(raw, "TableEndpoint=") {
		return parseConnectionString(raw)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Connection{}, fmt.Errorf("%w: endpoint must be an absolute url", ErrInvalidConnection)
	}
	sas := parsed.Query()
	if len(sas) == 0 {
		return Connection{}, fmt.Errorf("%w: missing shared access signature", ErrInvalidConnection)
	}
	parsed.RawQuery = ""
	return Connection{Endpoint: strings.TrimRight(parsed.String(), "/"), SAS: sas}, nil
}

func parseConnectionString(raw string) (Connection, error) {
	var conn Connection
	for _, part := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "TableEndpoint":
			conn.Endpoint = strings.TrimRight(value, "/")
		case "SharedAccessSignature":
			sas, err := url.ParseQuery(strings.TrimPrefix(value, "?"))
			if err != nil {
				return Connection{}, fmt.Errorf("%w: %v", ErrInvalidConnection, err)
			}
			conn.SAS = sas
		}
	}
	if conn.Endpoint == "" {
		return Connection{}, fmt.Errorf("%w: missing TableEndpoint", ErrInvalidConnection)
	}
	if len(conn.SAS) == 0 {
		return Connection{}, fmt.Errorf("%w: missing SharedAccessSignature", ErrInvalidConnection)
	}
	return conn, nil
}

// Client queries tables over HTTP.
type Client struct {
	conn       Connection
	httpClient *http.Client
}

// New builds a client. A nil httpClient gets the store query timeout.
func New(conn Connection, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.StoreQuery}
	}
	return &Client{conn: conn, httpClient: httpClient}
}

// Query returns the rows matching predicate, following continuation
// headers.
func (c *Client) Query(ctx context.Context, table, predicate string) ([]records.Row, error) {
	if strings.TrimSpace(table) == "" {
		return nil, records.ErrTableRequired
	}
	var rows []records.Row
	var nextPartition, nextRow string
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("table query exceeded %d pages", maxPages)
		}
		entities, continuation, err := c.queryPage(ctx, table, predicate, nextPartition, nextRow)
		if err != nil {
			return nil, err
		}
		for _, entity := range entities {
			rows = append(rows, normalizeEntity(entity))
		}
		nextPartition, nextRow = continuation.Get(headerNextPartitionKey), continuation.Get(headerNextRowKey)
		if nextPartition == "" && nextRow == "" {
			return rows, nil
		}
	}
}

func (c *Client) queryPage(ctx context.Context, table, predicate, nextPartition, nextRow string) ([]map[string]any, http.Header, error) {
	query := url.Values{}
	for key, values := range c.conn.SAS {
		query[key] = values
	}
	if predicate != "" {
		query.Set("$filter", predicate)
	}
	if nextPartition != "" {
		query.Set("NextPartitionKey", nextPartition)
	}
	if nextRow != "" {
		query.Set("NextRowKey", nextRow)
	}
	endpoint := c.conn.Endpoint + "/" + url.PathEscape(table) + "()?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("x-ms-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, fmt.Errorf("table query failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Value []map[string]any `json:"value"`
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("decode table entities: %w", err)
	}
	return payload.Value, resp.Header, nil
}

func normalizeEntity(entity map[string]any) records.Row {
	row := records.Row{
		PartitionKey: stringField(entity, "PartitionKey"),
		ID:           stringField(entity, "RowKey"),
		Name:         stringField(entity, "name"),
		Skills:       stringField(entity, "skills"),
		Location:     stringField(entity, "location"),
	}
	if row.Location == "" {
		row.Location = stringField(entity, "country")
	}
	switch value := entity["availability"].(type) {
	case bool:
		row.Availability = domain.AvailabilityOf(value)
	case string:
		if parsed, err := strconv.ParseBool(value); err == nil {
			row.Availability = domain.AvailabilityOf(parsed)
		}
	}
	return row
}

func stringField(entity map[string]any, key string) string {
	switch value := entity[key].(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	default:
		return ""
	}
}
