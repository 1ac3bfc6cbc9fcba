package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/records"
)

//go:embed fixtures/experts.json
var defaultFixture string

type expertJSON struct {
	PartitionKey string   `json:"partitionKey"`
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Skills       []string `json:"skills"`
	Location     string   `json:"location"`
	Availability *bool    `json:"availability"`
}

// DecodeExperts reads a JSON array of experts into record rows. Every expert
// needs an id and a name.
func DecodeExperts(r io.Reader) ([]records.Row, error) {
	var experts []expertJSON
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&experts); err != nil {
		return nil, fmt.Errorf("decode experts: %w", err)
	}

	rows := make([]records.Row, 0, len(experts))
	seen := make(map[string]struct{}, len(experts))
	for i, expert := range experts {
		id := strings.TrimSpace(expert.ID)
		if id == "" {
			return nil, fmt.Errorf("expert %d: id is required", i)
		}
		if strings.TrimSpace(expert.Name) == "" {
			return nil, fmt.Errorf("expert %s: name is required", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("expert %s: duplicate id", id)
		}
		seen[id] = struct{}{}

		row := records.Row{
			PartitionKey: expert.PartitionKey,
			ID:           id,
			Name:         strings.TrimSpace(expert.Name),
			Skills:       strings.Join(expert.Skills, ","),
			Location:     strings.TrimSpace(expert.Location),
		}
		if expert.Availability != nil {
			row.Availability = domain.AvailabilityOf(*expert.Availability)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
