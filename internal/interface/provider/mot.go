package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
)

type motDefect struct {
	Text      string   `json:"text"`
	Type      string   `json:"type"`
	Dangerous flexBool `json:"dangerous"`
}

type motTestDTO struct {
	CompletedDate      string      `json:"completedDate"`
	TestResult         string      `json:"testResult"`
	ExpiryDate         string      `json:"expiryDate"`
	OdometerValue      flexInt     `json:"odometerValue"`
	OdometerUnit       string      `json:"odometerUnit"`
	OdometerResultType string      `json:"odometerResultType"`
	Defects            []motDefect `json:"defects"`
	RfrAndComments     []motDefect `json:"rfrAndComments"`
}

type motVehicleDTO struct {
	Registration string       `json:"registration"`
	MOTTests     []motTestDTO `json:"motTests"`
}

// motPayload accepts both the single-vehicle object and the legacy
// one-element array shape
type motPayload struct {
	vehicle motVehicleDTO
}

func (p *motPayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []motVehicleDTO
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		if len(list) == 0 {
			return eris.New("empty MOT vehicle list")
		}
		p.vehicle = list[0]
		return nil
	}
	return json.Unmarshal(data, &p.vehicle)
}

// MOTClient calls an MOT history endpoint
type MOTClient struct {
	client *Client
	path   func(vrm string) (string, url.Values)
}

// NewMOTClient creates an MOT provider that uses the main provider's
// mot endpoint
func NewMOTClient(client *Client) repository.MOTProvider {
	return &MOTClient{
		client: client,
		path: func(vrm string) (string, url.Values) {
			return "mot", url.Values{"vrm": {vrm}}
		},
	}
}

// NewDVSAMOTClient creates an MOT provider for the government MOT history
// API, which takes the mark in the path
func NewDVSAMOTClient(client *Client) repository.MOTProvider {
	return &MOTClient{
		client: client,
		path: func(vrm string) (string, url.Values) {
			return "registration/" + url.PathEscape(vrm), nil
		},
	}
}

// FetchMOT fetches the MOT history for vrm, most recent test first
func (m *MOTClient) FetchMOT(ctx context.Context, vrm string) (*entity.MOTData, error) {
	var payload motPayload
	path, query := m.path(vrm)
	if err := m.client.GetJSON(ctx, entity.ServiceMOT, path, query, &payload); err != nil {
		return nil, err
	}
	return adaptMOT(&payload.vehicle), nil
}

func adaptMOT(v *motVehicleDTO) *entity.MOTData {
	data := &entity.MOTData{Tests: make([]entity.MOTTest, 0, len(v.MOTTests))}

	for _, t := range v.MOTTests {
		completed := parseDate(t.CompletedDate)
		if completed == nil {
			continue
		}

		test := entity.MOTTest{
			TestDate:     *completed,
			ExpiryDate:   parseDate(t.ExpiryDate),
			Result:       entity.ParseMOTResult(t.TestResult),
			OdometerUnit: odometerUnit(t.OdometerUnit),
		}
		if t.OdometerValue.Valid && !strings.EqualFold(t.OdometerResultType, "UNREADABLE") {
			test.OdometerValue = t.OdometerValue.Value
		}

		for _, d := range append(t.Defects, t.RfrAndComments...) {
			severity := entity.ParseDefectSeverity(d.Type)
			if d.Dangerous {
				severity = entity.SeverityDangerous
			}
			test.Defects = append(test.Defects, entity.Defect{
				Text:     strings.TrimSpace(d.Text),
				Severity: severity,
			})
		}
		data.Tests = append(data.Tests, test)
	}

	entity.SortMOTTests(data.Tests)
	return data
}

func odometerUnit(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "km", "kilometres", "kilometers":
		return entity.UnitKilometres
	default:
		return entity.UnitMiles
	}
}
