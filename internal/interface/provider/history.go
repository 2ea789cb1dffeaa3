package provider

import (
	"context"
	"net/url"
	"strings"
	"time"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/pkg/utils"
)

// registrationBlock is the DVLA-style descriptive block. Older payloads spell
// colour the American way.
type registrationBlock struct {
	Make              string  `json:"Make"`
	Model             string  `json:"Model"`
	Colour            string  `json:"Colour"`
	Color             string  `json:"Color"`
	FuelType          string  `json:"FuelType"`
	Transmission      string  `json:"Transmission"`
	BodyStyle         string  `json:"BodyStyle"`
	YearOfManufacture flexInt `json:"YearOfManufacture"`
	EngineCapacity    flexInt `json:"EngineCapacity"`
	NumberOfDoors     flexInt `json:"NumberOfDoors"`
	SeatingCapacity   flexInt `json:"SeatingCapacity"`
}

type identificationBlock struct {
	DvlaMake          string  `json:"DvlaMake"`
	DvlaModel         string  `json:"DvlaModel"`
	DvlaBodyType      string  `json:"DvlaBodyType"`
	DvlaFuelType      string  `json:"DvlaFuelType"`
	YearOfManufacture flexInt `json:"YearOfManufacture"`
}

type historyResponse struct {
	VehicleRegistration   *registrationBlock   `json:"VehicleRegistration"`
	VehicleIdentification *identificationBlock `json:"VehicleIdentification"`
	VehicleHistory        struct {
		NumberOfPreviousKeepers flexInt `json:"NumberOfPreviousKeepers"`
		PlateChangeList         []struct {
			PreviousVRM string `json:"PreviousVrm"`
			DateChanged string `json:"DateChanged"`
		} `json:"PlateChangeList"`
		ColourChangeList []struct {
			PreviousColour string `json:"PreviousColour"`
			PreviousColor  string `json:"PreviousColor"`
			DateChanged    string `json:"DateOfLastColourChange"`
		} `json:"ColourChangeList"`
	} `json:"VehicleHistory"`
	WriteOffRecord *struct {
		Category    string `json:"Category"`
		LossDate    string `json:"LossDate"`
		Description string `json:"Description"`
	} `json:"WriteOffRecord"`
	StolenRecord *struct {
		Stolen  flexBool `json:"Stolen"`
		Details string   `json:"Details"`
	} `json:"StolenRecord"`
	FinanceRecord *struct {
		Outstanding flexBool `json:"Outstanding"`
		Details     string   `json:"Details"`
	} `json:"FinanceRecord"`
	AccidentRecord *struct {
		Accident flexBool `json:"Accident"`
		Details  string   `json:"Details"`
	} `json:"AccidentRecord"`
}

// HistoryClient calls the vehicle history check endpoint
type HistoryClient struct {
	client *Client
}

// NewHistoryClient creates a history provider on top of a shared client
func NewHistoryClient(client *Client) repository.HistoryProvider {
	return &HistoryClient{client: client}
}

// FetchHistory fetches and normalizes the history check for vrm
func (h *HistoryClient) FetchHistory(ctx context.Context, vrm string) (*entity.HistoryData, error) {
	var resp historyResponse
	query := url.Values{"vrm": {vrm}}
	if err := h.client.GetJSON(ctx, entity.ServiceHistory, "carhistorycheck", query, &resp); err != nil {
		return nil, err
	}
	return adaptHistory(&resp), nil
}

func adaptHistory(resp *historyResponse) *entity.HistoryData {
	data := &entity.HistoryData{
		Description: describe(resp.VehicleRegistration, resp.VehicleIdentification),
	}

	h := &data.History
	h.PreviousKeepers = keeperCount(resp.VehicleHistory.NumberOfPreviousKeepers)

	for _, pc := range resp.VehicleHistory.PlateChangeList {
		if strings.TrimSpace(pc.PreviousVRM) == "" {
			continue
		}
		h.PlateChanges = append(h.PlateChanges, entity.PlateChange{
			PreviousVRM: utils.NormalizeVRM(pc.PreviousVRM),
			ChangedAt:   parseDate(pc.DateChanged),
		})
	}
	for _, cc := range resp.VehicleHistory.ColourChangeList {
		colour := utils.FirstNonPlaceholder(cc.PreviousColour, cc.PreviousColor)
		if colour == "" {
			continue
		}
		h.ColourChanges = append(h.ColourChanges, entity.ColourChange{
			PreviousColour: colour,
			ChangedAt:      parseDate(cc.DateChanged),
		})
	}

	h.WriteOff.Category = entity.WriteOffNone
	if w := resp.WriteOffRecord; w != nil {
		h.WriteOff = entity.WriteOff{
			Category:    entity.ParseWriteOffCategory(w.Category),
			Date:        parseDate(w.LossDate),
			Description: strings.TrimSpace(w.Description),
		}
	}
	if s := resp.StolenRecord; s != nil {
		h.Stolen = bool(s.Stolen)
		h.StolenDetail = strings.TrimSpace(s.Details)
	}
	if f := resp.FinanceRecord; f != nil {
		h.OutstandingFinance = bool(f.Outstanding)
		h.FinanceDetail = strings.TrimSpace(f.Details)
	}
	if a := resp.AccidentRecord; a != nil {
		h.Accident = bool(a.Accident)
		h.AccidentDetail = strings.TrimSpace(a.Details)
	}
	return data
}

// describe merges the registration block with the DVLA identification
// block, preferring the registration block
func describe(reg *registrationBlock, id *identificationBlock) entity.VehicleDescription {
	if reg == nil {
		reg = &registrationBlock{}
	}
	if id == nil {
		id = &identificationBlock{}
	}

	desc := entity.VehicleDescription{
		Make:           utils.FirstNonPlaceholder(reg.Make, id.DvlaMake),
		Model:          utils.FirstNonPlaceholder(reg.Model, id.DvlaModel),
		BodyType:       utils.FirstNonPlaceholder(reg.BodyStyle, id.DvlaBodyType),
		FuelType:       titleCase(utils.FirstNonPlaceholder(reg.FuelType, id.DvlaFuelType)),
		Transmission:   titleCase(utils.FirstNonPlaceholder(reg.Transmission)),
		Colour:         titleCase(utils.FirstNonPlaceholder(reg.Colour, reg.Color)),
		EngineCapacity: reg.EngineCapacity.Ptr(),
		Doors:          reg.NumberOfDoors.Ptr(),
		Seats:          reg.SeatingCapacity.Ptr(),
	}
	if year := reg.YearOfManufacture.Ptr(); year != nil {
		desc.Year = year
	} else {
		desc.Year = id.YearOfManufacture.Ptr()
	}
	return desc
}

func keeperCount(f flexInt) *int {
	if !f.Valid || f.Value < 0 {
		return nil
	}
	return intPtr(f.Value)
}

func parseDate(raw string) *time.Time {
	t, ok := utils.ParseProviderDate(raw)
	if !ok {
		return nil
	}
	return &t
}

// titleCase turns "DIESEL HYBRID" into "Diesel Hybrid"
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
