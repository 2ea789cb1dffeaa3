package provider

import (
	"context"
	"net/url"
	"strings"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/pkg/utils"
)

type specsResponse struct {
	VehicleIdentification *identificationBlock `json:"VehicleIdentification"`
	ModelData             struct {
		Make         string `json:"Make"`
		Model        string `json:"Model"`
		ModelVariant string `json:"ModelVariant"`
		Range        string `json:"Range"`
	} `json:"ModelData"`
	BodyDetails struct {
		BodyStyle     string  `json:"BodyStyle"`
		NumberOfDoors flexInt `json:"NumberOfDoors"`
		NumberOfSeats flexInt `json:"NumberOfSeats"`
		Colour        string  `json:"Colour"`
		Color         string  `json:"Color"`
	} `json:"BodyDetails"`
	PowerSource struct {
		FuelType   string   `json:"FuelType"`
		IsHybrid   flexBool `json:"IsHybrid"`
		HybridType string   `json:"HybridType"`
	} `json:"PowerSource"`
	Transmission struct {
		TransmissionType string `json:"TransmissionType"`
	} `json:"Transmission"`
	Engine struct {
		EngineCapacityCc flexInt `json:"EngineCapacityCc"`
	} `json:"Engine"`
	Performance struct {
		FuelEconomy struct {
			UrbanColdMpg  flexFloat `json:"UrbanColdMpg"`
			ExtraUrbanMpg flexFloat `json:"ExtraUrbanMpg"`
			CombinedMpg   flexFloat `json:"CombinedMpg"`
		} `json:"FuelEconomy"`
		Co2 struct {
			Co2GramsPerKm flexInt `json:"Co2GramsPerKm"`
		} `json:"Co2"`
	} `json:"Performance"`
	Insurance struct {
		InsuranceGroup string `json:"InsuranceGroup"`
	} `json:"Insurance"`
	VehicleExciseDutyDetails struct {
		VedRate struct {
			Standard struct {
				TwelveMonths flexFloat `json:"TwelveMonths"`
			} `json:"Standard"`
		} `json:"VedRate"`
	} `json:"VehicleExciseDutyDetails"`
}

// SpecsClient calls the vehicle specification endpoint
type SpecsClient struct {
	client *Client
}

// NewSpecsClient creates a specs provider on top of a shared client
func NewSpecsClient(client *Client) repository.SpecsProvider {
	return &SpecsClient{client: client}
}

// FetchSpecs fetches and normalizes the technical data for vrm
func (s *SpecsClient) FetchSpecs(ctx context.Context, vrm string) (*entity.SpecsData, error) {
	var resp specsResponse
	query := url.Values{"vrm": {vrm}}
	if err := s.client.GetJSON(ctx, entity.ServiceSpecs, "vehiclespecs", query, &resp); err != nil {
		return nil, err
	}
	return adaptSpecs(&resp), nil
}

func adaptSpecs(resp *specsResponse) *entity.SpecsData {
	id := resp.VehicleIdentification
	if id == nil {
		id = &identificationBlock{}
	}

	fuel := titleCase(utils.FirstNonPlaceholder(resp.PowerSource.FuelType, id.DvlaFuelType))
	hybrid := bool(resp.PowerSource.IsHybrid) ||
		!utils.IsPlaceholder(resp.PowerSource.HybridType) ||
		isHybridLabel(fuel)

	data := &entity.SpecsData{
		Description: entity.VehicleDescription{
			Make:           utils.FirstNonPlaceholder(resp.ModelData.Make, id.DvlaMake),
			Model:          utils.FirstNonPlaceholder(resp.ModelData.Model, resp.ModelData.Range, id.DvlaModel),
			Variant:        utils.FirstNonPlaceholder(resp.ModelData.ModelVariant),
			Year:           id.YearOfManufacture.Ptr(),
			BodyType:       utils.FirstNonPlaceholder(resp.BodyDetails.BodyStyle, id.DvlaBodyType),
			FuelType:       fuel,
			Transmission:   titleCase(utils.FirstNonPlaceholder(resp.Transmission.TransmissionType)),
			EngineCapacity: resp.Engine.EngineCapacityCc.Ptr(),
			Colour:         titleCase(utils.FirstNonPlaceholder(resp.BodyDetails.Colour, resp.BodyDetails.Color)),
			Doors:          resp.BodyDetails.NumberOfDoors.Ptr(),
			Seats:          resp.BodyDetails.NumberOfSeats.Ptr(),
		},
		RunningCosts: entity.RunningCosts{
			UrbanMPG:       resp.Performance.FuelEconomy.UrbanColdMpg.Ptr(),
			ExtraUrbanMPG:  resp.Performance.FuelEconomy.ExtraUrbanMpg.Ptr(),
			CombinedMPG:    resp.Performance.FuelEconomy.CombinedMpg.Ptr(),
			CO2Emissions:   resp.Performance.Co2.Co2GramsPerKm.Ptr(),
			InsuranceGroup: utils.FirstNonPlaceholder(resp.Insurance.InsuranceGroup),
			AnnualTax:      resp.VehicleExciseDutyDetails.VedRate.Standard.TwelveMonths.Ptr(),
		},
		Hybrid: hybrid,
	}
	return data
}

func isHybridLabel(fuel string) bool {
	f := strings.ToLower(fuel)
	return strings.Contains(f, "hybrid") || strings.Contains(f, "mhev") ||
		strings.Contains(f, "/electric")
}
