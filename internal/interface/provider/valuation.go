package provider

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
)

// valuationResponse covers the nested ValuationList payload and the flat
// private/dealer/partExchange shape
type valuationResponse struct {
	ValuationList *struct {
		PrivateAverage  flexFloat `json:"PrivateAverage"`
		DealerForecourt flexFloat `json:"DealerForecourt"`
		PartExchange    flexFloat `json:"PartExchange"`
	} `json:"ValuationList"`
	Private      flexFloat `json:"private"`
	Dealer       flexFloat `json:"dealer"`
	PartExchange flexFloat `json:"partExchange"`
	Confidence   string    `json:"confidence"`
	Mileage      flexInt   `json:"mileage"`
	ValuedAt     string    `json:"valuationTime"`
}

// ValuationClient calls the valuation endpoint
type ValuationClient struct {
	client *Client
	now    func() time.Time
}

// NewValuationClient creates a valuation provider on top of a shared client
func NewValuationClient(client *Client) repository.ValuationProvider {
	return &ValuationClient{client: client, now: time.Now}
}

// FetchValuation prices vrm at mileage
func (v *ValuationClient) FetchValuation(ctx context.Context, vrm string, mileage int) (*entity.ValuationData, error) {
	var resp valuationResponse
	query := url.Values{
		"vrm":     {vrm},
		"mileage": {strconv.Itoa(mileage)},
	}
	if err := v.client.GetJSON(ctx, entity.ServiceValuation, "vehiclevaluation", query, &resp); err != nil {
		return nil, err
	}

	data, err := adaptValuation(&resp, mileage, v.now())
	if err != nil {
		return nil, &ProviderError{Service: entity.ServiceValuation, Kind: KindMalformed, Err: err}
	}
	return data, nil
}

func adaptValuation(resp *valuationResponse, mileage int, now time.Time) (*entity.ValuationData, error) {
	private, dealer, partEx := resp.Private, resp.Dealer, resp.PartExchange
	if l := resp.ValuationList; l != nil {
		private, dealer, partEx = l.PrivateAverage, l.DealerForecourt, l.PartExchange
	}
	if !private.Valid && !dealer.Valid && !partEx.Valid {
		return nil, eris.New("valuation payload has no prices")
	}

	valuedAt := now.UTC()
	if t := parseDate(resp.ValuedAt); t != nil {
		valuedAt = *t
	}
	if resp.Mileage.Valid {
		mileage = resp.Mileage.Value
	}

	return &entity.ValuationData{
		Valuation: entity.Valuation{
			PrivatePrice:      private.Value,
			DealerPrice:       dealer.Value,
			PartExchangePrice: partEx.Value,
			Confidence:        entity.ParseConfidence(resp.Confidence),
			Mileage:           mileage,
			ValuedAt:          valuedAt,
		},
	}, nil
}
