package shopifywebhook

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/angelmondragon/cartlimits-backend/internal/limits"
	"github.com/angelmondragon/cartlimits-backend/internal/spend"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

// TopicOrdersCreate is the only topic this backend subscribes to.
const TopicOrdersCreate = "orders/create"

// OrderPayload is the subset of the orders/create payload the spend tracker reads.
// Line items, addresses and the rest are ignored.
type OrderPayload struct {
	ID         json.Number    `json:"id"`
	TotalPrice string         `json:"total_price"`
	Currency   string         `json:"currency"`
	Customer   *OrderCustomer `json:"customer"`
}

type OrderCustomer struct {
	ID                json.Number `json:"id"`
	AdminGraphQLAPIID string      `json:"admin_graphql_api_id"`
}

// DecodeOrder parses an orders/create body.
func DecodeOrder(body []byte) (*OrderPayload, error) {
	var payload OrderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode order payload")
	}
	return &payload, nil
}

// Event converts the payload into a spend event. A missing customer yields a guest event.
func (p OrderPayload) Event() (spend.OrderEvent, error) {
	orderID := strings.TrimSpace(p.ID.String())
	if orderID == "" {
		return spend.OrderEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "order id missing")
	}
	total, ok := limits.ParseAmount(p.TotalPrice)
	if !ok {
		return spend.OrderEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "order total_price is not a number")
	}
	customerID, err := p.customerGID()
	if err != nil {
		return spend.OrderEvent{}, err
	}
	return spend.OrderEvent{
		OrderID:     orderID,
		CustomerID:  customerID,
		TotalAmount: total,
		Currency:    strings.ToUpper(strings.TrimSpace(p.Currency)),
	}, nil
}

func (p OrderPayload) customerGID() (string, error) {
	if p.Customer == nil {
		return "", nil
	}
	if gid := strings.TrimSpace(p.Customer.AdminGraphQLAPIID); shopify.IsCustomerGID(gid) {
		return gid, nil
	}
	raw := strings.TrimSpace(p.Customer.ID.String())
	if raw == "" {
		return "", nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order customer id is not numeric")
	}
	return shopify.CustomerGID(id), nil
}
