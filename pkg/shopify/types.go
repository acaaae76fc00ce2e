package shopify

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	customerGIDPrefix = "gid://shopify/Customer/"

	// OwnerTypeCustomer is the metafield owner type for customer fields.
	OwnerTypeCustomer = "CUSTOMER"

	// MaxMetafieldsPerSet is the platform cap on entries in one metafieldsSet call.
	MaxMetafieldsPerSet = 25
)

// PageInfo mirrors the GraphQL connection page info.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// Customer is a customer row with the requested metafield values keyed by "namespace.key".
type Customer struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	Metafields map[string]string
}

// Metafield returns the stored value for namespace.key, if any.
func (c Customer) Metafield(namespace, key string) (string, bool) {
	if c.Metafields == nil {
		return "", false
	}
	v, ok := c.Metafields[MetafieldRef(namespace, key)]
	return v, ok
}

// CustomerPage is one page of customers.
type CustomerPage struct {
	Customers []Customer
	PageInfo  PageInfo
}

// CustomerIDPage is one page of customer ids.
type CustomerIDPage struct {
	IDs      []string
	PageInfo PageInfo
}

// MetafieldsSetInput is one entry of a metafieldsSet mutation.
type MetafieldsSetInput struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// MetafieldDefinition is the subset of a definition needed to detect existing schema.
type MetafieldDefinition struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
}

// MetafieldDefinitionInput creates a definition.
type MetafieldDefinitionInput struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	OwnerType   string `json:"ownerType"`
}

// UserError is a field-level rejection returned by a mutation.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

// MetafieldRef joins namespace and key the way the metafields(keys:) argument expects.
func MetafieldRef(namespace, key string) string {
	return namespace + "." + key
}

// CustomerGID converts a numeric REST customer id into an Admin API global id.
func CustomerGID(id int64) string {
	return customerGIDPrefix + strconv.FormatInt(id, 10)
}

// ParseCustomerGID extracts the numeric id of a customer global id.
func ParseCustomerGID(gid string) (int64, error) {
	trimmed := strings.TrimSpace(gid)
	if !strings.HasPrefix(trimmed, customerGIDPrefix) {
		return 0, fmt.Errorf("not a customer gid: %q", gid)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(trimmed, customerGIDPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid customer gid: %q", gid)
	}
	return id, nil
}

// IsCustomerGID reports whether gid looks like a customer global id.
func IsCustomerGID(gid string) bool {
	_, err := ParseCustomerGID(gid)
	return err == nil
}
