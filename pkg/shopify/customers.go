package shopify

import (
	"context"
	"strings"

	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
)

const maxMetafieldsPerCustomer = 10

const customersQuery = `query CustomersWithMetafields($first: Int!, $after: String, $keys: [String!]) {
  customers(first: $first, after: $after) {
    edges {
      node {
        id
        firstName
        lastName
        email
        metafields(first: 10, keys: $keys) {
          edges { node { namespace key value } }
        }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const customerIDsQuery = `query CustomerIDs($first: Int!, $after: String) {
  customers(first: $first, after: $after) {
    edges { node { id } }
    pageInfo { hasNextPage endCursor }
  }
}`

const customerQuery = `query CustomerWithMetafields($id: ID!, $keys: [String!]) {
  customer(id: $id) {
    id
    firstName
    lastName
    email
    metafields(first: 10, keys: $keys) {
      edges { node { namespace key value } }
    }
  }
}`

type metafieldNode struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

type customerNode struct {
	ID         string  `json:"id"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Email      *string `json:"email"`
	Metafields struct {
		Edges []struct {
			Node metafieldNode `json:"node"`
		} `json:"edges"`
	} `json:"metafields"`
}

func (n customerNode) toCustomer() Customer {
	c := Customer{
		ID:         n.ID,
		FirstName:  deref(n.FirstName),
		LastName:   deref(n.LastName),
		Email:      deref(n.Email),
		Metafields: make(map[string]string, len(n.Metafields.Edges)),
	}
	for _, edge := range n.Metafields.Edges {
		c.Metafields[MetafieldRef(edge.Node.Namespace, edge.Node.Key)] = edge.Node.Value
	}
	return c
}

// ListCustomers returns one page of customers with the metafields named by keys ("namespace.key").
func (c *Client) ListCustomers(ctx context.Context, first int, after string, keys []string) (*CustomerPage, error) {
	if err := checkPageSize(first); err != nil {
		return nil, err
	}
	if len(keys) > maxMetafieldsPerCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many metafield keys requested")
	}
	var out struct {
		Customers struct {
			Edges []struct {
				Node customerNode `json:"node"`
			} `json:"edges"`
			PageInfo PageInfo `json:"pageInfo"`
		} `json:"customers"`
	}
	vars := map[string]any{
		"first": first,
		"after": cursorVar(after),
		"keys":  keys,
	}
	if err := c.do(ctx, "customers", customersQuery, vars, &out); err != nil {
		return nil, err
	}
	page := &CustomerPage{
		Customers: make([]Customer, 0, len(out.Customers.Edges)),
		PageInfo:  out.Customers.PageInfo,
	}
	for _, edge := range out.Customers.Edges {
		page.Customers = append(page.Customers, edge.Node.toCustomer())
	}
	return page, nil
}

// ListCustomerIDs returns one page of customer ids only.
func (c *Client) ListCustomerIDs(ctx context.Context, first int, after string) (*CustomerIDPage, error) {
	if err := checkPageSize(first); err != nil {
		return nil, err
	}
	var out struct {
		Customers struct {
			Edges []struct {
				Node struct {
					ID string `json:"id"`
				} `json:"node"`
			} `json:"edges"`
			PageInfo PageInfo `json:"pageInfo"`
		} `json:"customers"`
	}
	vars := map[string]any{
		"first": first,
		"after": cursorVar(after),
	}
	if err := c.do(ctx, "customer_ids", customerIDsQuery, vars, &out); err != nil {
		return nil, err
	}
	page := &CustomerIDPage{
		IDs:      make([]string, 0, len(out.Customers.Edges)),
		PageInfo: out.Customers.PageInfo,
	}
	for _, edge := range out.Customers.Edges {
		page.IDs = append(page.IDs, edge.Node.ID)
	}
	return page, nil
}

// Customer fetches a single customer with the requested metafields.
func (c *Client) Customer(ctx context.Context, id string, keys []string) (*Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	var out struct {
		Customer *customerNode `json:"customer"`
	}
	vars := map[string]any{
		"id":   id,
		"keys": keys,
	}
	if err := c.do(ctx, "customer", customerQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.Customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	customer := out.Customer.toCustomer()
	return &customer, nil
}

func checkPageSize(first int) error {
	if first <= 0 || first > 250 {
		return pkgerrors.New(pkgerrors.CodeValidation, "page size must be between 1 and 250")
	}
	return nil
}

func cursorVar(after string) any {
	if strings.TrimSpace(after) == "" {
		return nil
	}
	return after
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
