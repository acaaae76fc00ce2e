package shopify

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
)

const metafieldsSetMutation = `mutation MetafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { id key namespace }
    userErrors { field message code }
  }
}`

const metafieldDefinitionsQuery = `query MetafieldDefinitions($ownerType: MetafieldOwnerType!, $first: Int!, $after: String) {
  metafieldDefinitions(ownerType: $ownerType, first: $first, after: $after) {
    edges { node { id name namespace key type { name } } }
    pageInfo { hasNextPage endCursor }
  }
}`

const metafieldDefinitionCreateMutation = `mutation CreateMetafieldDefinition($definition: MetafieldDefinitionInput!) {
  metafieldDefinitionCreate(definition: $definition) {
    createdDefinition { id name }
    userErrors { field message code }
  }
}`

// definitionTakenCode is reported when a definition with the same namespace/key already exists.
const definitionTakenCode = "TAKEN"

// SetMetafields writes up to MaxMetafieldsPerSet values in one call and returns how many the store
// confirmed. Field-level rejections become a STORE_REJECTED error carrying the first message.
func (c *Client) SetMetafields(ctx context.Context, inputs []MetafieldsSetInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}
	if len(inputs) > MaxMetafieldsPerSet {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d metafields per call", MaxMetafieldsPerSet))
	}
	var out struct {
		MetafieldsSet struct {
			Metafields []struct {
				ID string `json:"id"`
			} `json:"metafields"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := c.do(ctx, "metafields_set", metafieldsSetMutation, map[string]any{"metafields": inputs}, &out); err != nil {
		return 0, err
	}
	if err := userErrorsToError(out.MetafieldsSet.UserErrors); err != nil {
		c.log(ctx, "error", "metafields_set", map[string]any{"error": err.Error(), "user_error_count": len(out.MetafieldsSet.UserErrors)})
		return 0, err
	}
	return len(out.MetafieldsSet.Metafields), nil
}

// MetafieldDefinitions lists every definition for ownerType.
func (c *Client) MetafieldDefinitions(ctx context.Context, ownerType string) ([]MetafieldDefinition, error) {
	var (
		defs  []MetafieldDefinition
		after string
	)
	for {
		var out struct {
			MetafieldDefinitions struct {
				Edges []struct {
					Node struct {
						ID        string `json:"id"`
						Name      string `json:"name"`
						Namespace string `json:"namespace"`
						Key       string `json:"key"`
						Type      struct {
							Name string `json:"name"`
						} `json:"type"`
					} `json:"node"`
				} `json:"edges"`
				PageInfo PageInfo `json:"pageInfo"`
			} `json:"metafieldDefinitions"`
		}
		vars := map[string]any{
			"ownerType": ownerType,
			"first":     250,
			"after":     cursorVar(after),
		}
		if err := c.do(ctx, "metafield_definitions", metafieldDefinitionsQuery, vars, &out); err != nil {
			return nil, err
		}
		for _, edge := range out.MetafieldDefinitions.Edges {
			defs = append(defs, MetafieldDefinition{
				ID:        edge.Node.ID,
				Name:      edge.Node.Name,
				Namespace: edge.Node.Namespace,
				Key:       edge.Node.Key,
				Type:      edge.Node.Type.Name,
			})
		}
		info := out.MetafieldDefinitions.PageInfo
		if !info.HasNextPage || info.EndCursor == "" || info.EndCursor == after {
			return defs, nil
		}
		after = info.EndCursor
	}
}

// CreateMetafieldDefinition creates a definition. An already-taken namespace/key is treated as success.
func (c *Client) CreateMetafieldDefinition(ctx context.Context, input MetafieldDefinitionInput) error {
	var out struct {
		MetafieldDefinitionCreate struct {
			CreatedDefinition *struct {
				ID string `json:"id"`
			} `json:"createdDefinition"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"metafieldDefinitionCreate"`
	}
	if err := c.do(ctx, "metafield_definition_create", metafieldDefinitionCreateMutation, map[string]any{"definition": input}, &out); err != nil {
		return err
	}
	var remaining []UserError
	for _, ue := range out.MetafieldDefinitionCreate.UserErrors {
		if ue.Code == definitionTakenCode {
			continue
		}
		remaining = append(remaining, ue)
	}
	return userErrorsToError(remaining)
}

func userErrorsToError(userErrors []UserError) error {
	if len(userErrors) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStoreRejected, firstNonEmpty(userErrors[0].Message, "Unknown error occurred")).
		WithDetails(userErrors)
}
