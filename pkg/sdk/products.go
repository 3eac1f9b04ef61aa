package bazar

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ProductFilter narrows a product listing. The zero value lists
// active products with the server's default page size.
type ProductFilter struct {
	Category    string
	IncludeSold bool
	Limit       int
	Offset      int
}

// Product fetches one listing by ID.
func (c *Client) Product(ctx context.Context, productID string) (Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID), nil, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

// Products lists published products, newest first.
func (c *Client) Products(ctx context.Context, filter ProductFilter) (ProductList, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.IncludeSold {
		q.Set("include_sold", "true")
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ProductList
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ProductList{}, err
	}
	return out, nil
}

// MarkSold flags a listing as sold and returns the updated product.
// Already-sold products come back unchanged.
func (c *Client) MarkSold(ctx context.Context, productID string) (Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodPost, "/api/products/"+url.PathEscape(productID)+"/sold", nil, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}
